// Package service implements the screening orchestrator: interactive
// single-member screening, the tenant-wide batch rescreen, and the flag
// lifecycle.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"coopaml/internal/member"
	membermodels "coopaml/internal/member/models"
	sanctionmodels "coopaml/internal/sanction/models"
	"coopaml/internal/screening/matcher"
	"coopaml/internal/screening/metrics"
	"coopaml/internal/screening/models"
	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
	"coopaml/pkg/platform/hooks"
	"coopaml/pkg/platform/sentinel"
	"coopaml/pkg/requestcontext"
)

// SanctionReader supplies the tenant's sanction records to screen against.
type SanctionReader interface {
	ListByCooperative(ctx context.Context, coopID id.CooperativeID) ([]*sanctionmodels.SanctionRecord, error)
}

// FlagStore persists AML flags. CreateIfAbsent returns sentinel.ErrAlreadyUsed
// when a pending flag for the same pairing already exists.
type FlagStore interface {
	CreateIfAbsent(ctx context.Context, flag *models.Flag) error
	FindByID(ctx context.Context, coopID id.CooperativeID, flagID id.FlagID) (*models.Flag, error)
	ResolveIfPending(ctx context.Context, coopID id.CooperativeID, resolved *models.Flag) error
	ListByCooperative(ctx context.Context, coopID id.CooperativeID, status models.FlagStatus) ([]*models.Flag, error)
}

// MemberFailure records one member whose screening errored during a batch.
type MemberFailure struct {
	MemberID id.MemberID `json:"member_id"`
	Reason   string      `json:"reason"`
}

// RescreenResult summarizes a batch rescreen. Failures never abort the batch;
// callers inspect them to detect partial degradation.
type RescreenResult struct {
	Screened     int             `json:"screened"`
	FlagsCreated int             `json:"flags_created"`
	Deduplicated int             `json:"deduplicated"`
	Failures     []MemberFailure `json:"failures,omitempty"`
}

// Service orchestrates screening and owns the flag lifecycle.
type Service struct {
	members    member.Store
	sanctions  SanctionReader
	whitelist  matcher.WhitelistChecker
	flags      FlagStore
	dispatcher *hooks.Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

func New(
	members member.Store,
	sanctions SanctionReader,
	whitelist matcher.WhitelistChecker,
	flags FlagStore,
	dispatcher *hooks.Dispatcher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		members:    members,
		sanctions:  sanctions,
		whitelist:  whitelist,
		flags:      flags,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("coopaml/screening"),
	}
}

// ScreenMember runs the matcher for one member against both sanction sources
// and returns the hits. Side-effect free; no flags are persisted.
func (s *Service) ScreenMember(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID) ([]matcher.Result, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}

	m, err := s.members.FindByID(ctx, coopID, memberID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}

	kyc, err := s.members.FindKYC(ctx, coopID, memberID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load kyc record")
	}
	// A member without a KYC record is screened by name only.

	sanctions, err := s.sanctions.ListByCooperative(ctx, coopID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sanction records")
	}

	results, err := matcher.Match(ctx, m, kyc, sanctions, s.whitelist)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "matching failed")
	}
	return results, nil
}

// Rescreen screens every active member of the tenant and persists a flag for
// each match on the triggering list. Matches against the other list are
// reported by ScreenMember but not flagged here; the triggering list bounds
// what this pass may write.
//
// Per-member failures are logged and collected; the batch always completes.
func (s *Service) Rescreen(ctx context.Context, coopID id.CooperativeID, listType id.ListType) (*RescreenResult, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}
	if !listType.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown list type %q", listType)
	}

	ctx, span := s.tracer.Start(ctx, "screening.rescreen", trace.WithAttributes(
		attribute.String("cooperative_id", coopID.String()),
		attribute.String("list_type", string(listType)),
	))
	defer span.End()

	start := time.Now()
	now := requestcontext.Now(ctx)

	members, err := s.members.ListActive(ctx, coopID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list active members")
	}
	sanctions, err := s.sanctions.ListByCooperative(ctx, coopID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sanction records")
	}

	result := &RescreenResult{}
	for _, m := range members {
		matches, err := s.screenOne(ctx, m, sanctions)
		if err != nil {
			result.Failures = append(result.Failures, MemberFailure{MemberID: m.ID, Reason: err.Error()})
			s.metrics.IncrementRescreenMembers("failed")
			s.logger.WarnContext(ctx, "member screening failed during rescreen",
				"cooperative_id", coopID,
				"member_id", m.ID,
				"error", err,
			)
			continue
		}
		result.Screened++
		s.metrics.IncrementRescreenMembers("screened")

		for _, match := range matches {
			if match.ListType != listType {
				continue
			}
			created, err := s.persistFlag(ctx, coopID, m.ID, match, now)
			if err != nil {
				result.Failures = append(result.Failures, MemberFailure{MemberID: m.ID, Reason: err.Error()})
				s.logger.WarnContext(ctx, "flag persistence failed during rescreen",
					"cooperative_id", coopID,
					"member_id", m.ID,
					"sanction_id", match.SanctionID,
					"error", err,
				)
				continue
			}
			if created {
				result.FlagsCreated++
			} else {
				result.Deduplicated++
				s.metrics.IncrementFlagsDeduplicated()
			}
		}
	}

	s.metrics.ObserveRescreenDuration(time.Since(start))
	span.SetAttributes(
		attribute.Int("screened", result.Screened),
		attribute.Int("flags_created", result.FlagsCreated),
		attribute.Int("failures", len(result.Failures)),
	)

	if err := s.dispatcher.Dispatch(ctx, hooks.Event{
		Kind:          hooks.KindRescreen,
		Phase:         hooks.PhaseCompleted,
		At:            now,
		CooperativeID: coopID,
		Detail:        string(listType),
	}); err != nil {
		s.logger.ErrorContext(ctx, "rescreen hooks failed", "error", err)
	}

	s.logger.InfoContext(ctx, "rescreen completed",
		"cooperative_id", coopID,
		"list_type", listType,
		"screened", result.Screened,
		"flags_created", result.FlagsCreated,
		"deduplicated", result.Deduplicated,
		"failures", len(result.Failures),
	)
	return result, nil
}

// screenOne mirrors ScreenMember but reuses the already-loaded member and
// sanction set, so a batch does not reload the watchlist per member.
func (s *Service) screenOne(ctx context.Context, m *membermodels.Member, sanctions []*sanctionmodels.SanctionRecord) ([]matcher.Result, error) {
	kyc, err := s.members.FindKYC(ctx, m.CooperativeID, m.ID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}
	return matcher.Match(ctx, m, kyc, sanctions, s.whitelist)
}

// persistFlag creates a pending flag for the match. Returns false when the
// dedup guard found a pending flag for the same pairing.
func (s *Service) persistFlag(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID, match matcher.Result, now time.Time) (bool, error) {
	flag := &models.Flag{
		ID:            id.FlagID(uuid.New()),
		CooperativeID: coopID,
		MemberID:      memberID,
		Type:          models.FlagTypeHighRisk,
		Details: models.MatchDetails{
			ListType:   match.ListType,
			SanctionID: match.SanctionID,
			Score:      match.Score,
		},
		Status:    models.FlagStatusPending,
		CreatedAt: now,
	}

	err := s.flags.CreateIfAbsent(ctx, flag)
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.metrics.IncrementFlagsCreated(string(match.ListType))
	if err := s.dispatcher.Dispatch(ctx, hooks.Event{
		Kind:          hooks.KindFlag,
		Phase:         hooks.PhaseCreated,
		At:            now,
		CooperativeID: coopID,
		MemberID:      memberID,
		EntityID:      flag.ID.String(),
		Detail:        string(match.ListType),
	}); err != nil {
		s.logger.ErrorContext(ctx, "flag hooks failed", "error", err)
	}
	return true, nil
}

// ResolveFlag marks a pending flag as reviewed. Resolving a resolved flag
// fails with an invalid-state error.
func (s *Service) ResolveFlag(ctx context.Context, coopID id.CooperativeID, flagID id.FlagID, resolution string) (*models.Flag, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}

	flag, err := s.flags.FindByID(ctx, coopID, flagID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "flag not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load flag")
	}
	if err := flag.CanResolve(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	flag.ApplyResolve(resolution, now)

	err = s.flags.ResolveIfPending(ctx, coopID, flag)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "flag is no longer pending")
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "flag not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve flag")
	}

	if err := s.dispatcher.Dispatch(ctx, hooks.Event{
		Kind:          hooks.KindFlag,
		Phase:         hooks.PhaseResolved,
		At:            now,
		CooperativeID: coopID,
		MemberID:      flag.MemberID,
		EntityID:      flag.ID.String(),
		Detail:        resolution,
	}); err != nil {
		s.logger.ErrorContext(ctx, "flag hooks failed", "error", err)
	}
	return flag, nil
}

// ListFlags returns the tenant's flags, optionally filtered by status.
func (s *Service) ListFlags(ctx context.Context, coopID id.CooperativeID, status models.FlagStatus) ([]*models.Flag, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}
	if status != "" && status != models.FlagStatusPending && status != models.FlagStatusResolved {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown flag status %q", status)
	}
	flags, err := s.flags.ListByCooperative(ctx, coopID, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list flags")
	}
	return flags, nil
}
