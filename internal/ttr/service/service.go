// Package service implements the TTR queue manager: creation from threshold
// crossings, officer approve/reject decisions, and XML artifact generation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"coopaml/internal/member"
	membermodels "coopaml/internal/member/models"
	"coopaml/internal/ttr/metrics"
	"coopaml/internal/ttr/models"
	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
	"coopaml/pkg/platform/hooks"
	"coopaml/pkg/platform/sentinel"
	"coopaml/pkg/requestcontext"
)

// Store persists TTRs. Transitions are conditional: the pending-status
// predicate is part of the write.
type Store interface {
	Create(ctx context.Context, r *models.Report) error
	FindByID(ctx context.Context, coopID id.CooperativeID, reportID id.ReportID) (*models.Report, error)
	TransitionIfPending(ctx context.Context, coopID id.CooperativeID, updated *models.Report) error
	SetXMLPathIfPending(ctx context.Context, coopID id.CooperativeID, reportID id.ReportID, path string) error
	List(ctx context.Context, coopID id.CooperativeID, filter models.ListFilter) ([]*models.Report, int, error)
}

// XMLExporter renders the XML artifact for a report and returns its location.
type XMLExporter interface {
	ExportTTR(ctx context.Context, r *models.Report, m *membermodels.Member, now time.Time) (string, error)
}

// Page is one page of a report listing.
type Page struct {
	Reports []*models.Report
	Total   int
	Offset  int
	Limit   int
}

// Service owns the TTR lifecycle.
type Service struct {
	store            Store
	members          member.Store
	exporter         XMLExporter
	dispatcher       *hooks.Dispatcher
	metrics          *metrics.Metrics
	logger           *slog.Logger
	filingWindowDays int
}

func New(
	store Store,
	members member.Store,
	exporter XMLExporter,
	dispatcher *hooks.Dispatcher,
	m *metrics.Metrics,
	logger *slog.Logger,
	filingWindowDays int,
) *Service {
	return &Service{
		store:            store,
		members:          members,
		exporter:         exporter,
		dispatcher:       dispatcher,
		metrics:          m,
		logger:           logger,
		filingWindowDays: filingWindowDays,
	}
}

// CreateFromThreshold records a pending TTR for a member whose daily total
// crossed the regulatory threshold. Called by the transaction-aggregation
// collaborator; the engine never reads the ledger itself.
func (s *Service) CreateFromThreshold(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID, forDate time.Time, total decimal.Decimal, sof models.SourceOfFunds) (*models.Report, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}
	if forDate.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "report date is required")
	}
	if !total.IsPositive() {
		return nil, dErrors.New(dErrors.CodeValidation, "total amount must be positive")
	}
	if _, err := s.members.FindByID(ctx, coopID, memberID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}

	now := requestcontext.Now(ctx)
	r := models.NewFromThreshold(id.ReportID(uuid.New()), coopID, memberID, forDate, total, sof, s.filingWindowDays, now)
	if err := s.store.Create(ctx, r); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create ttr report")
	}

	s.metrics.IncrementReportsCreated()
	if err := s.dispatcher.Dispatch(ctx, hooks.Event{
		Kind:          hooks.KindTTR,
		Phase:         hooks.PhaseCreated,
		At:            now,
		CooperativeID: coopID,
		MemberID:      memberID,
		EntityID:      r.ID.String(),
		Detail:        total.String(),
	}); err != nil {
		s.logger.ErrorContext(ctx, "ttr hooks failed", "error", err)
	}
	return r, nil
}

// Approve marks a pending report as filed.
func (s *Service) Approve(ctx context.Context, coopID id.CooperativeID, reportID id.ReportID) (*models.Report, error) {
	return s.decide(ctx, coopID, reportID, func(r *models.Report, now time.Time) error {
		if err := r.CanApprove(); err != nil {
			return err
		}
		r.ApplyApprove(now)
		return nil
	}, hooks.PhaseApproved, "approved")
}

// Reject marks a pending report as rejected with the officer's remarks.
func (s *Service) Reject(ctx context.Context, coopID id.CooperativeID, reportID id.ReportID, remarks string) (*models.Report, error) {
	if strings.TrimSpace(remarks) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "rejection remarks are required")
	}
	return s.decide(ctx, coopID, reportID, func(r *models.Report, now time.Time) error {
		if err := r.CanReject(); err != nil {
			return err
		}
		r.ApplyReject(remarks, now)
		return nil
	}, hooks.PhaseRejected, "rejected")
}

func (s *Service) decide(ctx context.Context, coopID id.CooperativeID, reportID id.ReportID, apply func(*models.Report, time.Time) error, phase hooks.Phase, outcome string) (*models.Report, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}

	r, err := s.findReport(ctx, coopID, reportID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	if err := apply(r, now); err != nil {
		return nil, err
	}

	err = s.store.TransitionIfPending(ctx, coopID, r)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "report is no longer pending")
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update ttr report")
	}

	s.metrics.IncrementTransitions(outcome)
	if err := s.dispatcher.Dispatch(ctx, hooks.Event{
		Kind:          hooks.KindTTR,
		Phase:         phase,
		At:            now,
		CooperativeID: coopID,
		MemberID:      r.MemberID,
		EntityID:      r.ID.String(),
		Detail:        r.Remarks,
	}); err != nil {
		s.logger.ErrorContext(ctx, "ttr hooks failed", "error", err)
	}
	return r, nil
}

// GenerateXML renders the XML artifact for a pending report and records its
// location. Status is untouched: the officer may still reject afterwards,
// correcting a premature generation before final filing.
func (s *Service) GenerateXML(ctx context.Context, coopID id.CooperativeID, reportID id.ReportID) (string, error) {
	if coopID.IsNil() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}

	r, err := s.findReport(ctx, coopID, reportID)
	if err != nil {
		return "", err
	}
	if err := r.CanGenerateXML(); err != nil {
		return "", err
	}

	m, err := s.members.FindByID(ctx, coopID, r.MemberID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load report member")
	}

	now := requestcontext.Now(ctx)
	path, err := s.exporter.ExportTTR(ctx, r, m, now)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to render ttr xml")
	}

	err = s.store.SetXMLPathIfPending(ctx, coopID, reportID, path)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return "", dErrors.New(dErrors.CodeInvalidState, "report is no longer pending")
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to record ttr xml path")
	}

	s.metrics.IncrementXMLGenerated()
	if err := s.dispatcher.Dispatch(ctx, hooks.Event{
		Kind:          hooks.KindTTR,
		Phase:         hooks.PhaseExported,
		At:            now,
		CooperativeID: coopID,
		MemberID:      r.MemberID,
		EntityID:      r.ID.String(),
		Detail:        path,
	}); err != nil {
		s.logger.ErrorContext(ctx, "ttr hooks failed", "error", err)
	}
	return path, nil
}

// List returns a page of the tenant's reports filtered by status and date
// range.
func (s *Service) List(ctx context.Context, coopID id.CooperativeID, filter models.ListFilter) (*Page, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}
	switch filter.Status {
	case "", models.ReportStatusPending, models.ReportStatusApproved, models.ReportStatusRejected:
	default:
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown report status %q", filter.Status)
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, dErrors.New(dErrors.CodeValidation, "date range end precedes start")
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	reports, total, err := s.store.List(ctx, coopID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ttr reports")
	}
	return &Page{Reports: reports, Total: total, Offset: filter.Offset, Limit: filter.Limit}, nil
}

func (s *Service) findReport(ctx context.Context, coopID id.CooperativeID, reportID id.ReportID) (*models.Report, error) {
	r, err := s.store.FindByID(ctx, coopID, reportID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "report not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ttr report")
	}
	return r, nil
}
