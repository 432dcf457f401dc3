// Package service implements the case manager: the open → closed lifecycle of
// AML investigations and STR artifact generation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"coopaml/internal/amlcase/metrics"
	"coopaml/internal/amlcase/models"
	"coopaml/internal/member"
	membermodels "coopaml/internal/member/models"
	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
	"coopaml/pkg/platform/hooks"
	"coopaml/pkg/platform/sentinel"
	"coopaml/pkg/requestcontext"
)

// Store persists AML cases. Transitions are conditional: the open-status
// predicate is part of the write.
type Store interface {
	Create(ctx context.Context, c *models.Case) error
	FindByID(ctx context.Context, coopID id.CooperativeID, caseID id.CaseID) (*models.Case, error)
	CloseIfOpen(ctx context.Context, coopID id.CooperativeID, closed *models.Case) error
	RecordReportPathIfOpen(ctx context.Context, coopID id.CooperativeID, caseID id.CaseID, path string) error
	List(ctx context.Context, coopID id.CooperativeID, filter models.ListFilter) ([]*models.Case, int, error)
}

// STRFormatter renders the STR artifact for a case and returns its location.
type STRFormatter interface {
	FormatSTR(ctx context.Context, c *models.Case, m *membermodels.Member, now time.Time) (string, error)
}

// Page is one page of a case listing.
type Page struct {
	Cases  []*models.Case
	Total  int
	Offset int
	Limit  int
}

// Service owns the case lifecycle.
type Service struct {
	store      Store
	members    member.Store
	formatter  STRFormatter
	dispatcher *hooks.Dispatcher
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func New(
	store Store,
	members member.Store,
	formatter STRFormatter,
	dispatcher *hooks.Dispatcher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:      store,
		members:    members,
		formatter:  formatter,
		dispatcher: dispatcher,
		metrics:    m,
		logger:     logger,
	}
}

// Open creates a new open case for the member. Multiple open cases per member
// are allowed; investigations of different types run concurrently.
func (s *Service) Open(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID, caseType models.CaseType, notes string) (*models.Case, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}
	if _, err := models.ParseCaseType(string(caseType)); err != nil {
		return nil, err
	}
	if _, err := s.members.FindByID(ctx, coopID, memberID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}

	now := requestcontext.Now(ctx)
	c := &models.Case{
		ID:            id.CaseID(uuid.New()),
		CooperativeID: coopID,
		MemberID:      memberID,
		Type:          caseType,
		Status:        models.CaseStatusOpen,
		Notes:         notes,
		CreatedAt:     now,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create case")
	}

	s.metrics.IncrementCasesOpened(string(caseType))
	if err := s.dispatcher.Dispatch(ctx, hooks.Event{
		Kind:          hooks.KindCase,
		Phase:         hooks.PhaseCreated,
		At:            now,
		CooperativeID: coopID,
		MemberID:      memberID,
		EntityID:      c.ID.String(),
		Detail:        string(caseType),
	}); err != nil {
		s.logger.ErrorContext(ctx, "case hooks failed", "error", err)
	}
	return c, nil
}

// Close transitions the case to closed. Closing a closed case fails with an
// invalid-state error and leaves closedAt untouched.
func (s *Service) Close(ctx context.Context, coopID id.CooperativeID, caseID id.CaseID) (*models.Case, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}

	c, err := s.findCase(ctx, coopID, caseID)
	if err != nil {
		return nil, err
	}
	if err := c.CanClose(); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	c.ApplyClose(now)

	err = s.store.CloseIfOpen(ctx, coopID, c)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "case is no longer open")
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to close case")
	}

	s.metrics.IncrementCasesClosed()
	if err := s.dispatcher.Dispatch(ctx, hooks.Event{
		Kind:          hooks.KindCase,
		Phase:         hooks.PhaseClosed,
		At:            now,
		CooperativeID: coopID,
		MemberID:      c.MemberID,
		EntityID:      c.ID.String(),
	}); err != nil {
		s.logger.ErrorContext(ctx, "case hooks failed", "error", err)
	}
	return c, nil
}

// GenerateSTR renders the STR artifact for an open STR case and records its
// location. The case stays open; the officer closes it after filing.
func (s *Service) GenerateSTR(ctx context.Context, coopID id.CooperativeID, caseID id.CaseID) (string, error) {
	if coopID.IsNil() {
		return "", dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}

	c, err := s.findCase(ctx, coopID, caseID)
	if err != nil {
		return "", err
	}
	if err := c.CanGenerateSTR(); err != nil {
		return "", err
	}

	m, err := s.members.FindByID(ctx, coopID, c.MemberID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case member")
	}

	now := requestcontext.Now(ctx)
	path, err := s.formatter.FormatSTR(ctx, c, m, now)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to render STR artifact")
	}

	err = s.store.RecordReportPathIfOpen(ctx, coopID, caseID, path)
	if errors.Is(err, sentinel.ErrInvalidState) {
		return "", dErrors.New(dErrors.CodeInvalidState, "case is no longer open")
	}
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to record STR artifact path")
	}

	s.metrics.IncrementSTRsGenerated()
	if err := s.dispatcher.Dispatch(ctx, hooks.Event{
		Kind:          hooks.KindCase,
		Phase:         hooks.PhaseExported,
		At:            now,
		CooperativeID: coopID,
		MemberID:      c.MemberID,
		EntityID:      c.ID.String(),
		Detail:        path,
	}); err != nil {
		s.logger.ErrorContext(ctx, "case hooks failed", "error", err)
	}
	return path, nil
}

// List returns a page of the tenant's cases filtered by status and type.
func (s *Service) List(ctx context.Context, coopID id.CooperativeID, filter models.ListFilter) (*Page, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}
	if filter.Status != "" && filter.Status != models.CaseStatusOpen && filter.Status != models.CaseStatusClosed {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown case status %q", filter.Status)
	}
	if filter.Type != "" {
		if _, err := models.ParseCaseType(string(filter.Type)); err != nil {
			return nil, err
		}
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	cases, total, err := s.store.List(ctx, coopID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	return &Page{Cases: cases, Total: total, Offset: filter.Offset, Limit: filter.Limit}, nil
}

func (s *Service) findCase(ctx context.Context, coopID id.CooperativeID, caseID id.CaseID) (*models.Case, error) {
	c, err := s.store.FindByID(ctx, coopID, caseID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load case")
	}
	return c, nil
}
