// Package service implements the whitelist registry. Entries are per-pairing
// suppressions: whitelisting a member against one sanction on one list leaves
// every other pairing screenable.
package service

import (
	"context"
	"log/slog"

	"coopaml/internal/whitelist/models"
	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
	"coopaml/pkg/platform/hooks"
	"coopaml/pkg/requestcontext"
)

// Store persists whitelist entries.
type Store interface {
	Add(ctx context.Context, entry *models.Entry) (created bool, err error)
	Contains(ctx context.Context, coopID id.CooperativeID, triple models.Triple) (bool, error)
	ListByMember(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID) ([]*models.Entry, error)
}

// Service manages whitelist entries.
type Service struct {
	store      Store
	dispatcher *hooks.Dispatcher
	logger     *slog.Logger
}

func New(store Store, dispatcher *hooks.Dispatcher, logger *slog.Logger) *Service {
	return &Service{store: store, dispatcher: dispatcher, logger: logger}
}

// Add whitelists the (member, sanction, list) pairing. Adding an existing
// pairing is idempotent and keeps the first entry's reason.
func (s *Service) Add(ctx context.Context, coopID id.CooperativeID, triple models.Triple, reason string) (*models.Entry, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}
	if triple.MemberID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "member id is required")
	}
	if triple.SanctionID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "sanction id is required")
	}
	if !triple.ListType.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown list type %q", triple.ListType)
	}

	entry := &models.Entry{
		CooperativeID: coopID,
		MemberID:      triple.MemberID,
		SanctionID:    triple.SanctionID,
		ListType:      triple.ListType,
		AddedBy:       requestcontext.ActorID(ctx),
		Reason:        reason,
		CreatedAt:     requestcontext.Now(ctx),
	}
	created, err := s.store.Add(ctx, entry)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add whitelist entry")
	}
	if !created {
		s.logger.InfoContext(ctx, "whitelist entry already present",
			"cooperative_id", coopID,
			"member_id", triple.MemberID,
			"sanction_id", triple.SanctionID,
			"list_type", triple.ListType,
		)
		return entry, nil
	}

	if err := s.dispatcher.Dispatch(ctx, hooks.Event{
		Kind:          hooks.KindWhitelist,
		Phase:         hooks.PhaseCreated,
		At:            entry.CreatedAt,
		CooperativeID: coopID,
		MemberID:      triple.MemberID,
		EntityID:      triple.SanctionID.String(),
		Detail:        string(triple.ListType),
	}); err != nil {
		s.logger.ErrorContext(ctx, "whitelist hooks failed", "error", err)
	}
	return entry, nil
}

// IsWhitelisted reports whether the pairing has been suppressed. The matcher
// consults this before scoring.
func (s *Service) IsWhitelisted(ctx context.Context, coopID id.CooperativeID, triple models.Triple) (bool, error) {
	ok, err := s.store.Contains(ctx, coopID, triple)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check whitelist")
	}
	return ok, nil
}

// ListByMember returns the member's whitelist entries.
func (s *Service) ListByMember(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID) ([]*models.Entry, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}
	entries, err := s.store.ListByMember(ctx, coopID, memberID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list whitelist entries")
	}
	return entries, nil
}
