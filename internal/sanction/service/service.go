// Package service implements watchlist imports. Imports are the only write
// path into the sanction store; every completed import for a list triggers a
// tenant-wide rescreen against that list.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"coopaml/internal/sanction/models"
	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
	"coopaml/pkg/platform/hooks"
	"coopaml/pkg/requestcontext"
)

// Store persists sanction records.
type Store interface {
	Upsert(ctx context.Context, rec *models.SanctionRecord) (created bool, err error)
	ListByCooperative(ctx context.Context, coopID id.CooperativeID) ([]*models.SanctionRecord, error)
}

// Rescreener triggers the tenant-wide rescreen after an import. The scheduler
// owns serialization and reporting; import only fires it.
type Rescreener interface {
	Trigger(ctx context.Context, coopID id.CooperativeID, listType id.ListType) error
}

// RowError records one skipped import row.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult reports what an import did. Skipped rows carry their reasons;
// they never abort the batch.
type ImportResult struct {
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
	Skipped   int        `json:"skipped"`
	RowErrors []RowError `json:"row_errors,omitempty"`
}

// Service orchestrates watchlist imports.
type Service struct {
	store      Store
	rescreener Rescreener
	dispatcher *hooks.Dispatcher
	logger     *slog.Logger
}

func New(store Store, rescreener Rescreener, dispatcher *hooks.Dispatcher, logger *slog.Logger) *Service {
	return &Service{store: store, rescreener: rescreener, dispatcher: dispatcher, logger: logger}
}

// Import validates and upserts the given rows for (coopID, listType), then
// triggers a rescreen when anything changed. Invalid rows are skipped and
// reported, matching the per-record tolerance of the import contract.
func (s *Service) Import(ctx context.Context, coopID id.CooperativeID, listType id.ListType, rows []models.ImportRow) (*ImportResult, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}
	if !listType.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown list type %q", listType)
	}

	now := requestcontext.Now(ctx)
	result := &ImportResult{}

	for i, row := range rows {
		if err := row.Validate(listType); err != nil {
			result.Skipped++
			result.RowErrors = append(result.RowErrors, RowError{Row: i, Reason: err.Error()})
			s.logger.WarnContext(ctx, "skipped invalid sanction row",
				"cooperative_id", coopID,
				"list_type", listType,
				"row", i,
				"error", err,
			)
			continue
		}

		rec := models.NewFromRow(id.SanctionID(uuid.New()), coopID, listType, row, now)
		created, err := s.store.Upsert(ctx, rec)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist sanction record")
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	if err := s.dispatcher.Dispatch(ctx, hooks.Event{
		Kind:          hooks.KindSanction,
		Phase:         hooks.PhaseImported,
		At:            now,
		CooperativeID: coopID,
		Detail:        fmt.Sprintf("list=%s created=%d updated=%d skipped=%d", listType, result.Created, result.Updated, result.Skipped),
	}); err != nil {
		s.logger.ErrorContext(ctx, "sanction import hooks failed", "error", err)
	}

	// An import that changed nothing leaves screening results unchanged, so
	// there is nothing to rescreen.
	if result.Created+result.Updated > 0 {
		if err := s.rescreener.Trigger(ctx, coopID, listType); err != nil {
			// The import itself succeeded; surface the rescreen failure to the
			// caller so the import can be re-run (there is no retry machinery).
			// A coded failure, such as a conflict with a concurrent import,
			// keeps its code on the way out.
			return result, dErrors.Wrap(err, dErrors.CodeOf(err), "rescreen after import failed")
		}
	}

	return result, nil
}

// List returns the tenant's current watchlist across both sources.
func (s *Service) List(ctx context.Context, coopID id.CooperativeID) ([]*models.SanctionRecord, error) {
	if coopID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "cooperative scope is required")
	}
	records, err := s.store.ListByCooperative(ctx, coopID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sanction records")
	}
	return records, nil
}
