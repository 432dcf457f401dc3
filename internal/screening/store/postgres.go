package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"coopaml/internal/screening/models"
	id "coopaml/pkg/domain"
	"coopaml/pkg/platform/sentinel"
	txcontext "coopaml/pkg/platform/tx"
)

// Postgres persists AML flags.
//
// Schema:
//
//	CREATE TABLE aml_flags (
//	    id             UUID PRIMARY KEY,
//	    cooperative_id UUID NOT NULL,
//	    member_id      UUID NOT NULL,
//	    flag_type      TEXT NOT NULL,
//	    list_type      TEXT NOT NULL,
//	    sanction_id    UUID NOT NULL,
//	    score          INT NOT NULL,
//	    status         TEXT NOT NULL,
//	    created_at     TIMESTAMPTZ NOT NULL,
//	    resolved_at    TIMESTAMPTZ,
//	    resolution     TEXT NOT NULL DEFAULT ''
//	);
//	CREATE UNIQUE INDEX aml_flags_pending_pairing ON aml_flags
//	    (cooperative_id, member_id, sanction_id, list_type)
//	    WHERE status = 'pending';
//
// The partial unique index is the dedup guard: repeated rescreens cannot pile
// up pending flags for a pairing an officer has not reviewed yet.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) execer(ctx context.Context) dbExecer {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// CreateIfAbsent inserts the flag; a conflicting pending flag for the same
// pairing yields sentinel.ErrAlreadyUsed.
func (s *Postgres) CreateIfAbsent(ctx context.Context, flag *models.Flag) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO aml_flags
			(id, cooperative_id, member_id, flag_type, list_type, sanction_id, score, status, created_at, resolution)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (cooperative_id, member_id, sanction_id, list_type) WHERE status = 'pending'
		DO NOTHING
	`,
		uuid.UUID(flag.ID),
		uuid.UUID(flag.CooperativeID),
		uuid.UUID(flag.MemberID),
		string(flag.Type),
		string(flag.Details.ListType),
		uuid.UUID(flag.Details.SanctionID),
		flag.Details.Score,
		string(flag.Status),
		flag.CreatedAt,
		flag.Resolution,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create flag: %w", err)
	}
	if n == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

// FindByID returns the flag, or sentinel.ErrNotFound when absent or
// cross-tenant.
func (s *Postgres) FindByID(ctx context.Context, coopID id.CooperativeID, flagID id.FlagID) (*models.Flag, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, cooperative_id, member_id, flag_type, list_type, sanction_id, score, status, created_at, resolved_at, resolution
		FROM aml_flags
		WHERE cooperative_id = $1 AND id = $2
	`, uuid.UUID(coopID), uuid.UUID(flagID))

	flag, err := scanFlag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find flag: %w", err)
	}
	return flag, nil
}

// ResolveIfPending updates the flag only while it is still pending. The
// predicate is part of the UPDATE, not a separate read.
func (s *Postgres) ResolveIfPending(ctx context.Context, coopID id.CooperativeID, resolved *models.Flag) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE aml_flags
		SET status = $1, resolved_at = $2, resolution = $3
		WHERE cooperative_id = $4 AND id = $5 AND status = 'pending'
	`,
		string(resolved.Status),
		resolved.ResolvedAt,
		resolved.Resolution,
		uuid.UUID(coopID),
		uuid.UUID(resolved.ID),
	)
	if err != nil {
		return fmt.Errorf("resolve flag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve flag: %w", err)
	}
	if n == 0 {
		// Distinguish a missing flag from a lost transition race.
		if _, ferr := s.FindByID(ctx, coopID, resolved.ID); ferr != nil {
			return ferr
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

// ListByCooperative returns the tenant's flags, optionally filtered by
// status, newest first.
func (s *Postgres) ListByCooperative(ctx context.Context, coopID id.CooperativeID, status models.FlagStatus) ([]*models.Flag, error) {
	query := `
		SELECT id, cooperative_id, member_id, flag_type, list_type, sanction_id, score, status, created_at, resolved_at, resolution
		FROM aml_flags
		WHERE cooperative_id = $1`
	args := []any{uuid.UUID(coopID)}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list flags: %w", err)
	}
	defer rows.Close()

	var flags []*models.Flag
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flag: %w", err)
		}
		flags = append(flags, flag)
	}
	return flags, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlag(row rowScanner) (*models.Flag, error) {
	var (
		flag               models.Flag
		fID, cID, mID, sID uuid.UUID
		flagType           string
		listType           string
		status             string
		resolvedAt         sql.NullTime
	)
	err := row.Scan(&fID, &cID, &mID, &flagType, &listType, &sID, &flag.Details.Score, &status, &flag.CreatedAt, &resolvedAt, &flag.Resolution)
	if err != nil {
		return nil, err
	}
	flag.ID = id.FlagID(fID)
	flag.CooperativeID = id.CooperativeID(cID)
	flag.MemberID = id.MemberID(mID)
	flag.Type = models.FlagType(flagType)
	flag.Details.ListType = id.ListType(listType)
	flag.Details.SanctionID = id.SanctionID(sID)
	flag.Status = models.FlagStatus(status)
	if resolvedAt.Valid {
		t := resolvedAt.Time
		flag.ResolvedAt = &t
	}
	return &flag, nil
}
