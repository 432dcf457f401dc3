package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"coopaml/internal/whitelist/models"
	id "coopaml/pkg/domain"
	txcontext "coopaml/pkg/platform/tx"
)

// Postgres persists whitelist entries.
//
// Schema:
//
//	CREATE TABLE sanction_whitelist (
//	    cooperative_id UUID NOT NULL,
//	    member_id      UUID NOT NULL,
//	    sanction_id    UUID NOT NULL,
//	    list_type      TEXT NOT NULL,
//	    added_by       TEXT NOT NULL DEFAULT '',
//	    reason         TEXT NOT NULL DEFAULT '',
//	    created_at     TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (cooperative_id, member_id, sanction_id, list_type)
//	);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Postgres) execer(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Add inserts the entry unless its triple already exists for the tenant.
// The primary key makes re-adds a no-op; the first officer's reason is kept.
func (s *Postgres) Add(ctx context.Context, entry *models.Entry) (bool, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO sanction_whitelist
			(cooperative_id, member_id, sanction_id, list_type, added_by, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cooperative_id, member_id, sanction_id, list_type) DO NOTHING
	`,
		uuid.UUID(entry.CooperativeID),
		uuid.UUID(entry.MemberID),
		uuid.UUID(entry.SanctionID),
		string(entry.ListType),
		entry.AddedBy,
		entry.Reason,
		entry.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("add whitelist entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add whitelist entry: %w", err)
	}
	return n > 0, nil
}

// Contains reports whether the triple is whitelisted for the tenant.
func (s *Postgres) Contains(ctx context.Context, coopID id.CooperativeID, triple models.Triple) (bool, error) {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM sanction_whitelist
			WHERE cooperative_id = $1 AND member_id = $2 AND sanction_id = $3 AND list_type = $4
		)
	`,
		uuid.UUID(coopID),
		uuid.UUID(triple.MemberID),
		uuid.UUID(triple.SanctionID),
		string(triple.ListType),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check whitelist entry: %w", err)
	}
	return exists, nil
}

// ListByMember returns the member's whitelist entries, oldest first.
func (s *Postgres) ListByMember(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID) ([]*models.Entry, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT cooperative_id, member_id, sanction_id, list_type, added_by, reason, created_at
		FROM sanction_whitelist
		WHERE cooperative_id = $1 AND member_id = $2
		ORDER BY created_at, sanction_id
	`, uuid.UUID(coopID), uuid.UUID(memberID))
	if err != nil {
		return nil, fmt.Errorf("list whitelist entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		var (
			entry         models.Entry
			cID, mID, sID uuid.UUID
			listType      string
		)
		if err := rows.Scan(&cID, &mID, &sID, &listType, &entry.AddedBy, &entry.Reason, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan whitelist entry: %w", err)
		}
		entry.CooperativeID = id.CooperativeID(cID)
		entry.MemberID = id.MemberID(mID)
		entry.SanctionID = id.SanctionID(sID)
		entry.ListType = id.ListType(listType)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
