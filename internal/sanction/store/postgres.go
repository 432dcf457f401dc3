package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"coopaml/internal/sanction/models"
	id "coopaml/pkg/domain"
	txcontext "coopaml/pkg/platform/tx"
)

// Postgres persists sanction records.
//
// Schema:
//
//	CREATE TABLE sanction_records (
//	    id             UUID PRIMARY KEY,
//	    cooperative_id UUID NOT NULL,
//	    list_type      TEXT NOT NULL,
//	    full_name      TEXT NOT NULL,
//	    aliases        TEXT[] NOT NULL DEFAULT '{}',
//	    date_of_birth  TEXT NOT NULL DEFAULT '',
//	    nationality    TEXT NOT NULL DEFAULT '',
//	    national_id    TEXT NOT NULL DEFAULT '',
//	    synthetic_key  TEXT NOT NULL,
//	    last_updated   TIMESTAMPTZ NOT NULL,
//	    UNIQUE (cooperative_id, synthetic_key)
//	);
//
// synthetic_key embeds the list type (see models.SyntheticKey): the sources
// are independent, so the same identity imported on both lists is two rows.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Upsert inserts or refreshes a sanction record by its tenant-scoped
// synthetic key. The original row ID is kept on conflict so whitelist entries
// and flag details stay attached across re-imports. Returns true when a new
// row was created.
func (s *Postgres) Upsert(ctx context.Context, rec *models.SanctionRecord) (bool, error) {
	var inserted bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		INSERT INTO sanction_records
			(id, cooperative_id, list_type, full_name, aliases, date_of_birth, nationality, national_id, synthetic_key, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (cooperative_id, synthetic_key) DO UPDATE SET
			list_type     = EXCLUDED.list_type,
			full_name     = EXCLUDED.full_name,
			aliases       = EXCLUDED.aliases,
			date_of_birth = EXCLUDED.date_of_birth,
			nationality   = EXCLUDED.nationality,
			national_id   = EXCLUDED.national_id,
			last_updated  = EXCLUDED.last_updated
		RETURNING (xmax = 0)
	`,
		uuid.UUID(rec.ID),
		uuid.UUID(rec.CooperativeID),
		string(rec.ListType),
		rec.FullName,
		pq.Array(rec.Aliases),
		rec.DateOfBirth,
		rec.Nationality,
		rec.NationalID,
		rec.Key,
		rec.LastUpdated,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert sanction record: %w", err)
	}
	return inserted, nil
}

// ListByCooperative returns every sanction record for the tenant.
func (s *Postgres) ListByCooperative(ctx context.Context, coopID id.CooperativeID) ([]*models.SanctionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cooperative_id, list_type, full_name, aliases, date_of_birth, nationality, national_id, synthetic_key, last_updated
		FROM sanction_records
		WHERE cooperative_id = $1
		ORDER BY id
	`, uuid.UUID(coopID))
	if err != nil {
		return nil, fmt.Errorf("list sanction records: %w", err)
	}
	defer rows.Close()

	var records []*models.SanctionRecord
	for rows.Next() {
		var (
			rec      models.SanctionRecord
			rID, cID uuid.UUID
			listType string
			aliases  pq.StringArray
		)
		if err := rows.Scan(&rID, &cID, &listType, &rec.FullName, &aliases, &rec.DateOfBirth, &rec.Nationality, &rec.NationalID, &rec.Key, &rec.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan sanction record: %w", err)
		}
		rec.ID = id.SanctionID(rID)
		rec.CooperativeID = id.CooperativeID(cID)
		rec.ListType = id.ListType(listType)
		rec.Aliases = []string(aliases)
		records = append(records, &rec)
	}
	return records, rows.Err()
}
