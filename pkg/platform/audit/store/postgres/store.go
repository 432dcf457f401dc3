package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "coopaml/pkg/domain"
	audit "coopaml/pkg/platform/audit"
	txcontext "coopaml/pkg/platform/tx"
)

// Store persists audit events in PostgreSQL. Events written inside a service
// transaction join it via the tx context, so a rolled-back operation leaves
// no audit trace.
//
// Schema:
//
//	CREATE TABLE audit_events (
//	    id             UUID PRIMARY KEY,
//	    category       TEXT NOT NULL,
//	    cooperative_id UUID NOT NULL,
//	    member_id      UUID,
//	    subject        TEXT NOT NULL DEFAULT '',
//	    action         TEXT NOT NULL,
//	    detail         TEXT NOT NULL DEFAULT '',
//	    request_id     TEXT NOT NULL DEFAULT '',
//	    actor_id       TEXT NOT NULL DEFAULT '',
//	    created_at     TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX audit_events_coop_idx ON audit_events (cooperative_id, created_at);
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL-backed audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append writes one audit event.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	category := event.Category
	if category == "" {
		category = audit.AuditEvent(event.Action).Category()
	}

	var memberID any
	if !event.MemberID.IsNil() {
		memberID = uuid.UUID(event.MemberID)
	}

	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_events (id, category, cooperative_id, member_id, subject, action, detail, request_id, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		uuid.New(),
		string(category),
		uuid.UUID(event.CooperativeID),
		memberID,
		event.Subject,
		event.Action,
		event.Detail,
		event.RequestID,
		event.ActorID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// ListByCooperative returns a cooperative's audit trail, newest first.
func (s *Store) ListByCooperative(ctx context.Context, coopID id.CooperativeID) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, cooperative_id, member_id, subject, action, detail, request_id, actor_id, created_at
		FROM audit_events
		WHERE cooperative_id = $1
		ORDER BY created_at DESC
	`, uuid.UUID(coopID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event     audit.Event
			category  string
			coop      uuid.UUID
			memberID  uuid.NullUUID
			createdAt time.Time
		)
		if err := rows.Scan(&category, &coop, &memberID, &event.Subject, &event.Action, &event.Detail, &event.RequestID, &event.ActorID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.CooperativeID = id.CooperativeID(coop)
		if memberID.Valid {
			event.MemberID = id.MemberID(memberID.UUID)
		}
		event.Timestamp = createdAt
		events = append(events, event)
	}
	return events, rows.Err()
}
