//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance with the
// engine schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// schema mirrors the DDL documented on each store. Integration tests run
// against exactly what production migrations would create.
const schema = `
CREATE TABLE members (
    id             UUID PRIMARY KEY,
    cooperative_id UUID NOT NULL,
    first_name     TEXT NOT NULL DEFAULT '',
    last_name      TEXT NOT NULL DEFAULT '',
    date_of_birth  TIMESTAMPTZ,
    active         BOOLEAN NOT NULL DEFAULT TRUE,
    family_members TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE member_kyc (
    member_id      UUID PRIMARY KEY,
    cooperative_id UUID NOT NULL,
    national_id    TEXT NOT NULL DEFAULT '',
    nationality    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE sanction_records (
    id             UUID PRIMARY KEY,
    cooperative_id UUID NOT NULL,
    list_type      TEXT NOT NULL,
    full_name      TEXT NOT NULL,
    aliases        TEXT[] NOT NULL DEFAULT '{}',
    date_of_birth  TEXT NOT NULL DEFAULT '',
    nationality    TEXT NOT NULL DEFAULT '',
    national_id    TEXT NOT NULL DEFAULT '',
    synthetic_key  TEXT NOT NULL,
    last_updated   TIMESTAMPTZ NOT NULL,
    UNIQUE (cooperative_id, synthetic_key)
);

CREATE TABLE sanction_whitelist (
    cooperative_id UUID NOT NULL,
    member_id      UUID NOT NULL,
    sanction_id    UUID NOT NULL,
    list_type      TEXT NOT NULL,
    added_by       TEXT NOT NULL DEFAULT '',
    reason         TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (cooperative_id, member_id, sanction_id, list_type)
);

CREATE TABLE aml_flags (
    id             UUID PRIMARY KEY,
    cooperative_id UUID NOT NULL,
    member_id      UUID NOT NULL,
    flag_type      TEXT NOT NULL,
    list_type      TEXT NOT NULL,
    sanction_id    UUID NOT NULL,
    score          INT NOT NULL,
    status         TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL,
    resolved_at    TIMESTAMPTZ,
    resolution     TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX aml_flags_pending_pairing ON aml_flags
    (cooperative_id, member_id, sanction_id, list_type)
    WHERE status = 'pending';

CREATE TABLE aml_cases (
    id             UUID PRIMARY KEY,
    cooperative_id UUID NOT NULL,
    member_id      UUID NOT NULL,
    case_type      TEXT NOT NULL,
    status         TEXT NOT NULL,
    notes          TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL,
    closed_at      TIMESTAMPTZ,
    report_path    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX aml_cases_tenant ON aml_cases (cooperative_id, created_at DESC);

CREATE TABLE ttr_reports (
    id              UUID PRIMARY KEY,
    cooperative_id  UUID NOT NULL,
    member_id       UUID NOT NULL,
    for_date        DATE NOT NULL,
    total_amount    NUMERIC(20, 4) NOT NULL,
    status          TEXT NOT NULL,
    deadline        DATE NOT NULL,
    remarks         TEXT NOT NULL DEFAULT '',
    xml_path        TEXT NOT NULL DEFAULT '',
    sof_declaration TEXT NOT NULL DEFAULT '',
    sof_attachment  TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL,
    decided_at      TIMESTAMPTZ
);
CREATE INDEX ttr_reports_tenant ON ttr_reports (cooperative_id, for_date DESC);

CREATE TABLE audit_events (
    id             UUID PRIMARY KEY,
    category       TEXT NOT NULL,
    cooperative_id UUID NOT NULL,
    member_id      UUID,
    subject        TEXT NOT NULL DEFAULT '',
    action         TEXT NOT NULL,
    detail         TEXT NOT NULL DEFAULT '',
    request_id     TEXT NOT NULL DEFAULT '',
    actor_id       TEXT NOT NULL DEFAULT '',
    created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX audit_events_coop_idx ON audit_events (cooperative_id, created_at);
`

// NewPostgresContainer starts a PostgreSQL container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("coopaml"),
		tcpostgres.WithUsername("coopaml"),
		tcpostgres.WithPassword("coopaml"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres: %v", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		_ = container.Terminate(context.Background())
	})

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// Truncate empties the given tables. Use between tests to ensure isolation.
func (p *PostgresContainer) Truncate(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table); err != nil {
			return err
		}
	}
	return nil
}
