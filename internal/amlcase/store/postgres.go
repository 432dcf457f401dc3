package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"coopaml/internal/amlcase/models"
	id "coopaml/pkg/domain"
	"coopaml/pkg/platform/sentinel"
	txcontext "coopaml/pkg/platform/tx"
)

// Postgres persists AML cases.
//
// Schema:
//
//	CREATE TABLE aml_cases (
//	    id             UUID PRIMARY KEY,
//	    cooperative_id UUID NOT NULL,
//	    member_id      UUID NOT NULL,
//	    case_type      TEXT NOT NULL,
//	    status         TEXT NOT NULL,
//	    notes          TEXT NOT NULL DEFAULT '',
//	    created_at     TIMESTAMPTZ NOT NULL,
//	    closed_at      TIMESTAMPTZ,
//	    report_path    TEXT NOT NULL DEFAULT ''
//	);
//	CREATE INDEX aml_cases_tenant ON aml_cases (cooperative_id, created_at DESC);
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

func (s *Postgres) Create(ctx context.Context, c *models.Case) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO aml_cases
			(id, cooperative_id, member_id, case_type, status, notes, created_at, report_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		uuid.UUID(c.ID),
		uuid.UUID(c.CooperativeID),
		uuid.UUID(c.MemberID),
		string(c.Type),
		string(c.Status),
		c.Notes,
		c.CreatedAt,
		c.ReportPath,
	)
	if err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, coopID id.CooperativeID, caseID id.CaseID) (*models.Case, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, cooperative_id, member_id, case_type, status, notes, created_at, closed_at, report_path
		FROM aml_cases
		WHERE cooperative_id = $1 AND id = $2
	`, uuid.UUID(coopID), uuid.UUID(caseID))

	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find case: %w", err)
	}
	return c, nil
}

// CloseIfOpen closes the case with the open-status predicate inside the
// UPDATE, so a racing close loses cleanly instead of overwriting closed_at.
func (s *Postgres) CloseIfOpen(ctx context.Context, coopID id.CooperativeID, closed *models.Case) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE aml_cases
		SET status = $1, closed_at = $2
		WHERE cooperative_id = $3 AND id = $4 AND status = 'open'
	`,
		string(closed.Status),
		closed.ClosedAt,
		uuid.UUID(coopID),
		uuid.UUID(closed.ID),
	)
	if err != nil {
		return fmt.Errorf("close case: %w", err)
	}
	return s.requireTransition(ctx, res, coopID, closed.ID)
}

// RecordReportPathIfOpen stores the STR artifact location while the case is
// still open.
func (s *Postgres) RecordReportPathIfOpen(ctx context.Context, coopID id.CooperativeID, caseID id.CaseID, path string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE aml_cases
		SET report_path = $1
		WHERE cooperative_id = $2 AND id = $3 AND status = 'open'
	`, path, uuid.UUID(coopID), uuid.UUID(caseID))
	if err != nil {
		return fmt.Errorf("record report path: %w", err)
	}
	return s.requireTransition(ctx, res, coopID, caseID)
}

func (s *Postgres) requireTransition(ctx context.Context, res sql.Result, coopID id.CooperativeID, caseID id.CaseID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("case transition: %w", err)
	}
	if n == 0 {
		if _, ferr := s.FindByID(ctx, coopID, caseID); ferr != nil {
			return ferr
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

// List returns a page of the tenant's cases plus the unpaginated total,
// newest first.
func (s *Postgres) List(ctx context.Context, coopID id.CooperativeID, filter models.ListFilter) ([]*models.Case, int, error) {
	where := `WHERE cooperative_id = $1`
	args := []any{uuid.UUID(coopID)}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where += fmt.Sprintf(` AND case_type = $%d`, len(args))
	}

	var total int
	if err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM aml_cases `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}

	query := `
		SELECT id, cooperative_id, member_id, case_type, status, notes, created_at, closed_at, report_path
		FROM aml_cases ` + where + ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var cases []*models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*models.Case, error) {
	var (
		c              models.Case
		cID, coID, mID uuid.UUID
		caseType       string
		status         string
		closedAt       sql.NullTime
	)
	err := row.Scan(&cID, &coID, &mID, &caseType, &status, &c.Notes, &c.CreatedAt, &closedAt, &c.ReportPath)
	if err != nil {
		return nil, err
	}
	c.ID = id.CaseID(cID)
	c.CooperativeID = id.CooperativeID(coID)
	c.MemberID = id.MemberID(mID)
	c.Type = models.CaseType(caseType)
	c.Status = models.CaseStatus(status)
	if closedAt.Valid {
		t := closedAt.Time
		c.ClosedAt = &t
	}
	return &c, nil
}
