package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"coopaml/internal/ttr/models"
	id "coopaml/pkg/domain"
	"coopaml/pkg/platform/sentinel"
	txcontext "coopaml/pkg/platform/tx"
)

// Postgres persists TTRs.
//
// Schema:
//
//	CREATE TABLE ttr_reports (
//	    id              UUID PRIMARY KEY,
//	    cooperative_id  UUID NOT NULL,
//	    member_id       UUID NOT NULL,
//	    for_date        DATE NOT NULL,
//	    total_amount    NUMERIC(20, 4) NOT NULL,
//	    status          TEXT NOT NULL,
//	    deadline        DATE NOT NULL,
//	    remarks         TEXT NOT NULL DEFAULT '',
//	    xml_path        TEXT NOT NULL DEFAULT '',
//	    sof_declaration TEXT NOT NULL DEFAULT '',
//	    sof_attachment  TEXT NOT NULL DEFAULT '',
//	    created_at      TIMESTAMPTZ NOT NULL,
//	    decided_at      TIMESTAMPTZ
//	);
//	CREATE INDEX ttr_reports_tenant ON ttr_reports (cooperative_id, for_date DESC);
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

func (s *Postgres) Create(ctx context.Context, r *models.Report) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO ttr_reports
			(id, cooperative_id, member_id, for_date, total_amount, status, deadline, remarks, xml_path, sof_declaration, sof_attachment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		uuid.UUID(r.ID),
		uuid.UUID(r.CooperativeID),
		uuid.UUID(r.MemberID),
		r.ForDate,
		r.TotalAmount.String(),
		string(r.Status),
		r.Deadline,
		r.Remarks,
		r.XMLPath,
		r.SourceOfFunds.Declaration,
		r.SourceOfFunds.AttachmentPath,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create ttr report: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, coopID id.CooperativeID, reportID id.ReportID) (*models.Report, error) {
	row := s.execer(ctx).QueryRowContext(ctx, `
		SELECT id, cooperative_id, member_id, for_date, total_amount, status, deadline, remarks, xml_path, sof_declaration, sof_attachment, created_at, decided_at
		FROM ttr_reports
		WHERE cooperative_id = $1 AND id = $2
	`, uuid.UUID(coopID), uuid.UUID(reportID))

	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find ttr report: %w", err)
	}
	return r, nil
}

// TransitionIfPending applies a terminal state with the pending predicate
// inside the UPDATE.
func (s *Postgres) TransitionIfPending(ctx context.Context, coopID id.CooperativeID, updated *models.Report) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE ttr_reports
		SET status = $1, remarks = $2, decided_at = $3
		WHERE cooperative_id = $4 AND id = $5 AND status = 'pending'
	`,
		string(updated.Status),
		updated.Remarks,
		updated.DecidedAt,
		uuid.UUID(coopID),
		uuid.UUID(updated.ID),
	)
	if err != nil {
		return fmt.Errorf("transition ttr report: %w", err)
	}
	return s.requireTransition(ctx, res, coopID, updated.ID)
}

// SetXMLPathIfPending records the XML artifact location while the report is
// still pending.
func (s *Postgres) SetXMLPathIfPending(ctx context.Context, coopID id.CooperativeID, reportID id.ReportID, path string) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE ttr_reports
		SET xml_path = $1
		WHERE cooperative_id = $2 AND id = $3 AND status = 'pending'
	`, path, uuid.UUID(coopID), uuid.UUID(reportID))
	if err != nil {
		return fmt.Errorf("set ttr xml path: %w", err)
	}
	return s.requireTransition(ctx, res, coopID, reportID)
}

func (s *Postgres) requireTransition(ctx context.Context, res sql.Result, coopID id.CooperativeID, reportID id.ReportID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ttr transition: %w", err)
	}
	if n == 0 {
		if _, ferr := s.FindByID(ctx, coopID, reportID); ferr != nil {
			return ferr
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

// List returns a page of the tenant's reports plus the unpaginated total,
// newest reported day first.
func (s *Postgres) List(ctx context.Context, coopID id.CooperativeID, filter models.ListFilter) ([]*models.Report, int, error) {
	where := `WHERE cooperative_id = $1`
	args := []any{uuid.UUID(coopID)}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where += fmt.Sprintf(` AND for_date >= $%d`, len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where += fmt.Sprintf(` AND for_date <= $%d`, len(args))
	}

	var total int
	if err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM ttr_reports `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ttr reports: %w", err)
	}

	query := `
		SELECT id, cooperative_id, member_id, for_date, total_amount, status, deadline, remarks, xml_path, sof_declaration, sof_attachment, created_at, decided_at
		FROM ttr_reports ` + where + ` ORDER BY for_date DESC, id`
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
		return nil, 0, fmt.Errorf("list ttr reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan ttr report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	var (
		r             models.Report
		rID, cID, mID uuid.UUID
		amount        string
		status        string
		decidedAt     sql.NullTime
	)
	err := row.Scan(&rID, &cID, &mID, &r.ForDate, &amount, &status, &r.Deadline, &r.Remarks, &r.XMLPath, &r.SourceOfFunds.Declaration, &r.SourceOfFunds.AttachmentPath, &r.CreatedAt, &decidedAt)
	if err != nil {
		return nil, err
	}
	total, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}
	r.ID = id.ReportID(rID)
	r.CooperativeID = id.CooperativeID(cID)
	r.MemberID = id.MemberID(mID)
	r.TotalAmount = total
	r.Status = models.ReportStatus(status)
	if decidedAt.Valid {
		t := decidedAt.Time
		r.DecidedAt = &t
	}
	return &r, nil
}
