package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"coopaml/internal/member/models"
	id "coopaml/pkg/domain"
	"coopaml/pkg/platform/sentinel"
)

// Postgres reads member and KYC rows from the tables owned by the member
// subsystem. Read-only on purpose: no INSERT/UPDATE statements live here.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) FindByID(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, cooperative_id, first_name, last_name, date_of_birth, active, family_members
		FROM members
		WHERE id = $1 AND cooperative_id = $2
	`, uuid.UUID(memberID), uuid.UUID(coopID))

	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return m, nil
}

func (s *Postgres) ListActive(ctx context.Context, coopID id.CooperativeID) ([]*models.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cooperative_id, first_name, last_name, date_of_birth, active, family_members
		FROM members
		WHERE cooperative_id = $1 AND active
		ORDER BY id
	`, uuid.UUID(coopID))
	if err != nil {
		return nil, fmt.Errorf("list active members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Postgres) FindKYC(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID) (*models.KYCRecord, error) {
	var (
		k        models.KYCRecord
		mID, cID uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT member_id, cooperative_id, national_id, nationality
		FROM member_kyc
		WHERE member_id = $1 AND cooperative_id = $2
	`, uuid.UUID(memberID), uuid.UUID(coopID)).Scan(&mID, &cID, &k.NationalID, &k.Nationality)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find kyc: %w", err)
	}
	k.MemberID = id.MemberID(mID)
	k.CooperativeID = id.CooperativeID(cID)
	return &k, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*models.Member, error) {
	var (
		m        models.Member
		mID, cID uuid.UUID
		dob      sql.NullTime
		family   pq.StringArray
	)
	if err := row.Scan(&mID, &cID, &m.FirstName, &m.LastName, &dob, &m.Active, &family); err != nil {
		return nil, err
	}
	m.ID = id.MemberID(mID)
	m.CooperativeID = id.CooperativeID(cID)
	if dob.Valid {
		t := dob.Time
		m.DateOfBirth = &t
	}
	m.FamilyMembers = []string(family)
	return &m, nil
}
