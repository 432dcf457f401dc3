// Package models holds the read-side member shapes the engine screens
// against. Members and KYC records are owned by the member subsystem; the
// engine never mutates them.
package models

import (
	"time"

	id "coopaml/pkg/domain"
)

// Member is the screening view of a cooperative member.
type Member struct {
	ID            id.MemberID
	CooperativeID id.CooperativeID
	FirstName     string
	LastName      string
	DateOfBirth   *time.Time
	Active        bool
	// FamilyMembers lists household member names from the member's profile.
	// They are screened as aliases of the member to catch registrations under
	// a relative's or misspelled name.
	FamilyMembers []string
}

// FullName returns the member's display name.
func (m *Member) FullName() string {
	if m.FirstName == "" {
		return m.LastName
	}
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

// KYCRecord is the subset of a member's KYC profile used for screening.
type KYCRecord struct {
	MemberID      id.MemberID
	CooperativeID id.CooperativeID
	NationalID    string
	Nationality   string
}
