// Package models defines whitelist entries. A whitelist entry suppresses one
// specific (member, sanction, list) pairing from future screening; it never
// blankets a member across an entire list.
package models

import (
	"time"

	id "coopaml/pkg/domain"
)

// Entry records one suppressed pairing, with the reviewing officer and their
// justification kept for the audit trail.
type Entry struct {
	CooperativeID id.CooperativeID
	MemberID      id.MemberID
	SanctionID    id.SanctionID
	ListType      id.ListType
	AddedBy       string
	Reason        string
	CreatedAt     time.Time
}

// Triple is the identity of an entry within a tenant. Two entries with the
// same triple are the same suppression.
type Triple struct {
	MemberID   id.MemberID
	SanctionID id.SanctionID
	ListType   id.ListType
}

// Triple returns the entry's tenant-scoped identity.
func (e *Entry) Triple() Triple {
	return Triple{MemberID: e.MemberID, SanctionID: e.SanctionID, ListType: e.ListType}
}
