// Package models defines AML cases. A case is an officer-owned investigation
// opened from a flag or manually; its lifecycle is open → closed, one way,
// with no reopen.
package models

import (
	"time"

	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
)

// CaseType classifies the investigation.
type CaseType string

const (
	CaseTypeSTR               CaseType = "STR"
	CaseTypeSuspiciousAttempt CaseType = "SUSPICIOUS_ATTEMPT"
	CaseTypeHighRisk          CaseType = "HIGH_RISK"
)

// ParseCaseType validates a case type from transport input.
func ParseCaseType(s string) (CaseType, error) {
	switch CaseType(s) {
	case CaseTypeSTR, CaseTypeSuspiciousAttempt, CaseTypeHighRisk:
		return CaseType(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown case type %q", s)
	}
}

// CaseStatus is the case lifecycle state.
type CaseStatus string

const (
	CaseStatusOpen   CaseStatus = "open"
	CaseStatusClosed CaseStatus = "closed"
)

// Case is one AML investigation. Multiple cases may be open for the same
// member at once; concurrent investigation types are allowed.
type Case struct {
	ID            id.CaseID
	CooperativeID id.CooperativeID
	MemberID      id.MemberID
	Type          CaseType
	Status        CaseStatus
	Notes         string
	CreatedAt     time.Time
	ClosedAt      *time.Time
	// ReportPath is set once an STR artifact has been generated for the case.
	ReportPath string
}

// ListFilter narrows case listings. Zero values mean "any".
type ListFilter struct {
	Status CaseStatus
	Type   CaseType
	Offset int
	Limit  int
}

// CanClose reports whether the case may transition to closed.
func (c *Case) CanClose() error {
	if c.Status != CaseStatusOpen {
		return dErrors.Newf(dErrors.CodeInvalidState, "case is %s, only open cases can be closed", c.Status)
	}
	return nil
}

// ApplyClose transitions the case to closed. The store enforces the same
// predicate conditionally on write.
func (c *Case) ApplyClose(now time.Time) {
	c.Status = CaseStatusClosed
	c.ClosedAt = &now
}

// CanGenerateSTR reports whether an STR artifact may be produced: the case
// must still be open and must be an STR investigation. Generation does not
// close the case; the officer closes it after filing.
func (c *Case) CanGenerateSTR() error {
	if c.Status != CaseStatusOpen {
		return dErrors.Newf(dErrors.CodeInvalidState, "case is %s, STR generation requires an open case", c.Status)
	}
	if c.Type != CaseTypeSTR {
		return dErrors.Newf(dErrors.CodeInvalidState, "case type is %s, STR generation requires an STR case", c.Type)
	}
	return nil
}
