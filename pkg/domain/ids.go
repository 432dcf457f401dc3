// Package domain holds typed identifiers and shared enums for the compliance
// engine. Typed IDs prevent cross-entity assignment at compile time; parse
// helpers enforce the trust boundary invariant that IDs are valid, non-nil
// UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "coopaml/pkg/domain-errors"
)

// CooperativeID identifies a tenant. Every store call is scoped by it.
type CooperativeID uuid.UUID

// MemberID identifies a cooperative member (owned by the member subsystem;
// the engine only reads members).
type MemberID uuid.UUID

// SanctionID identifies a sanction record in the watchlist store.
type SanctionID uuid.UUID

// FlagID identifies an AML flag raised by screening.
type FlagID uuid.UUID

// CaseID identifies an AML case.
type CaseID uuid.UUID

// ReportID identifies a threshold transaction report.
type ReportID uuid.UUID

func (id CooperativeID) String() string { return uuid.UUID(id).String() }
func (id MemberID) String() string      { return uuid.UUID(id).String() }
func (id SanctionID) String() string    { return uuid.UUID(id).String() }
func (id FlagID) String() string        { return uuid.UUID(id).String() }
func (id CaseID) String() string        { return uuid.UUID(id).String() }
func (id ReportID) String() string      { return uuid.UUID(id).String() }

func (id CooperativeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MemberID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id SanctionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id FlagID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id CaseID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ReportID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// Typed IDs travel as their canonical UUID string on the wire.

func (id CooperativeID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id MemberID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id SanctionID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id FlagID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id CaseID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id ReportID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }

func (id *CooperativeID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *MemberID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SanctionID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *FlagID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CaseID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ReportID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }

// ParseCooperativeID parses a cooperative ID from its string form.
func ParseCooperativeID(s string) (CooperativeID, error) {
	u, err := parseUUID(s, "cooperative id")
	return CooperativeID(u), err
}

// ParseMemberID parses a member ID from its string form.
func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID(s, "member id")
	return MemberID(u), err
}

// ParseSanctionID parses a sanction ID from its string form.
func ParseSanctionID(s string) (SanctionID, error) {
	u, err := parseUUID(s, "sanction id")
	return SanctionID(u), err
}

// ParseFlagID parses a flag ID from its string form.
func ParseFlagID(s string) (FlagID, error) {
	u, err := parseUUID(s, "flag id")
	return FlagID(u), err
}

// ParseCaseID parses a case ID from its string form.
func ParseCaseID(s string) (CaseID, error) {
	u, err := parseUUID(s, "case id")
	return CaseID(u), err
}

// ParseReportID parses a TTR report ID from its string form.
func ParseReportID(s string) (ReportID, error) {
	u, err := parseUUID(s, "report id")
	return ReportID(u), err
}

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", kind)
	}
	return u, nil
}
