// Package models defines AML flags. A flag records one scored hit of a member
// against a sanction record; a compliance officer resolves it, optionally
// escalating to a case first.
package models

import (
	"time"

	id "coopaml/pkg/domain"
	dErrors "coopaml/pkg/domain-errors"
)

// FlagType classifies the flag.
type FlagType string

const (
	FlagTypeHighRisk FlagType = "HIGH_RISK"
)

// FlagStatus is the flag lifecycle state. pending → resolved, one way.
type FlagStatus string

const (
	FlagStatusPending  FlagStatus = "pending"
	FlagStatusResolved FlagStatus = "resolved"
)

// MatchDetails is the typed match metadata carried on a flag. Modeled as a
// struct, not an open JSON map, so the fields are statically checked.
type MatchDetails struct {
	ListType   id.ListType   `json:"list_type"`
	SanctionID id.SanctionID `json:"sanction_id"`
	Score      int           `json:"score"`
}

// Flag is one persisted screening hit awaiting officer review.
type Flag struct {
	ID            id.FlagID
	CooperativeID id.CooperativeID
	MemberID      id.MemberID
	Type          FlagType
	Details       MatchDetails
	Status        FlagStatus
	CreatedAt     time.Time
	ResolvedAt    *time.Time
	Resolution    string
}

// CanResolve reports whether the flag may transition to resolved.
func (f *Flag) CanResolve() error {
	if f.Status != FlagStatusPending {
		return dErrors.Newf(dErrors.CodeInvalidState, "flag is %s, only pending flags can be resolved", f.Status)
	}
	return nil
}

// ApplyResolve transitions the flag to resolved. Callers must have checked
// CanResolve; the store enforces the same predicate conditionally on write.
func (f *Flag) ApplyResolve(resolution string, now time.Time) {
	f.Status = FlagStatusResolved
	f.Resolution = resolution
	f.ResolvedAt = &now
}
