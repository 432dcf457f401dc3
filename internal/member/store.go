// Package member exposes read-only access to member and KYC records.
// The member subsystem owns these entities; the compliance engine only reads.
package member

import (
	"context"

	"coopaml/internal/member/models"
	id "coopaml/pkg/domain"
)

// Store is the read port the screening orchestrator depends on. All lookups
// are tenant-scoped; a member belonging to another cooperative is
// indistinguishable from a missing one (sentinel.ErrNotFound).
type Store interface {
	// FindByID returns the member, or sentinel.ErrNotFound when absent or
	// cross-tenant.
	FindByID(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID) (*models.Member, error)

	// ListActive returns all active members of the cooperative, in stable
	// order. The batch rescreen iterates this.
	ListActive(ctx context.Context, coopID id.CooperativeID) ([]*models.Member, error)

	// FindKYC returns the member's KYC record, or sentinel.ErrNotFound when
	// the member has none. Screening treats a missing KYC record as "no
	// national ID available", not as an error.
	FindKYC(ctx context.Context, coopID id.CooperativeID, memberID id.MemberID) (*models.KYCRecord, error)
}
