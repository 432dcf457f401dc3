package store

import (
	"context"
	"sort"
	"sync"

	"coopaml/internal/whitelist/models"
	id "coopaml/pkg/domain"
)

type coopTriple struct {
	coop   id.CooperativeID
	triple models.Triple
}

// InMemory keeps whitelist entries keyed by their tenant-scoped triple.
type InMemory struct {
	mu      sync.RWMutex
	entries map[coopTriple]*models.Entry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[coopTriple]*models.Entry)}
}

// Add stores the entry unless its triple already exists for the tenant.
// Returns whether a new entry was created; re-adding is a no-op.
func (s *InMemory) Add(_ context.Context, entry *models.Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := coopTriple{coop: entry.CooperativeID, triple: entry.Triple()}
	if _, exists := s.entries[k]; exists {
		return false, nil
	}
	cp := *entry
	s.entries[k] = &cp
	return true, nil
}

// Contains reports whether the triple is whitelisted for the tenant.
func (s *InMemory) Contains(_ context.Context, coopID id.CooperativeID, triple models.Triple) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[coopTriple{coop: coopID, triple: triple}]
	return ok, nil
}

// ListByMember returns the member's whitelist entries, oldest first.
func (s *InMemory) ListByMember(_ context.Context, coopID id.CooperativeID, memberID id.MemberID) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Entry
	for k, entry := range s.entries {
		if k.coop == coopID && entry.MemberID == memberID {
			cp := *entry
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].SanctionID.String() < out[j].SanctionID.String()
	})
	return out, nil
}
