package store

import (
	"context"
	"sort"
	"sync"

	"coopaml/internal/screening/models"
	id "coopaml/pkg/domain"
	"coopaml/pkg/platform/sentinel"
)

type pendingKey struct {
	coop     id.CooperativeID
	member   id.MemberID
	sanction id.SanctionID
	list     id.ListType
}

// InMemory keeps flags with the same pending-uniqueness guarantee the
// postgres store enforces with a partial unique index.
type InMemory struct {
	mu      sync.RWMutex
	flags   map[id.FlagID]*models.Flag
	pending map[pendingKey]id.FlagID
}

func NewInMemory() *InMemory {
	return &InMemory{
		flags:   make(map[id.FlagID]*models.Flag),
		pending: make(map[pendingKey]id.FlagID),
	}
}

func flagKey(f *models.Flag) pendingKey {
	return pendingKey{
		coop:     f.CooperativeID,
		member:   f.MemberID,
		sanction: f.Details.SanctionID,
		list:     f.Details.ListType,
	}
}

// CreateIfAbsent persists the flag unless a pending flag for the same
// (member, sanction, list) pairing already exists, in which case it returns
// sentinel.ErrAlreadyUsed. Resolved flags do not block a fresh one.
func (s *InMemory) CreateIfAbsent(_ context.Context, flag *models.Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := flagKey(flag)
	if _, exists := s.pending[k]; exists {
		return sentinel.ErrAlreadyUsed
	}
	cp := *flag
	s.flags[flag.ID] = &cp
	s.pending[k] = flag.ID
	return nil
}

// FindByID returns the flag, or sentinel.ErrNotFound when absent or
// cross-tenant.
func (s *InMemory) FindByID(_ context.Context, coopID id.CooperativeID, flagID id.FlagID) (*models.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flag, ok := s.flags[flagID]
	if !ok || flag.CooperativeID != coopID {
		return nil, sentinel.ErrNotFound
	}
	cp := *flag
	return &cp, nil
}

// ResolveIfPending applies the resolved state only when the stored flag is
// still pending. Returns sentinel.ErrNotFound when absent or cross-tenant,
// sentinel.ErrInvalidState when the flag is no longer pending.
func (s *InMemory) ResolveIfPending(_ context.Context, coopID id.CooperativeID, resolved *models.Flag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.flags[resolved.ID]
	if !ok || current.CooperativeID != coopID {
		return sentinel.ErrNotFound
	}
	if current.Status != models.FlagStatusPending {
		return sentinel.ErrInvalidState
	}
	cp := *resolved
	s.flags[resolved.ID] = &cp
	delete(s.pending, flagKey(current))
	return nil
}

// ListByCooperative returns the tenant's flags, optionally filtered by
// status, newest first.
func (s *InMemory) ListByCooperative(_ context.Context, coopID id.CooperativeID, status models.FlagStatus) ([]*models.Flag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Flag
	for _, flag := range s.flags {
		if flag.CooperativeID != coopID {
			continue
		}
		if status != "" && flag.Status != status {
			continue
		}
		cp := *flag
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
