package store

import (
	"context"
	"sort"
	"sync"

	"coopaml/internal/amlcase/models"
	id "coopaml/pkg/domain"
	"coopaml/pkg/platform/sentinel"
)

// InMemory keeps cases with the same conditional-update semantics the
// postgres store enforces with predicated UPDATEs.
type InMemory struct {
	mu    sync.RWMutex
	cases map[id.CaseID]*models.Case
}

func NewInMemory() *InMemory {
	return &InMemory{cases: make(map[id.CaseID]*models.Case)}
}

func (s *InMemory) Create(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.cases[c.ID] = &cp
	return nil
}

// FindByID returns the case, or sentinel.ErrNotFound when absent or
// cross-tenant.
func (s *InMemory) FindByID(_ context.Context, coopID id.CooperativeID, caseID id.CaseID) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[caseID]
	if !ok || c.CooperativeID != coopID {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// CloseIfOpen applies the closed state only while the stored case is still
// open. Returns sentinel.ErrInvalidState when the transition raced a close.
func (s *InMemory) CloseIfOpen(_ context.Context, coopID id.CooperativeID, closed *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.cases[closed.ID]
	if !ok || current.CooperativeID != coopID {
		return sentinel.ErrNotFound
	}
	if current.Status != models.CaseStatusOpen {
		return sentinel.ErrInvalidState
	}
	cp := *closed
	s.cases[closed.ID] = &cp
	return nil
}

// RecordReportPathIfOpen stores the STR artifact location; the case must
// still be open.
func (s *InMemory) RecordReportPathIfOpen(_ context.Context, coopID id.CooperativeID, caseID id.CaseID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.cases[caseID]
	if !ok || current.CooperativeID != coopID {
		return sentinel.ErrNotFound
	}
	if current.Status != models.CaseStatusOpen {
		return sentinel.ErrInvalidState
	}
	current.ReportPath = path
	return nil
}

// List returns a page of the tenant's cases plus the unpaginated total,
// newest first.
func (s *InMemory) List(_ context.Context, coopID id.CooperativeID, filter models.ListFilter) ([]*models.Case, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*models.Case
	for _, c := range s.cases {
		if c.CooperativeID != coopID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		cp := *c
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	total := len(all)
	if filter.Offset >= total {
		return nil, total, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, total, nil
}
