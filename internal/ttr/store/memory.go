package store

import (
	"context"
	"sort"
	"sync"

	"coopaml/internal/ttr/models"
	id "coopaml/pkg/domain"
	"coopaml/pkg/platform/sentinel"
)

// InMemory keeps TTRs with the same conditional-update semantics the postgres
// store enforces with predicated UPDATEs.
type InMemory struct {
	mu      sync.RWMutex
	reports map[id.ReportID]*models.Report
}

func NewInMemory() *InMemory {
	return &InMemory{reports: make(map[id.ReportID]*models.Report)}
}

func (s *InMemory) Create(_ context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reports[r.ID] = &cp
	return nil
}

// FindByID returns the report, or sentinel.ErrNotFound when absent or
// cross-tenant.
func (s *InMemory) FindByID(_ context.Context, coopID id.CooperativeID, reportID id.ReportID) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[reportID]
	if !ok || r.CooperativeID != coopID {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// TransitionIfPending applies a terminal state only while the stored report
// is still pending.
func (s *InMemory) TransitionIfPending(_ context.Context, coopID id.CooperativeID, updated *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.reports[updated.ID]
	if !ok || current.CooperativeID != coopID {
		return sentinel.ErrNotFound
	}
	if current.Status != models.ReportStatusPending {
		return sentinel.ErrInvalidState
	}
	cp := *updated
	s.reports[updated.ID] = &cp
	return nil
}

// SetXMLPathIfPending records the XML artifact location without touching
// status; the report must still be pending.
func (s *InMemory) SetXMLPathIfPending(_ context.Context, coopID id.CooperativeID, reportID id.ReportID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.reports[reportID]
	if !ok || current.CooperativeID != coopID {
		return sentinel.ErrNotFound
	}
	if current.Status != models.ReportStatusPending {
		return sentinel.ErrInvalidState
	}
	current.XMLPath = path
	return nil
}

// List returns a page of the tenant's reports plus the unpaginated total,
// newest reported day first.
func (s *InMemory) List(_ context.Context, coopID id.CooperativeID, filter models.ListFilter) ([]*models.Report, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*models.Report
	for _, r := range s.reports {
		if r.CooperativeID != coopID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && r.ForDate.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && r.ForDate.After(filter.To) {
			continue
		}
		cp := *r
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].ForDate.Equal(all[j].ForDate) {
			return all[i].ForDate.After(all[j].ForDate)
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
