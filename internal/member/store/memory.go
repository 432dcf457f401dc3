package store

import (
	"context"
	"sort"
	"sync"

	"coopaml/internal/member/models"
	id "coopaml/pkg/domain"
	"coopaml/pkg/platform/sentinel"
)

// InMemory is a read store seeded by tests and the dev server. It mimics the
// member subsystem's query surface without owning any lifecycle.
type InMemory struct {
	mu      sync.RWMutex
	members map[id.MemberID]*models.Member
	kyc     map[id.MemberID]*models.KYCRecord
}

func NewInMemory() *InMemory {
	return &InMemory{
		members: make(map[id.MemberID]*models.Member),
		kyc:     make(map[id.MemberID]*models.KYCRecord),
	}
}

// Seed registers a member (and optionally its KYC record) for lookups.
func (s *InMemory) Seed(m *models.Member, kyc *models.KYCRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.members[m.ID] = &cp
	if kyc != nil {
		kcp := *kyc
		s.kyc[m.ID] = &kcp
	}
}

func (s *InMemory) FindByID(_ context.Context, coopID id.CooperativeID, memberID id.MemberID) (*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberID]
	if !ok || m.CooperativeID != coopID {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *InMemory) ListActive(_ context.Context, coopID id.CooperativeID) ([]*models.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Member
	for _, m := range s.members {
		if m.CooperativeID == coopID && m.Active {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *InMemory) FindKYC(_ context.Context, coopID id.CooperativeID, memberID id.MemberID) (*models.KYCRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.kyc[memberID]
	if !ok || k.CooperativeID != coopID {
		return nil, sentinel.ErrNotFound
	}
	cp := *k
	return &cp, nil
}
