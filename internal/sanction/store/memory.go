package store

import (
	"context"
	"sort"
	"sync"

	"coopaml/internal/sanction/models"
	id "coopaml/pkg/domain"
)

type coopListKey struct {
	coop id.CooperativeID
	key  string
}

// InMemory keeps sanction records keyed by (cooperative, synthetic key). The
// synthetic key embeds the list type, so the same identity on both lists is
// two independent records.
type InMemory struct {
	mu      sync.RWMutex
	records map[coopListKey]*models.SanctionRecord
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[coopListKey]*models.SanctionRecord)}
}

// Upsert inserts or replaces the record identified by its synthetic key.
// Returns true when a new record was created.
func (s *InMemory) Upsert(_ context.Context, rec *models.SanctionRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := coopListKey{coop: rec.CooperativeID, key: rec.Key}
	existing, ok := s.records[k]
	cp := *rec
	if ok {
		// Re-import keeps the original ID so whitelist entries and flag
		// details continue to reference the same sanction.
		cp.ID = existing.ID
	}
	s.records[k] = &cp
	return !ok, nil
}

// ListByCooperative returns every sanction record for the tenant, both lists,
// in stable order.
func (s *InMemory) ListByCooperative(_ context.Context, coopID id.CooperativeID) ([]*models.SanctionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.SanctionRecord
	for k, rec := range s.records {
		if k.coop == coopID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}
