package memory

import (
	"context"
	"sync"

	id "coopaml/pkg/domain"
	audit "coopaml/pkg/platform/audit"
)

// InMemoryStore keeps audit events per cooperative. Test and dev use only.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.CooperativeID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.CooperativeID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.CooperativeID][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.CooperativeID] = append(s.events[event.CooperativeID], event)
	return nil
}

func (s *InMemoryStore) ListByCooperative(_ context.Context, coopID id.CooperativeID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[coopID]...), nil
}

// ListAll returns all audit events across cooperatives (admin-only operation).
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []audit.Event
	for _, coopEvents := range s.events {
		all = append(all, coopEvents...)
	}
	return all, nil
}
