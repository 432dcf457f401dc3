package audit

import (
	"context"

	id "coopaml/pkg/domain"
)

// Store persists audit events. Implementations: in-memory (tests, dev),
// PostgreSQL outbox (production persistence), Kafka sink (streaming).
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister is implemented by stores that support reading events back, scoped by
// cooperative. The Kafka sink is append-only and does not implement it.
type Lister interface {
	ListByCooperative(ctx context.Context, coopID id.CooperativeID) ([]Event, error)
}
