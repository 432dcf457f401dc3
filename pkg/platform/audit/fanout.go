package audit

import (
	"context"
	"errors"

	id "coopaml/pkg/domain"
)

// Fanout appends each event to every target. The first target is the system
// of record; extra targets (a Kafka sink, a mirror store) best-effort follow.
type Fanout struct {
	targets []Store
}

// NewFanout builds a fan-out over the given stores. At least one is required.
func NewFanout(targets ...Store) *Fanout {
	return &Fanout{targets: targets}
}

// Append delivers the event to all targets. Every target is attempted; their
// errors are joined so one failing sink does not hide the others.
func (f *Fanout) Append(ctx context.Context, event Event) error {
	var errs []error
	for _, t := range f.targets {
		if err := t.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListByCooperative reads from the first target that supports listing.
func (f *Fanout) ListByCooperative(ctx context.Context, coopID id.CooperativeID) ([]Event, error) {
	for _, t := range f.targets {
		if lister, ok := t.(Lister); ok {
			return lister.ListByCooperative(ctx, coopID)
		}
	}
	return nil, nil
}
