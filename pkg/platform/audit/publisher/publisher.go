// Package publisher delivers audit events to a store either synchronously or
// through a buffered channel drained by a background goroutine. Emission must
// never block a compliance operation; when the async buffer is full the event
// is dropped and counted rather than stalling the caller.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	id "coopaml/pkg/domain"
	audit "coopaml/pkg/platform/audit"
	"coopaml/pkg/requestcontext"
)

// Publisher fans audit events into a store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox   chan audit.Event
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous delivery with the
// given channel capacity. Close drains the channel before returning.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

// WithLogger attaches a logger for drop/persist failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher constructs a publisher over the given store. Synchronous by
// default; pass WithAsyncBuffer for buffered background delivery.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit delivers one event. In async mode a full buffer drops the event; the
// caller's operation is never delayed by audit delivery.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ActorID == "" {
		event.ActorID = requestcontext.ActorID(ctx)
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	// The read lock covers the whole send so Close cannot close the inbox
	// between the closed check and the channel write.
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil
	}
	select {
	case p.inbox <- event:
	default:
		p.dropped.Add(1)
		if p.logger != nil {
			p.logger.Warn("audit buffer full, event dropped",
				"action", event.Action,
				"cooperative_id", event.CooperativeID,
			)
		}
	}
	return nil
}

// List reads back events for a cooperative when the underlying store supports
// it.
func (p *Publisher) List(ctx context.Context, coopID id.CooperativeID) ([]audit.Event, error) {
	lister, ok := p.store.(audit.Lister)
	if !ok {
		return nil, nil
	}
	return lister.ListByCooperative(ctx, coopID)
}

// Dropped reports how many events were discarded due to a full buffer.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close stops accepting events and drains any buffered ones.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		// Delivery context is detached from the request on purpose: the
		// request may be long gone by the time the event is persisted.
		if err := p.store.Append(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"action", event.Action,
				"error", err,
			)
		}
	}
}
