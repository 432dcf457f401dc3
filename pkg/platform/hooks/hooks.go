// Package hooks provides a typed, priority-ordered dispatch table for
// lifecycle side-effects (audit trails, notifications).
//
// Handlers register against an (entity kind, lifecycle phase) key and run in
// ascending priority order, ties broken by registration order. The table is
// static after wiring: register everything at startup, then dispatch.
package hooks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	id "coopaml/pkg/domain"
)

// EntityKind names the aggregate a lifecycle event belongs to.
type EntityKind string

const (
	KindFlag      EntityKind = "flag"
	KindCase      EntityKind = "case"
	KindTTR       EntityKind = "ttr"
	KindSanction  EntityKind = "sanction"
	KindWhitelist EntityKind = "whitelist"
	KindRescreen  EntityKind = "rescreen"
)

// Phase names the lifecycle moment being announced.
type Phase string

const (
	PhaseCreated   Phase = "created"
	PhaseResolved  Phase = "resolved"
	PhaseClosed    Phase = "closed"
	PhaseApproved  Phase = "approved"
	PhaseRejected  Phase = "rejected"
	PhaseExported  Phase = "exported"
	PhaseImported  Phase = "imported"
	PhaseCompleted Phase = "completed"
)

// Event carries the facts of a lifecycle transition. Fields beyond the key
// are optional; handlers must tolerate zero values.
type Event struct {
	Kind          EntityKind
	Phase         Phase
	At            time.Time
	CooperativeID id.CooperativeID
	MemberID      id.MemberID
	// EntityID is the string form of the affected aggregate's ID
	// (flag, case, report, or sanction ID depending on Kind).
	EntityID string
	// Detail is a short human-readable qualifier (list type, score, remarks).
	Detail string
	// RequestID correlates the event with the triggering request, when any.
	RequestID string
	ActorID   string
}

// Handler reacts to a dispatched event. Errors are collected, not short-circuited:
// one misbehaving sink must not suppress the others.
type Handler func(ctx context.Context, ev Event) error

type registration struct {
	priority int
	seq      int
	fn       Handler
}

type key struct {
	kind  EntityKind
	phase Phase
}

// Dispatcher is the typed hook table. Safe for concurrent Dispatch after
// registration is complete.
type Dispatcher struct {
	mu  sync.RWMutex
	seq int
	tbl map[key][]registration
}

// NewDispatcher creates an empty dispatch table.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{tbl: make(map[key][]registration)}
}

// Register adds a handler for the (kind, phase) key at the given priority.
// Lower priorities run first; equal priorities run in registration order.
func (d *Dispatcher) Register(kind EntityKind, phase Phase, priority int, fn Handler) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	k := key{kind: kind, phase: phase}
	regs := append(d.tbl[k], registration{priority: priority, seq: d.seq, fn: fn})
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority < regs[j].priority
		}
		return regs[i].seq < regs[j].seq
	})
	d.tbl[k] = regs
}

// Dispatch runs every handler registered for the event's (kind, phase) key in
// priority order. All handlers run; their errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	d.mu.RLock()
	regs := d.tbl[key{kind: ev.Kind, phase: ev.Phase}]
	d.mu.RUnlock()

	var errs []error
	for _, reg := range regs {
		if err := reg.fn(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
