// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; transport handlers read them to build explicit
// service arguments. Services and stores never read the cooperative scope from
// context directly; tenant isolation is enforced by an explicit CooperativeID
// parameter on every call. The accessors here exist for the transport layer
// and for audit enrichment only.
package requestcontext

import (
	"context"
	"time"

	id "coopaml/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	cooperativeIDKey struct{}
	actorIDKey       struct{}
	requestIDKey     struct{}
	requestTimeKey   struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyCooperativeID = cooperativeIDKey{}
	ContextKeyActorID       = actorIDKey{}
	ContextKeyRequestID     = requestIDKey{}
	ContextKeyRequestTime   = requestTimeKey{}
)

// CooperativeID retrieves the authenticated tenant scope from the context.
// Returns the zero value (nil UUID) if not set.
func CooperativeID(ctx context.Context) id.CooperativeID {
	if coopID, ok := ctx.Value(ContextKeyCooperativeID).(id.CooperativeID); ok {
		return coopID
	}
	return id.CooperativeID{}
}

// WithCooperativeID injects a tenant scope into the context.
func WithCooperativeID(ctx context.Context, coopID id.CooperativeID) context.Context {
	return context.WithValue(ctx, ContextKeyCooperativeID, coopID)
}

// ActorID retrieves the acting compliance officer identifier from the context.
func ActorID(ctx context.Context) string {
	if actor, ok := ctx.Value(ContextKeyActorID).(string); ok {
		return actor
	}
	return ""
}

// WithActorID injects an acting officer identifier into the context.
func WithActorID(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ContextKeyActorID, actor)
}

// RequestID retrieves the request correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (batch rescreens, tests, CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests and for batch jobs that need one consistent timestamp per run.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
