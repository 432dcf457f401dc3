// Package lock provides the run-lock the rescreen scheduler uses to keep at
// most one batch per (cooperative, list) running at a time.
package lock

import (
	"context"
	"time"
)

// Locker is a best-effort mutual-exclusion primitive. Acquire returns false
// when another holder owns the key; the TTL bounds how long a crashed holder
// can block new runs.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}
