package lock

import (
	"context"
	"fmt"
	"time"

	platformredis "coopaml/internal/platform/redis"
)

// Redis is a cross-process Locker backed by SET NX with a TTL. The TTL is the
// crash recovery bound: a holder that dies without releasing frees the key
// when it expires.
type Redis struct {
	client *platformredis.Client
}

func NewRedis(client *platformredis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %q: %w", key, err)
	}
	return ok, nil
}

func (r *Redis) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release lock %q: %w", key, err)
	}
	return nil
}
