//go:build integration

package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformredis "coopaml/internal/platform/redis"
	"coopaml/internal/rescreen/lock"
	"coopaml/pkg/testutil/containers"
)

func TestRedisLocker(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	locker := lock.NewRedis(&platformredis.Client{Client: rc.Client})
	ctx := context.Background()

	reset := func(t *testing.T) {
		t.Helper()
		require.NoError(t, rc.FlushAll(ctx))
	}

	t.Run("first acquire wins, second loses", func(t *testing.T) {
		reset(t)
		ok, err := locker.Acquire(ctx, "rescreen:coop-a:UN", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = locker.Acquire(ctx, "rescreen:coop-a:UN", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("different keys are independent", func(t *testing.T) {
		reset(t)
		ok, err := locker.Acquire(ctx, "rescreen:coop-a:UN", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = locker.Acquire(ctx, "rescreen:coop-a:HOME_MINISTRY", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("release frees the key", func(t *testing.T) {
		reset(t)
		ok, err := locker.Acquire(ctx, "rescreen:coop-a:UN", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, locker.Release(ctx, "rescreen:coop-a:UN"))

		ok, err = locker.Acquire(ctx, "rescreen:coop-a:UN", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("the ttl bounds a crashed holder", func(t *testing.T) {
		reset(t)
		ok, err := locker.Acquire(ctx, "rescreen:coop-a:UN", 100*time.Millisecond)
		require.NoError(t, err)
		require.True(t, ok)

		require.Eventually(t, func() bool {
			ok, err := locker.Acquire(ctx, "rescreen:coop-a:UN", time.Minute)
			return err == nil && ok
		}, 3*time.Second, 50*time.Millisecond)
	})
}
