package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(ctx)
		client.Close()
	})

	return client
}

func TestAlertDeduplicator_Cooldown(t *testing.T) {
	d := NewAlertDeduplicator(setupTestRedis(t))
	ctx := context.Background()
	key := "checkout_no_subscription:org_1:whl_abc"

	acquired, err := d.TryAcquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, err = d.TryAcquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired, "second claim inside the cooldown")

	remaining, err := d.RemainingCooldown(ctx, key)
	require.NoError(t, err)
	assert.Greater(t, remaining, time.Duration(0))

	require.NoError(t, d.Release(ctx, key))

	remaining, err = d.RemainingCooldown(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	acquired, err = d.TryAcquire(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}
