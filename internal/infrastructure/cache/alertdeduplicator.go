package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const alertKeyPrefix = "billing:alert:"

// AlertDeduplicator keeps one cooldown key per alerted finding so a scheduled
// scan does not mail the same finding on every run.
type AlertDeduplicator struct {
	client *redis.Client
}

func NewAlertDeduplicator(client *redis.Client) *AlertDeduplicator {
	return &AlertDeduplicator{client: client}
}

func (d *AlertDeduplicator) buildKey(key string) string {
	return alertKeyPrefix + key
}

// TryAcquire atomically claims the cooldown for key. It returns false while
// an earlier claim is still live.
func (d *AlertDeduplicator) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := d.client.SetNX(ctx, d.buildKey(key), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire alert lock: %w", err)
	}
	return acquired, nil
}

// Release drops the cooldown, used when the alert could not be delivered.
func (d *AlertDeduplicator) Release(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, d.buildKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to release alert lock: %w", err)
	}
	return nil
}

// RemainingCooldown returns 0 when key is not in cooldown.
func (d *AlertDeduplicator) RemainingCooldown(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := d.client.TTL(ctx, d.buildKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get cooldown: %w", err)
	}
	// -2 when the key is missing, -1 without expiry
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
