package idempotency

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares processed event ids between instances. Expiry is left to
// the key TTL, so no compaction is needed.
type RedisCache struct {
	client *redis.Client
	prefix string
	window time.Duration
}

func NewRedisCache(client *redis.Client, prefix string, window time.Duration) *RedisCache {
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisCache{client: client, prefix: prefix, window: window}
}

func (c *RedisCache) key(eventID string) string {
	return fmt.Sprintf("%s:webhook:event:%s", c.prefix, eventID)
}

func (c *RedisCache) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency: exists %s: %w", eventID, err)
	}
	return n > 0, nil
}

func (c *RedisCache) Record(ctx context.Context, eventID string, now time.Time) error {
	err := c.client.Set(ctx, c.key(eventID), strconv.FormatInt(now.Unix(), 10), c.window).Err()
	if err != nil {
		return fmt.Errorf("idempotency: record %s: %w", eventID, err)
	}
	return nil
}
