package throttle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindow holds the window in a key with NX + TTL so every instance sees it.
type RedisWindow struct {
	client *redis.Client
	prefix string
	period time.Duration
}

func NewRedisWindow(client *redis.Client, prefix string, period time.Duration) *RedisWindow {
	return &RedisWindow{client: client, prefix: prefix, period: period}
}

func (w *RedisWindow) Acquire(ctx context.Context, key string, now time.Time) (bool, time.Time, error) {
	redisKey := fmt.Sprintf("%s:throttle:%s", w.prefix, key)

	ok, err := w.client.SetNX(ctx, redisKey, strconv.FormatInt(now.UnixMilli(), 10), w.period).Result()
	if err != nil {
		return false, time.Time{}, fmt.Errorf("throttle: setnx %s: %w", key, err)
	}
	if ok {
		return true, now, nil
	}

	raw, err := w.client.Get(ctx, redisKey).Result()
	if errors.Is(err, redis.Nil) {
		// expired between the two calls
		return w.Acquire(ctx, key, now)
	}
	if err != nil {
		return false, time.Time{}, fmt.Errorf("throttle: get %s: %w", key, err)
	}

	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, time.Time{}, fmt.Errorf("throttle: corrupt value for %s: %w", key, err)
	}
	return false, time.UnixMilli(ms).UTC(), nil
}
