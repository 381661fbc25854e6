// Package idempotency remembers processed webhook event ids for a fixed window.
package idempotency

import (
	"context"
	"time"
)

// DefaultWindow is how long a processed event id is recognized as a duplicate.
const DefaultWindow = 24 * time.Hour

// Cache is a time-windowed set of processed event ids.
type Cache interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, eventID string, now time.Time) error
}
