package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
)

const DefaultCompactThreshold = 10000

// MemoryCache keeps event ids in process memory. Entries are lost on restart,
// which only costs a redundant recalculation.
type MemoryCache struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	window    time.Duration
	threshold int
	clock     quartz.Clock
}

func NewMemoryCache(window time.Duration, threshold int, clock quartz.Clock) *MemoryCache {
	if window <= 0 {
		window = DefaultWindow
	}
	if threshold <= 0 {
		threshold = DefaultCompactThreshold
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &MemoryCache{
		entries:   make(map[string]time.Time),
		window:    window,
		threshold: threshold,
		clock:     clock,
	}
}

func (c *MemoryCache) Seen(_ context.Context, eventID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.entries[eventID]
	if !ok {
		return false, nil
	}
	return c.clock.Now().Sub(ts) < c.window, nil
}

func (c *MemoryCache) Record(_ context.Context, eventID string, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[eventID] = now
	if len(c.entries) > c.threshold {
		c.compactLocked(now)
	}
	return nil
}

// Compact evicts entries older than the window and returns how many were removed.
func (c *MemoryCache) Compact(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compactLocked(now)
}

func (c *MemoryCache) compactLocked(now time.Time) int {
	removed := 0
	for id, ts := range c.entries {
		if now.Sub(ts) >= c.window {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
