package throttle

import (
	"context"
	"sync"
	"time"
)

const DefaultEvictThreshold = 10000

type MemoryWindow struct {
	mu        sync.Mutex
	last      map[string]time.Time
	period    time.Duration
	threshold int
}

// NewMemoryWindow keeps the last admitted attempt per key. Expired keys are
// swept only once more than threshold keys are held.
func NewMemoryWindow(period time.Duration, threshold int) *MemoryWindow {
	if threshold <= 0 {
		threshold = DefaultEvictThreshold
	}
	return &MemoryWindow{last: make(map[string]time.Time), period: period, threshold: threshold}
}

func (w *MemoryWindow) Acquire(_ context.Context, key string, now time.Time) (bool, time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if last, ok := w.last[key]; ok && now.Sub(last) < w.period {
		return false, last, nil
	}
	w.last[key] = now
	if len(w.last) > w.threshold {
		w.evictLocked(now)
	}
	return true, now, nil
}

// Len reports how many keys are held, expired or not.
func (w *MemoryWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.last)
}

func (w *MemoryWindow) evictLocked(now time.Time) {
	for k, ts := range w.last {
		if now.Sub(ts) >= w.period {
			delete(w.last, k)
		}
	}
}
