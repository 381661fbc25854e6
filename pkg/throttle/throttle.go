// Package throttle admits at most one attempt per key per window.
package throttle

import (
	"context"
	"time"
)

// Window reports whether an attempt for key may start at now. When it may
// not, last is the time of the attempt that holds the window.
type Window interface {
	Acquire(ctx context.Context, key string, now time.Time) (allowed bool, last time.Time, err error)
}
