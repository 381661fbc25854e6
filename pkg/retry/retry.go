// Package retry runs a unit of work with bounded attempts, exponential
// backoff and an overall wall-clock budget.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy parameterizes a Controller.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	Multiplier      float64
	// Budget bounds the whole run including waits. Zero disables it.
	Budget time.Duration
	// Retryable decides whether a failed attempt may be repeated. Nil retries everything.
	Retryable func(error) bool
}

// DefaultPolicy waits 1s then 2s between three attempts within 30s.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		Multiplier:      2,
		Budget:          30 * time.Second,
		Retryable:       retryable,
	}
}

// Outcome describes a finished run.
type Outcome struct {
	Attempts int
	Delays   []time.Duration
	Elapsed  time.Duration
	Err      error
	TimedOut bool
}

func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// TotalDelay is the sum of the backoff waits between attempts.
func (o Outcome) TotalDelay() time.Duration {
	var total time.Duration
	for _, d := range o.Delays {
		total += d
	}
	return total
}

type Controller struct {
	policy Policy
	timer  backoff.Timer
	now    func() time.Time
}

func NewController(policy Policy) *Controller {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier <= 0 {
		policy.Multiplier = 2
	}
	return &Controller{policy: policy, now: time.Now}
}

func (c *Controller) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.policy.InitialInterval
	eb.Multiplier = c.policy.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxInterval = c.policy.InitialInterval << uint(c.policy.MaxAttempts)
	eb.MaxElapsedTime = 0
	eb.Reset()
	return backoff.WithMaxRetries(eb, uint64(c.policy.MaxAttempts-1))
}

// Do runs op until it succeeds, fails permanently, runs out of attempts or
// exceeds the budget. op receives the budget-bound context.
func (c *Controller) Do(ctx context.Context, op func(ctx context.Context) error) Outcome {
	start := c.now()

	var budget context.Context
	if c.policy.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.Budget)
		defer cancel()
		budget = ctx
	}

	var out Outcome
	operation := func() error {
		out.Attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if c.policy.Retryable != nil && !c.policy.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(_ error, wait time.Duration) {
		out.Delays = append(out.Delays, wait)
	}

	b := backoff.WithContext(c.newBackOff(), ctx)
	out.Err = backoff.RetryNotifyWithTimer(operation, b, notify, c.timer)
	out.Elapsed = c.now().Sub(start)
	// a per-call deadline inside op is not the budget running out
	out.TimedOut = out.Err != nil && budget != nil && errors.Is(budget.Err(), context.DeadlineExceeded)

	return out
}
