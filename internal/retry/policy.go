// Package retry implements the exponential-backoff retry policy every
// connector REST call runs through, in the style the teacher wraps errors
// with %w through makeRequest.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Policy configures retry behavior for a single logical operation.
type Policy struct {
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Exponential  bool
	JitterFactor float64
}

// Named presets mirrored from the venue client defaults.
var (
	DefaultPolicy = Policy{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second, Exponential: true, JitterFactor: 0.1}
	Aggressive    = Policy{MaxRetries: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 60 * time.Second, Exponential: true, JitterFactor: 0.2}
	Conservative  = Policy{MaxRetries: 2, BaseDelay: 2 * time.Second, MaxDelay: 15 * time.Second, Exponential: true, JitterFactor: 0.1}
	None          = Policy{MaxRetries: 0}
)

// Retryable is implemented by errors that know whether a retry is worth
// attempting (see common.ConnectionError).
type Retryable interface {
	IsRetryable() bool
}

// Delay computes the backoff delay before attempt n (0-indexed: the delay
// before the first retry, i.e. after the initial attempt failed, is Delay(0)).
func (p Policy) Delay(attempt int) time.Duration {
	var base time.Duration
	if p.Exponential {
		base = time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attempt)))
	} else {
		base = p.BaseDelay
	}
	if base > p.MaxDelay && p.MaxDelay > 0 {
		base = p.MaxDelay
	}

	if p.JitterFactor <= 0 {
		return base
	}
	jitter := 1 + (rand.Float64()*2-1)*p.JitterFactor
	if jitter < 0 {
		jitter = 0
	}
	return time.Duration(float64(base) * jitter)
}

// shouldRetry reports whether err warrants another attempt. Errors that do
// not implement Retryable are treated as non-retryable.
func shouldRetry(err error) bool {
	var r Retryable
	if errors.As(err, &r) {
		return r.IsRetryable()
	}
	return false
}

// Execute runs fn, retrying according to p on retryable errors until
// MaxRetries is exhausted, ctx is done, or fn succeeds.
func Execute(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == p.MaxRetries || !shouldRetry(lastErr) {
			return lastErr
		}

		delay := p.Delay(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("retry: exhausted %d attempts: %w", p.MaxRetries, lastErr)
}
