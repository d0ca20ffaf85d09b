// Package ratelimit implements the token-bucket rate limiter that gates
// every outbound request a connector makes, generalizing the teacher's
// fixed-window Allow() into a fractional-refill bucket with blocking
// acquisition, per-endpoint buckets and usage metrics.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket: a global bucket plus, when configured, one
// bucket per endpoint. Acquire blocks until enough tokens are available or
// ctx is done; TryAcquire never blocks.
type Limiter struct {
	mu sync.Mutex

	ratePerSecond float64
	burstCapacity float64
	perEndpoint   bool

	global   *bucket
	byEndpoint map[string]*bucket

	totalRequests    uint64
	rejectedRequests uint64
	totalWait        time.Duration
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// Metrics is a point-in-time snapshot of limiter usage.
type Metrics struct {
	TotalRequests    uint64
	RejectedRequests uint64
	TotalWaitTime    time.Duration
	AverageWaitTime  time.Duration
	RejectionRate    float64
}

// New creates a Limiter. ratePerSecond tokens refill the bucket every
// second, up to burstCapacity. When perEndpoint is true, Acquire/TryAcquire
// maintain one bucket per distinct endpoint key in addition to consuming
// from the shared global bucket — a request must clear both.
func New(ratePerSecond, burstCapacity float64, perEndpoint bool) *Limiter {
	now := time.Now()
	return &Limiter{
		ratePerSecond: ratePerSecond,
		burstCapacity: burstCapacity,
		perEndpoint:   perEndpoint,
		global:        &bucket{tokens: burstCapacity, lastRefill: now},
		byEndpoint:    make(map[string]*bucket),
	}
}

func (l *Limiter) refill(b *bucket, now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed * l.ratePerSecond
	if b.tokens > l.burstCapacity {
		b.tokens = l.burstCapacity
	}
	b.lastRefill = now
}

func (l *Limiter) endpointBucket(endpoint string, now time.Time) *bucket {
	b, ok := l.byEndpoint[endpoint]
	if !ok {
		b = &bucket{tokens: l.burstCapacity, lastRefill: now}
		l.byEndpoint[endpoint] = b
	}
	return b
}

// AvailableTokens reports the current token count for an endpoint (or the
// global bucket, when per-endpoint buckets are disabled or endpoint is "").
func (l *Limiter) AvailableTokens(endpoint string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.refill(l.global, now)
	if !l.perEndpoint || endpoint == "" {
		return l.global.tokens
	}
	b := l.endpointBucket(endpoint, now)
	l.refill(b, now)
	if b.tokens < l.global.tokens {
		return b.tokens
	}
	return l.global.tokens
}

// TryAcquire attempts to consume weight tokens without blocking. It reports
// whether the request was allowed.
func (l *Limiter) TryAcquire(weight float64, endpoint string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.totalRequests++

	now := time.Now()
	l.refill(l.global, now)
	var ep *bucket
	if l.perEndpoint && endpoint != "" {
		ep = l.endpointBucket(endpoint, now)
		l.refill(ep, now)
	}

	if l.global.tokens < weight || (ep != nil && ep.tokens < weight) {
		l.rejectedRequests++
		return false
	}

	l.global.tokens -= weight
	if ep != nil {
		ep.tokens -= weight
	}
	return true
}

// Acquire blocks until weight tokens are available on both the global and
// (if configured) the endpoint bucket, or ctx is cancelled.
func (l *Limiter) Acquire(ctx context.Context, weight float64, endpoint string) error {
	start := time.Now()
	l.mu.Lock()
	l.totalRequests++
	l.mu.Unlock()
	for {
		l.mu.Lock()

		now := time.Now()
		l.refill(l.global, now)
		var ep *bucket
		if l.perEndpoint && endpoint != "" {
			ep = l.endpointBucket(endpoint, now)
			l.refill(ep, now)
		}

		if l.global.tokens >= weight && (ep == nil || ep.tokens >= weight) {
			l.global.tokens -= weight
			if ep != nil {
				ep.tokens -= weight
			}
			l.totalWait += time.Since(start)
			l.mu.Unlock()
			return nil
		}

		deficit := weight - l.global.tokens
		if ep != nil {
			epDeficit := weight - ep.tokens
			if epDeficit > deficit {
				deficit = epDeficit
			}
		}
		waitFor := time.Duration(deficit / l.ratePerSecond * float64(time.Second))
		if waitFor <= 0 {
			waitFor = time.Millisecond
		}
		l.mu.Unlock()

		timer := time.NewTimer(waitFor)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Metrics returns a snapshot of cumulative usage counters.
func (l *Limiter) Metrics() Metrics {
	l.mu.Lock()
	defer l.mu.Unlock()

	m := Metrics{
		TotalRequests:    l.totalRequests,
		RejectedRequests: l.rejectedRequests,
		TotalWaitTime:    l.totalWait,
	}
	if l.totalRequests > 0 {
		m.RejectionRate = float64(l.rejectedRequests) / float64(l.totalRequests)
		m.AverageWaitTime = l.totalWait / time.Duration(l.totalRequests)
	}
	return m
}
