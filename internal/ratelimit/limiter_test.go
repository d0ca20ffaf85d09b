package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type LimiterTestSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *LimiterTestSuite) SetupTest() {
	s.ctx = context.Background()
}

// TestBurstThenWait exercises the canonical scenario: rate=10/s, burst=5,
// the first 5 acquires are immediate and the 6th must wait roughly 100ms.
func (s *LimiterTestSuite) TestBurstThenWait() {
	l := New(10, 5, false)

	for i := 0; i < 5; i++ {
		assert.True(s.T(), l.TryAcquire(1, ""))
	}
	assert.False(s.T(), l.TryAcquire(1, ""), "bucket should be exhausted after burst")

	start := time.Now()
	err := l.Acquire(s.ctx, 1, "")
	elapsed := time.Since(start)
	assert.NoError(s.T(), err)
	assert.GreaterOrEqual(s.T(), elapsed, 80*time.Millisecond)
	assert.LessOrEqual(s.T(), elapsed, 300*time.Millisecond)
}

func (s *LimiterTestSuite) TestTryAcquireDoesNotBlock() {
	l := New(1, 1, false)
	assert.True(s.T(), l.TryAcquire(1, ""))
	start := time.Now()
	assert.False(s.T(), l.TryAcquire(1, ""))
	assert.Less(s.T(), time.Since(start), 10*time.Millisecond)
}

func (s *LimiterTestSuite) TestMetricsCountAllCalls() {
	l := New(5, 2, false)
	l.TryAcquire(1, "")
	l.TryAcquire(1, "")
	l.TryAcquire(1, "") // rejected, bucket empty

	m := l.Metrics()
	assert.Equal(s.T(), uint64(3), m.TotalRequests)
	assert.Equal(s.T(), uint64(1), m.RejectedRequests)
	assert.InDelta(s.T(), 1.0/3.0, m.RejectionRate, 0.001)
}

func (s *LimiterTestSuite) TestPerEndpointRequestsShareGlobalBucket() {
	l := New(1, 1, true)
	assert.True(s.T(), l.TryAcquire(1, "orders"))
	assert.False(s.T(), l.TryAcquire(1, "market"), "global bucket drained by the orders request")
	assert.False(s.T(), l.TryAcquire(1, "orders"))
}

func (s *LimiterTestSuite) TestAcquireRespectsContextCancellation() {
	l := New(0.1, 1, false)
	l.TryAcquire(1, "")

	ctx, cancel := context.WithTimeout(s.ctx, 20*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx, 1, "")
	assert.ErrorIs(s.T(), err, context.DeadlineExceeded)
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterTestSuite))
}
