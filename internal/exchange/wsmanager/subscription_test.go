package wsmanager

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type SubscriptionTestSuite struct {
	suite.Suite
}

func (s *SubscriptionTestSuite) TestAddRemoveRoundTrip() {
	sm := NewSubscriptionManager()
	id := sm.Add("ticker:BTCUSDT", func(payload interface{}) {})
	assert.Equal(s.T(), 1, sm.ActiveCount())
	assert.True(s.T(), sm.Remove(id))
	assert.Equal(s.T(), 0, sm.ActiveCount())
	assert.False(s.T(), sm.Remove(id))
}

func (s *SubscriptionTestSuite) TestRouteDeliversToAllSubscribersOfChannel() {
	sm := NewSubscriptionManager()
	var count int32
	var wg sync.WaitGroup
	wg.Add(2)
	sm.Add("ticker:BTCUSDT", func(payload interface{}) { atomic.AddInt32(&count, 1); wg.Done() })
	sm.Add("ticker:BTCUSDT", func(payload interface{}) { atomic.AddInt32(&count, 1); wg.Done() })
	sm.Add("ticker:ETHUSDT", func(payload interface{}) { s.T().Fatal("wrong channel invoked") })

	sm.Route("ticker:BTCUSDT", "payload-1")

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.T().Fatal("timed out waiting for dispatch")
	}
	assert.Equal(s.T(), int32(2), atomic.LoadInt32(&count))
}

func (s *SubscriptionTestSuite) TestPanicInCallbackIsCountedNotPropagated() {
	sm := NewSubscriptionManager()
	done := make(chan struct{})
	sm.Add("orders", func(payload interface{}) {
		defer close(done)
		panic("boom")
	})

	assert.NotPanics(s.T(), func() { sm.Route("orders", "x") })

	select {
	case <-done:
	case <-time.After(time.Second):
		s.T().Fatal("callback never ran")
	}
	time.Sleep(10 * time.Millisecond)
	assert.Equal(s.T(), int64(1), sm.RoutingErrors())
}

func (s *SubscriptionTestSuite) TestPerChannelOrderPreserved() {
	sm := NewSubscriptionManager()
	var mu sync.Mutex
	var received []int
	doneCh := make(chan struct{})
	count := 0
	sm.Add("candles:1m", func(payload interface{}) {
		mu.Lock()
		received = append(received, payload.(int))
		count++
		if count == 5 {
			close(doneCh)
		}
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		sm.Route("candles:1m", i)
	}

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		s.T().Fatal("timed out")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(s.T(), []int{0, 1, 2, 3, 4}, received)
}

func (s *SubscriptionTestSuite) TestRemoveAllReturnsChannelsAndClearsSubscriptions() {
	sm := NewSubscriptionManager()
	var called int32
	sm.Add("ticker:BTCUSDT", func(payload interface{}) { atomic.AddInt32(&called, 1) })

	channels := sm.RemoveAll()
	assert.Equal(s.T(), []string{"ticker:BTCUSDT"}, channels)
	assert.Equal(s.T(), 0, sm.ActiveCount())
}

func TestSubscriptionSuite(t *testing.T) {
	suite.Run(t, new(SubscriptionTestSuite))
}
