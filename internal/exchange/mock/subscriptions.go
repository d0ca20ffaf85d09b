package mock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
)

// subscriptions tracks the synthetic streaming goroutines the mock connector
// starts on Subscribe* and stops on Unsubscribe/UnsubscribeAll/Disconnect.
type subscriptions struct {
	mu    sync.Mutex
	byID  map[string]context.CancelFunc
}

func newSubscriptions() *subscriptions {
	return &subscriptions{byID: make(map[string]context.CancelFunc)}
}

func (s *subscriptions) start(parent context.Context, run func(ctx context.Context)) string {
	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()

	s.mu.Lock()
	s.byID[id] = cancel
	s.mu.Unlock()

	go run(ctx)
	return id
}

func (s *subscriptions) stop(id string) bool {
	s.mu.Lock()
	cancel, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
	}
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (s *subscriptions) stopAll() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.byID))
	for id, cancel := range s.byID {
		cancels = append(cancels, cancel)
		delete(s.byID, id)
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// SubscribeCandles emits a synthetic candle at the interval's own cadence,
// not per tick: a 1m subscription fires once a minute, matching the pace a
// real venue would stream completed bars at.
func (c *Connector) SubscribeCandles(ctx context.Context, symbol string, interval common.TimeFrame, cb common.SubscriptionCallback) (string, error) {
	if err := c.requireConnected(); err != nil {
		return "", err
	}
	id := c.subs.start(ctx, func(runCtx context.Context) {
		ticker := time.NewTicker(interval.Duration())
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				candle, err := c.GetCandles(runCtx, symbol, interval, 1)
				if err != nil || len(candle) == 0 {
					continue
				}
				safeInvoke(cb, candle[0])
			}
		}
	})
	return id, nil
}

// SubscribeTicker emits a synthetic ticker once per second.
func (c *Connector) SubscribeTicker(ctx context.Context, symbol string, cb common.SubscriptionCallback) (string, error) {
	if err := c.requireConnected(); err != nil {
		return "", err
	}
	id := c.subs.start(ctx, func(runCtx context.Context) {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				t, err := c.GetTicker(runCtx, symbol)
				if err != nil {
					continue
				}
				safeInvoke(cb, *t)
			}
		}
	})
	return id, nil
}

// SubscribeOrderUpdates registers for fill/cancel notifications. The
// deterministic mock never rewrites an order after PlaceOrder/CancelOrder
// return, so this channel never fires; it exists to satisfy the contract.
func (c *Connector) SubscribeOrderUpdates(ctx context.Context, cb common.SubscriptionCallback) (string, error) {
	if err := c.requireConnected(); err != nil {
		return "", err
	}
	id := c.subs.start(ctx, func(runCtx context.Context) {
		<-runCtx.Done()
	})
	return id, nil
}

// Unsubscribe stops one streaming subscription.
func (c *Connector) Unsubscribe(id string) error {
	c.subs.stop(id)
	return nil
}

// UnsubscribeAll stops every active streaming subscription.
func (c *Connector) UnsubscribeAll() error {
	c.subs.stopAll()
	return nil
}

func safeInvoke(cb common.SubscriptionCallback, payload interface{}) {
	defer func() { _ = recover() }()
	cb(payload)
}
