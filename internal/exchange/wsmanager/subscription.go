package wsmanager

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
)

// SubscriptionManager holds id->(channel,callback) plus a reverse
// channel->set<id> index, mirroring the teacher's per-symbol subscriber
// groups but keyed by opaque subscription id rather than channel alone, so
// the same channel can carry more than one independent callback.
//
// Each channel gets its own buffered dispatch queue drained by a single
// worker goroutine, so Route never blocks the receive loop while still
// guaranteeing in-order delivery within a channel; different channels
// dispatch concurrently and may interleave.
type SubscriptionManager struct {
	mu            sync.RWMutex
	byID          map[string]*common.Subscription
	byChannel     map[string]map[string]struct{}
	queues        map[string]chan routedMessage
	routingErrors int64
}

type routedMessage struct {
	payload interface{}
}

const dispatchQueueDepth = 256

// NewSubscriptionManager creates an empty manager.
func NewSubscriptionManager() *SubscriptionManager {
	return &SubscriptionManager{
		byID:      make(map[string]*common.Subscription),
		byChannel: make(map[string]map[string]struct{}),
		queues:    make(map[string]chan routedMessage),
	}
}

func (sm *SubscriptionManager) worker(channel string, queue chan routedMessage) {
	for msg := range queue {
		sm.dispatch(channel, msg.payload)
	}
}

// dispatch fans payload out to every subscriber of channel concurrently, one
// goroutine per callback, and waits for all of them before returning so the
// channel's worker keeps messages in order; a slow callback does not hold up
// the other subscribers' delivery of the same payload, but the channel's next
// payload waits until it returns.
func (sm *SubscriptionManager) dispatch(channel string, payload interface{}) {
	sm.mu.RLock()
	ids := make([]string, 0, len(sm.byChannel[channel]))
	for id := range sm.byChannel[channel] {
		ids = append(ids, id)
	}
	subs := make([]*common.Subscription, 0, len(ids))
	for _, id := range ids {
		if sub, ok := sm.byID[id]; ok {
			subs = append(subs, sub)
		}
	}
	sm.mu.RUnlock()

	var wg sync.WaitGroup
	wg.Add(len(subs))
	for _, sub := range subs {
		go func(sub *common.Subscription) {
			defer wg.Done()
			sm.invoke(sub, payload)
		}(sub)
	}
	wg.Wait()
}

func (sm *SubscriptionManager) invoke(sub *common.Subscription, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			sm.mu.Lock()
			sm.routingErrors++
			sm.mu.Unlock()
		}
	}()
	sub.Callback(payload)
}

// Add registers a new callback under channel and mints its subscription id.
func (sm *SubscriptionManager) Add(channel string, cb common.SubscriptionCallback) string {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	id := uuid.NewString()
	sm.byID[id] = &common.Subscription{ID: id, Channel: channel, Callback: cb}
	if sm.byChannel[channel] == nil {
		sm.byChannel[channel] = make(map[string]struct{})
	}
	sm.byChannel[channel][id] = struct{}{}
	return id
}

// Remove tears down a single subscription by id.
func (sm *SubscriptionManager) Remove(id string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sub, ok := sm.byID[id]
	if !ok {
		return false
	}
	delete(sm.byID, id)
	if ids, ok := sm.byChannel[sub.Channel]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(sm.byChannel, sub.Channel)
		}
	}
	return true
}

// RemoveAll tears down every subscription and returns the channels that had
// at least one, so callers can send unsubscribe frames. Dispatch workers for
// those channels are stopped.
func (sm *SubscriptionManager) RemoveAll() []string {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	channels := make([]string, 0, len(sm.byChannel))
	for ch := range sm.byChannel {
		channels = append(channels, ch)
	}
	for ch, queue := range sm.queues {
		close(queue)
		delete(sm.queues, ch)
	}
	sm.byID = make(map[string]*common.Subscription)
	sm.byChannel = make(map[string]map[string]struct{})
	return channels
}

// ActiveCount reports the number of live subscriptions.
func (sm *SubscriptionManager) ActiveCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.byID)
}

// RoutingErrors reports how many dispatched callbacks have panicked.
func (sm *SubscriptionManager) RoutingErrors() int64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.routingErrors
}

// Route enqueues payload for channel's dispatch worker and returns
// immediately, never blocking the caller (typically the WebSocket receive
// loop). Delivery to every subscriber of that channel happens in the order
// Route was called; different channels dispatch independently and may
// interleave. A panicking callback is recovered and counted, never
// propagated back to the receive loop.
func (sm *SubscriptionManager) Route(channel string, payload interface{}) {
	sm.mu.Lock()
	queue, ok := sm.queues[channel]
	if !ok {
		queue = make(chan routedMessage, dispatchQueueDepth)
		sm.queues[channel] = queue
		go sm.worker(channel, queue)
	}
	sm.mu.Unlock()

	queue <- routedMessage{payload: payload}
}
