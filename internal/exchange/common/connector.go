package common

import (
	"context"

	"github.com/shopspring/decimal"
)

// SubscriptionCallback receives a decoded payload for the channel it was
// registered against. Panics are caught by the dispatching manager and
// counted as routing errors; they never crash the receive loop.
type SubscriptionCallback func(payload interface{})

// Subscription is an active streaming registration. Removed by Unsubscribe
// or by the owning connector's Disconnect.
type Subscription struct {
	ID       string
	Channel  string
	Callback SubscriptionCallback
}

// Connector is the single polymorphic contract every venue implements:
// configure, connect, REST market-data/account/order operations, and
// streaming subscribe/unsubscribe. Operations before Connect yield
// ConnectionError; configure -> connect -> ops -> disconnect is the only
// valid ordering.
type Connector interface {
	// Connection management.
	Configure(cfg interface{}) error
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	ExchangeName() Exchange

	// Market data.
	GetCandles(ctx context.Context, symbol string, interval TimeFrame, limit int) ([]Candlestick, error)
	GetTicker(ctx context.Context, symbol string) (*Ticker, error)
	GetOrderBook(ctx context.Context, symbol string, limit int) (*OrderBook, error)

	// Account.
	GetBalance(ctx context.Context) (map[string]decimal.Decimal, error)
	GetPositions(ctx context.Context) ([]Position, error)
	GetPosition(ctx context.Context, symbol string) (*Position, error)

	// Orders.
	PlaceOrder(ctx context.Context, order *Order) (*Order, error)
	CancelOrder(ctx context.Context, id, symbol string) (*Order, error)
	GetOrder(ctx context.Context, id, symbol string) (*Order, error)
	GetOrders(ctx context.Context, symbol string) ([]Order, error)
	ClosePosition(ctx context.Context, symbol string) (*Order, error)

	// Streaming.
	SubscribeCandles(ctx context.Context, symbol string, interval TimeFrame, cb SubscriptionCallback) (string, error)
	SubscribeTicker(ctx context.Context, symbol string, cb SubscriptionCallback) (string, error)
	SubscribeOrderUpdates(ctx context.Context, cb SubscriptionCallback) (string, error)
	Unsubscribe(id string) error
	UnsubscribeAll() error

	// Performance metrics.
	GetLatencyStats() LatencyStats
	GetConnectionStats() ConnectionStats
}
