// Package mock implements the Connector contract deterministically
// in-memory, for tests that must not touch a real venue: configurable
// simulated latency and failure rate, seeded price/balance tables, and
// immediate-fill semantics for MARKET orders. It satisfies every invariant
// of the real contract so a strategy cannot distinguish it from a real
// venue at the contract level.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
)

// Config seeds the deterministic venue state.
type Config struct {
	ExchangeName exchangeLabel
	Latency      time.Duration
	FailureRate  float64
	Prices       map[string]decimal.Decimal
	Balances     map[string]decimal.Decimal
	Rand         *rand.Rand // nil uses a package-level default
}

type exchangeLabel = common.Exchange

// Connector is the mock venue. Safe for concurrent use.
type Connector struct {
	mu sync.Mutex

	cfg         Config
	connected   bool
	prices      map[string]decimal.Decimal
	balances    map[string]decimal.Decimal
	orders      map[string]*common.Order
	subs        *subscriptions
	connectedAt time.Time
	rng         *rand.Rand

	latencyStats    common.LatencyStats
	connectionStats common.ConnectionStats
}

// New creates a mock Connector. Configure (or passing a non-empty cfg here)
// seeds its price/balance tables before first use.
func New(cfg Config) *Connector {
	if cfg.Prices == nil {
		cfg.Prices = map[string]decimal.Decimal{}
	}
	if cfg.Balances == nil {
		cfg.Balances = map[string]decimal.Decimal{}
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Connector{
		cfg:      cfg,
		prices:   cloneDecimalMap(cfg.Prices),
		balances: cloneDecimalMap(cfg.Balances),
		orders:   make(map[string]*common.Order),
		subs:     newSubscriptions(),
		rng:      rng,
	}
}

func cloneDecimalMap(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Configure resets prices/balances from a Config value.
func (c *Connector) Configure(cfg interface{}) error {
	mc, ok := cfg.(Config)
	if !ok {
		return fmt.Errorf("mock: Configure expects mock.Config")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = mc
	if mc.Prices != nil {
		c.prices = cloneDecimalMap(mc.Prices)
	}
	if mc.Balances != nil {
		c.balances = cloneDecimalMap(mc.Balances)
	}
	return nil
}

func (c *Connector) simulateLatency() {
	if c.cfg.Latency > 0 {
		time.Sleep(c.cfg.Latency)
	}
}

func (c *Connector) maybeFail() error {
	if c.cfg.FailureRate <= 0 {
		return nil
	}
	if c.rng.Float64() < c.cfg.FailureRate {
		return &common.ConnectionError{Message: "mock: simulated random failure", Retryable: true}
	}
	return nil
}

func (c *Connector) requireConnected() error {
	c.mu.Lock()
	connected := c.connected
	c.mu.Unlock()
	if !connected {
		return &common.ConnectionError{Message: "mock: operation before connect", Retryable: false}
	}
	return nil
}

// Connect marks the connector connected. Synthetic streams start only when
// a Subscribe* call registers one.
func (c *Connector) Connect(ctx context.Context) error {
	c.simulateLatency()
	if err := c.maybeFail(); err != nil {
		return err
	}
	c.mu.Lock()
	c.connected = true
	c.connectedAt = time.Now()
	c.connectionStats.IsConnected = true
	c.connectionStats.ConnectedSince = c.connectedAt
	c.mu.Unlock()
	return nil
}

// Disconnect marks the connector disconnected and tears down subscriptions.
func (c *Connector) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.connected = false
	c.connectionStats.IsConnected = false
	c.mu.Unlock()
	c.subs.stopAll()
	return nil
}

// IsConnected reports the current connection state.
func (c *Connector) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// ExchangeName returns the configured label, defaulting to "MOCK".
func (c *Connector) ExchangeName() common.Exchange {
	if c.cfg.ExchangeName != "" {
		return c.cfg.ExchangeName
	}
	return common.Exchange("MOCK")
}

// GetCandles synthesizes a deterministic candle window ending at the
// current seeded price.
func (c *Connector) GetCandles(ctx context.Context, symbol string, interval common.TimeFrame, limit int) ([]common.Candlestick, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	c.simulateLatency()
	if err := c.maybeFail(); err != nil {
		return nil, err
	}

	price := c.priceOf(symbol)
	now := time.Now()
	step := interval.Duration()
	candles := make([]common.Candlestick, limit)
	for i := 0; i < limit; i++ {
		openTime := now.Add(-time.Duration(limit-i) * step)
		candles[i] = common.Candlestick{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  openTime,
			CloseTime: openTime.Add(step),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    decimal.NewFromInt(1),
		}
	}
	return candles, nil
}

// GetTicker returns a synthetic ticker built from the seeded price.
func (c *Connector) GetTicker(ctx context.Context, symbol string) (*common.Ticker, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	c.simulateLatency()
	if err := c.maybeFail(); err != nil {
		return nil, err
	}
	price := c.priceOf(symbol)
	spread := price.Mul(decimal.NewFromFloat(0.0001))
	return &common.Ticker{
		Symbol:    symbol,
		Last:      price,
		Bid:       price.Sub(spread),
		Ask:       price.Add(spread),
		Timestamp: time.Now(),
	}, nil
}

// GetOrderBook returns a single-level synthetic book around the seeded
// price.
func (c *Connector) GetOrderBook(ctx context.Context, symbol string, limit int) (*common.OrderBook, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	c.simulateLatency()
	if err := c.maybeFail(); err != nil {
		return nil, err
	}
	price := c.priceOf(symbol)
	spread := price.Mul(decimal.NewFromFloat(0.0001))
	return &common.OrderBook{
		Symbol:    symbol,
		Bids:      []common.PriceLevel{{Price: price.Sub(spread), Quantity: decimal.NewFromInt(1)}},
		Asks:      []common.PriceLevel{{Price: price.Add(spread), Quantity: decimal.NewFromInt(1)}},
		Timestamp: time.Now(),
	}, nil
}

func (c *Connector) priceOf(symbol string) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.prices[symbol]; ok {
		return p
	}
	return decimal.NewFromInt(1)
}

// GetBalance returns a snapshot of the seeded balance table.
func (c *Connector) GetBalance(ctx context.Context) (map[string]decimal.Decimal, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneDecimalMap(c.balances), nil
}

// GetPositions is unimplemented for the mock spot venue; positions are
// derived by the trader from fills, not queried.
func (c *Connector) GetPositions(ctx context.Context) ([]common.Position, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	return nil, nil
}

// GetPosition mirrors GetPositions: spot venues have no authoritative
// position query, so the mock returns nil, nil rather than fabricate one.
func (c *Connector) GetPosition(ctx context.Context, symbol string) (*common.Position, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	return nil, nil
}

// splitSymbol splits a symbol like "BTCUSDT" on the venue's known
// quote suffixes. Only used by the mock's simplified funds model.
func splitSymbol(symbol string) (base, quote string) {
	for _, q := range []string{"USDT", "USDC", "BUSD"} {
		if len(symbol) > len(q) && symbol[len(symbol)-len(q):] == q {
			return symbol[:len(symbol)-len(q)], q
		}
	}
	return symbol, "USDT"
}

// PlaceOrder validates funds and fills MARKET orders immediately at the
// seeded price; LIMIT orders are accepted OPEN, are never filled in this
// deterministic venue, and leave the OPEN state only via CancelOrder.
func (c *Connector) PlaceOrder(ctx context.Context, order *common.Order) (*common.Order, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	c.simulateLatency()
	if err := c.maybeFail(); err != nil {
		return nil, err
	}
	if order.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, &common.OrderError{ErrorCode: "INVALID_QUANTITY", Message: "quantity must be positive", Retryable: false}
	}

	price := order.Price
	if price.IsZero() {
		price = c.priceOf(order.Symbol)
	}

	base, quote := splitSymbol(order.Symbol)
	cost := price.Mul(order.Quantity)

	c.mu.Lock()
	switch order.Action {
	case common.OrderActionLong:
		available := c.balances[quote]
		if available.LessThan(cost) {
			c.mu.Unlock()
			return nil, &common.InsufficientFundsError{Message: fmt.Sprintf("need %s %s, have %s", cost.String(), quote, available.String())}
		}
		if order.Type == common.OrderTypeMarket {
			c.balances[quote] = available.Sub(cost)
			c.balances[base] = c.balances[base].Add(order.Quantity)
		}
	case common.OrderActionShort:
		available := c.balances[base]
		if available.LessThan(order.Quantity) {
			c.mu.Unlock()
			return nil, &common.InsufficientFundsError{Message: fmt.Sprintf("need %s %s, have %s", order.Quantity.String(), base, available.String())}
		}
		if order.Type == common.OrderTypeMarket {
			c.balances[base] = available.Sub(order.Quantity)
			c.balances[quote] = c.balances[quote].Add(cost)
		}
	}

	now := time.Now()
	result := *order
	result.ID = uuid.NewString()
	result.CreatedAt = now
	result.UpdatedAt = now

	if order.Type == common.OrderTypeMarket {
		result.Status = common.OrderStatusFilled
		result.FilledQuantity = order.Quantity
		result.AveragePrice = price
	} else {
		result.Status = common.OrderStatusOpen
		result.FilledQuantity = decimal.Zero
	}

	c.orders[result.ID] = &result
	c.mu.Unlock()

	out := result
	return &out, nil
}

// CancelOrder cancels an open LIMIT order.
func (c *Connector) CancelOrder(ctx context.Context, id, symbol string) (*common.Order, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	order, ok := c.orders[id]
	if !ok {
		return nil, &common.OrderError{ErrorCode: "UNKNOWN_ORDER", Message: "order not found", Retryable: false}
	}
	if order.Status.IsTerminal() {
		return nil, &common.OrderError{ErrorCode: "ALREADY_TERMINAL", Message: "order already in a terminal state", Retryable: false}
	}
	order.Status = common.OrderStatusCancelled
	order.UpdatedAt = time.Now()
	out := *order
	return &out, nil
}

// GetOrder returns the working copy of a previously placed order.
func (c *Connector) GetOrder(ctx context.Context, id, symbol string) (*common.Order, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	order, ok := c.orders[id]
	if !ok {
		return nil, &common.OrderError{ErrorCode: "UNKNOWN_ORDER", Message: "order not found", Retryable: false}
	}
	out := *order
	return &out, nil
}

// GetOrders lists working copies of orders for symbol (or all, if empty).
func (c *Connector) GetOrders(ctx context.Context, symbol string) ([]common.Order, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]common.Order, 0, len(c.orders))
	for _, o := range c.orders {
		if symbol == "" || o.Symbol == symbol {
			out = append(out, *o)
		}
	}
	return out, nil
}

// ClosePosition queries the base-asset balance and, if positive, submits a
// MARKET opposite-side order for that quantity.
func (c *Connector) ClosePosition(ctx context.Context, symbol string) (*common.Order, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	base, _ := splitSymbol(symbol)

	c.mu.Lock()
	qty := c.balances[base]
	c.mu.Unlock()

	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, &common.OrderError{ErrorCode: "NO_POSITION", Message: "no position", Retryable: false}
	}

	return c.PlaceOrder(ctx, &common.Order{
		Symbol:   symbol,
		Action:   common.OrderActionShort,
		Type:     common.OrderTypeMarket,
		Quantity: qty,
	})
}

// GetLatencyStats returns a static placeholder; the mock does not measure
// real network latency.
func (c *Connector) GetLatencyStats() common.LatencyStats {
	return c.latencyStats
}

// GetConnectionStats returns the connector's current connection snapshot.
func (c *Connector) GetConnectionStats() common.ConnectionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectionStats
}
