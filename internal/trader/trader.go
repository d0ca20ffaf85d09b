// Package trader runs the per-instance trading loop: fetch candles, update
// indicators through a Strategy, fuse with a pattern match through
// signalgen, and translate the filtered signal into an order against the
// shared Connector. One Trader owns its own Strategy and indicator state
// and a cached Position; many Traders may share one Connector, the teacher's
// bot-engine shape (internal/trading/bot_engine.go) generalized from a
// centralized execution loop over many bots into one cooperative task per
// trader.
package trader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/trader-core/internal/config"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/internal/pattern"
	"github.com/ai-agentic-browser/trader-core/internal/signalgen"
	"github.com/ai-agentic-browser/trader-core/internal/strategy"
	"github.com/ai-agentic-browser/trader-core/pkg/observability"
)

// State is a Trader's lifecycle state.
type State string

const (
	StateCreated    State = "CREATED"
	StateActive     State = "ACTIVE"
	StatePaused     State = "PAUSED"
	StateTerminated State = "TERMINATED"
)

// Config parameterizes one Trader instance.
type Config struct {
	Symbol              string
	Interval            common.TimeFrame
	TickInterval        time.Duration
	CandleWindow        int // must be >= the strategy's minimum candle requirement
	Budget              decimal.Decimal // quote-currency amount committed per new position
	Leverage            decimal.Decimal // 1 for spot, >1 for margin-style sizing
	SignalGen           signalgen.Config
	PatternMaxResults   int
	PatternMinRelevance float64
	ExchangeConfig      config.ExchangeConfig
}

// Trader runs one cooperative tick loop against a shared Connector. Ticks
// are strictly serial: the loop only reads the next ticker event after the
// previous tick's order submission has returned.
type Trader struct {
	id        string
	logger    *observability.Logger
	cfg       Config
	connector common.Connector
	strat     strategy.Strategy
	matcher   pattern.Matcher

	mu       sync.Mutex
	state    State
	position *common.Position
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// New builds a Trader in the CREATED state. It does not touch the
// Connector; Start performs the first connect-dependent work.
func New(logger *observability.Logger, id string, cfg Config, connector common.Connector, strat strategy.Strategy, matcher pattern.Matcher) *Trader {
	if matcher == nil {
		matcher = pattern.NoopMatcher{}
	}
	return &Trader{
		id:        id,
		logger:    logger,
		cfg:       cfg,
		connector: connector,
		strat:     strat,
		matcher:   matcher,
		state:     StateCreated,
	}
}

func (t *Trader) ID() string { return t.id }

func (t *Trader) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Position returns the trader's cached position, or nil if flat.
func (t *Trader) Position() *common.Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

// Start validates the exchange config and begins the tick loop. Valid from
// CREATED or PAUSED; a no-op error from ACTIVE or TERMINATED.
func (t *Trader) Start(ctx context.Context) error {
	if err := t.cfg.ExchangeConfig.Validate(); err != nil {
		return fmt.Errorf("trader %s: refusing to start, invalid exchange config: %w", t.id, err)
	}

	t.mu.Lock()
	if t.state == StateActive {
		t.mu.Unlock()
		return fmt.Errorf("trader %s: already active", t.id)
	}
	if t.state == StateTerminated {
		t.mu.Unlock()
		return fmt.Errorf("trader %s: terminated, cannot start", t.id)
	}
	loopCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.loopDone = make(chan struct{})
	t.state = StateActive
	t.mu.Unlock()

	go t.loop(loopCtx)
	t.logger.Info(ctx, "trader started", map[string]interface{}{"trader_id": t.id, "symbol": t.cfg.Symbol})
	return nil
}

// Stop pauses the tick loop at the next tick boundary. It does not cancel
// any open orders already submitted. A no-op when not ACTIVE.
func (t *Trader) Stop(ctx context.Context) error {
	t.mu.Lock()
	if t.state != StateActive {
		t.mu.Unlock()
		return nil
	}
	cancel := t.cancel
	done := t.loopDone
	t.state = StatePaused
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	t.logger.Info(ctx, "trader paused", map[string]interface{}{"trader_id": t.id})
	return nil
}

// Terminate stops the loop if running and moves the trader to the terminal
// TERMINATED state; it never starts again after this.
func (t *Trader) Terminate(ctx context.Context) error {
	if err := t.Stop(ctx); err != nil {
		return err
	}
	t.mu.Lock()
	t.state = StateTerminated
	t.mu.Unlock()
	t.logger.Info(ctx, "trader terminated", map[string]interface{}{"trader_id": t.id})
	return nil
}

func (t *Trader) loop(ctx context.Context) {
	defer close(t.loopDone)

	ticker := time.NewTicker(t.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// tick runs exactly one fetch -> compute -> signal -> act cycle. Errors are
// logged and swallowed so a single bad tick never kills the loop; the next
// tick tries again.
func (t *Trader) tick(ctx context.Context) {
	candles, err := t.connector.GetCandles(ctx, t.cfg.Symbol, t.cfg.Interval, t.cfg.CandleWindow)
	if err != nil {
		t.logger.Error(ctx, "tick: fetch candles failed", err, map[string]interface{}{"trader_id": t.id})
		return
	}
	if len(candles) == 0 {
		return
	}

	price := candles[len(candles)-1].Close
	data := common.ProcessedMarketData{
		Candles:     candles,
		LatestPrice: price,
		Timestamp:   time.Now(),
	}

	final := t.computeSignal(ctx, candles, data)
	t.act(ctx, final, price)
}

// computeSignal runs the strategy/pattern/signalgen pipeline and recovers
// from any panic a pluggable Strategy or Matcher raises, falling back to a
// HOLD signal with confidence 0 so one bad tick never crashes the trader.
func (t *Trader) computeSignal(ctx context.Context, candles []common.Candlestick, data common.ProcessedMarketData) (signal common.TradingSignal) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error(ctx, "tick: signal pipeline panicked, falling back to HOLD", fmt.Errorf("%v", r), map[string]interface{}{"trader_id": t.id})
			signal = common.TradingSignal{Action: common.SignalHold, Confidence: 0, Reason: "recovered from signal pipeline panic", Timestamp: time.Now()}
		}
	}()

	raw := t.strat.Evaluate(data)

	conditions := pattern.MarketConditions{
		Exchange:     t.connector.ExchangeName(),
		Symbol:       t.cfg.Symbol,
		CurrentPrice: data.LatestPrice,
		Indicators:   raw.Indicators,
		Candles:      candles,
		Timestamp:    data.Timestamp,
	}
	matches, err := t.matcher.Match(conditions, t.cfg.PatternMaxResults, t.cfg.PatternMinRelevance)
	if err != nil {
		t.logger.Error(ctx, "tick: pattern match failed", err, map[string]interface{}{"trader_id": t.id})
	}
	match := pattern.Best(matches)

	position := t.Position()
	signal = signalgen.Generate(t.cfg.SignalGen, raw, match, position)
	return
}

// act translates a filtered signal into a Connector call and updates the
// cached position from the result.
func (t *Trader) act(ctx context.Context, signal common.TradingSignal, price decimal.Decimal) {
	switch signal.Action {
	case common.SignalHold:
		return

	case common.SignalClose:
		order, err := t.connector.ClosePosition(ctx, t.cfg.Symbol)
		if err != nil {
			t.logger.Error(ctx, "tick: close position failed", err, map[string]interface{}{"trader_id": t.id})
			return
		}
		if order.Status == common.OrderStatusFilled {
			t.mu.Lock()
			t.position = nil
			t.mu.Unlock()
		}

	case common.SignalBuy, common.SignalSell:
		action := common.OrderActionLong
		if signal.Action == common.SignalSell {
			action = common.OrderActionShort
		}
		quantity := orderQuantity(t.cfg.Budget, t.cfg.Leverage, price)
		if quantity.LessThanOrEqual(decimal.Zero) {
			t.logger.Error(ctx, "tick: computed non-positive order quantity", nil, map[string]interface{}{"trader_id": t.id})
			return
		}
		order, err := t.connector.PlaceOrder(ctx, &common.Order{
			Symbol:   t.cfg.Symbol,
			Action:   action,
			Type:     common.OrderTypeMarket,
			Quantity: quantity,
		})
		if err != nil {
			t.logger.Error(ctx, "tick: place order failed", err, map[string]interface{}{"trader_id": t.id})
			return
		}
		if order.Status == common.OrderStatusFilled || order.Status == common.OrderStatusPartiallyFilled {
			t.mu.Lock()
			t.position = &common.Position{
				Symbol:       t.cfg.Symbol,
				Action:       action,
				Quantity:     order.FilledQuantity,
				EntryPrice:   order.AveragePrice,
				CurrentPrice: order.AveragePrice,
				Leverage:     t.cfg.Leverage,
				OpenedAt:     time.Now(),
			}
			t.mu.Unlock()
		}
	}
}

// orderQuantity computes quantity = budget * leverage / price, the spec's
// f(budget, leverage, current_price), in exact decimal arithmetic. Returns
// zero when price is non-positive rather than dividing by zero.
func orderQuantity(budget, leverage, price decimal.Decimal) decimal.Decimal {
	if price.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	effectiveLeverage := leverage
	if effectiveLeverage.LessThanOrEqual(decimal.Zero) {
		effectiveLeverage = decimal.NewFromInt(1)
	}
	return budget.Mul(effectiveLeverage).Div(price)
}
