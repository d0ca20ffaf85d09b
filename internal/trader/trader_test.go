package trader

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ai-agentic-browser/trader-core/internal/config"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/mock"
	"github.com/ai-agentic-browser/trader-core/internal/pattern"
	"github.com/ai-agentic-browser/trader-core/internal/signalgen"
	"github.com/ai-agentic-browser/trader-core/pkg/observability"
)

// pinnedStrategy always returns the same raw signal, regardless of candle
// history, letting tests exercise the tick loop deterministically.
type pinnedStrategy struct {
	signal common.TradingSignal
}

func (p *pinnedStrategy) Name() string { return "PINNED" }
func (p *pinnedStrategy) Evaluate(data common.ProcessedMarketData) common.TradingSignal {
	s := p.signal
	s.Timestamp = data.Timestamp
	return s
}
func (p *pinnedStrategy) Reset() {}

func testLogger() *observability.Logger {
	return observability.NewLogger(config.ObservabilityConfig{ServiceName: "trader-test", LogLevel: "error", LogFormat: "text"})
}

func validExchangeConfig() config.ExchangeConfig {
	return config.ExchangeConfig{
		Exchange:       config.Binance,
		APIKey:         "key",
		APISecret:      "secret",
		RateLimit:      config.DefaultRateLimit(),
		Retry:          config.DefaultRetryConfig(),
		WebSocket:      config.DefaultWebSocket(),
		ConnectTimeout: time.Second,
		RequestTimeout: time.Second,
	}
}

func newConnectedMock(ctx context.Context, t *testing.T) *mock.Connector {
	conn := mock.New(mock.Config{
		Prices:   map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(50000)},
		Balances: map[string]decimal.Decimal{"USDT": decimal.NewFromInt(10000)},
	})
	require.NoError(t, conn.Connect(ctx))
	return conn
}

func baseConfig() Config {
	return Config{
		Symbol:       "BTCUSDT",
		Interval:     common.TimeFrame1m,
		TickInterval: 10 * time.Millisecond,
		CandleWindow: 5,
		Budget:       decimal.NewFromInt(1000),
		Leverage:     decimal.NewFromInt(1),
		SignalGen:    signalgen.DefaultConfig(),
		ExchangeConfig: validExchangeConfig(),
	}
}

type TraderTestSuite struct {
	suite.Suite
}

// TestPinnedHoldNeverSubmitsOrders exercises spec's property: for a strategy
// pinned to HOLD, no orders are ever submitted regardless of tick count.
func (s *TraderTestSuite) TestPinnedHoldNeverSubmitsOrders() {
	ctx := context.Background()
	conn := newConnectedMock(ctx, s.T())
	strat := &pinnedStrategy{signal: common.TradingSignal{Action: common.SignalHold, Confidence: 0}}

	tr := New(testLogger(), "t1", baseConfig(), conn, strat, pattern.NoopMatcher{})
	require.NoError(s.T(), tr.Start(ctx))

	time.Sleep(80 * time.Millisecond)
	require.NoError(s.T(), tr.Stop(ctx))

	orders, err := conn.GetOrders(ctx, "BTCUSDT")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), orders)
	assert.Nil(s.T(), tr.Position())
}

// TestPinnedBuyOpensExactlyOnePosition exercises spec's property: for a
// strategy pinned to BUY with sufficient mock funds, exactly one LONG
// position opens and further BUY signals are filtered to HOLD.
func (s *TraderTestSuite) TestPinnedBuyOpensExactlyOnePosition() {
	ctx := context.Background()
	conn := newConnectedMock(ctx, s.T())
	strat := &pinnedStrategy{signal: common.TradingSignal{Action: common.SignalBuy, Confidence: 0.9, Reason: "pinned buy"}}

	tr := New(testLogger(), "t2", baseConfig(), conn, strat, pattern.NoopMatcher{})
	require.NoError(s.T(), tr.Start(ctx))

	time.Sleep(80 * time.Millisecond)
	require.NoError(s.T(), tr.Stop(ctx))

	orders, err := conn.GetOrders(ctx, "BTCUSDT")
	require.NoError(s.T(), err)
	assert.Len(s.T(), orders, 1)

	position := tr.Position()
	require.NotNil(s.T(), position)
	assert.Equal(s.T(), common.OrderActionLong, position.Action)
}

func (s *TraderTestSuite) TestStartRefusesOnInvalidExchangeConfig() {
	ctx := context.Background()
	conn := newConnectedMock(ctx, s.T())
	strat := &pinnedStrategy{signal: common.TradingSignal{Action: common.SignalHold}}

	cfg := baseConfig()
	cfg.ExchangeConfig = config.ExchangeConfig{} // missing required fields

	tr := New(testLogger(), "t3", cfg, conn, strat, pattern.NoopMatcher{})
	err := tr.Start(ctx)
	assert.Error(s.T(), err)
	assert.Equal(s.T(), StateCreated, tr.State())
}

func (s *TraderTestSuite) TestStopIsIdempotentAndPauses() {
	ctx := context.Background()
	conn := newConnectedMock(ctx, s.T())
	strat := &pinnedStrategy{signal: common.TradingSignal{Action: common.SignalHold}}

	tr := New(testLogger(), "t4", baseConfig(), conn, strat, pattern.NoopMatcher{})
	require.NoError(s.T(), tr.Start(ctx))
	require.NoError(s.T(), tr.Stop(ctx))
	assert.Equal(s.T(), StatePaused, tr.State())
	require.NoError(s.T(), tr.Stop(ctx)) // no-op when already paused
}

func (s *TraderTestSuite) TestTerminateIsTerminal() {
	ctx := context.Background()
	conn := newConnectedMock(ctx, s.T())
	strat := &pinnedStrategy{signal: common.TradingSignal{Action: common.SignalHold}}

	tr := New(testLogger(), "t5", baseConfig(), conn, strat, pattern.NoopMatcher{})
	require.NoError(s.T(), tr.Start(ctx))
	require.NoError(s.T(), tr.Terminate(ctx))
	assert.Equal(s.T(), StateTerminated, tr.State())

	err := tr.Start(ctx)
	assert.Error(s.T(), err)
}

func TestTraderSuite(t *testing.T) {
	suite.Run(t, new(TraderTestSuite))
}
