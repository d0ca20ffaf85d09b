package mock

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
)

type MockConnectorTestSuite struct {
	suite.Suite
}

func (s *MockConnectorTestSuite) newConnector() *Connector {
	return New(Config{
		ExchangeName: common.Exchange("MOCK"),
		Prices:       map[string]decimal.Decimal{"BTCUSDT": decimal.NewFromInt(50000)},
		Balances:     map[string]decimal.Decimal{"USDT": decimal.NewFromInt(10000)},
	})
}

func (s *MockConnectorTestSuite) TestConnectDisconnectLifecycle() {
	c := s.newConnector()
	assert.False(s.T(), c.IsConnected())

	require.NoError(s.T(), c.Connect(context.Background()))
	assert.True(s.T(), c.IsConnected())

	require.NoError(s.T(), c.Disconnect(context.Background()))
	assert.False(s.T(), c.IsConnected())
}

func (s *MockConnectorTestSuite) TestOpsBeforeConnectRaiseConnectionError() {
	c := s.newConnector()
	_, err := c.GetTicker(context.Background(), "BTCUSDT")
	require.Error(s.T(), err)
	var connErr *common.ConnectionError
	assert.ErrorAs(s.T(), err, &connErr)
}

// TestMarketOrderFillsImmediately reproduces the concrete scenario: USDT
// 10,000 balance, BTCUSDT @ 50,000, MARKET LONG 0.01 BTCUSDT -> FILLED,
// filled_quantity 0.01, average_price 50,000, balance decreases by 500.
func (s *MockConnectorTestSuite) TestMarketOrderFillsImmediately() {
	c := s.newConnector()
	require.NoError(s.T(), c.Connect(context.Background()))

	order, err := c.PlaceOrder(context.Background(), &common.Order{
		Symbol:   "BTCUSDT",
		Action:   common.OrderActionLong,
		Type:     common.OrderTypeMarket,
		Quantity: decimal.NewFromFloat(0.01),
	})
	require.NoError(s.T(), err)

	assert.Equal(s.T(), common.OrderStatusFilled, order.Status)
	assert.True(s.T(), decimal.NewFromFloat(0.01).Equal(order.FilledQuantity))
	assert.True(s.T(), decimal.NewFromInt(50000).Equal(order.AveragePrice))

	balances, err := c.GetBalance(context.Background())
	require.NoError(s.T(), err)
	assert.True(s.T(), decimal.NewFromInt(9500).Equal(balances["USDT"]))
}

func (s *MockConnectorTestSuite) TestInsufficientFundsRejected() {
	c := s.newConnector()
	require.NoError(s.T(), c.Connect(context.Background()))

	_, err := c.PlaceOrder(context.Background(), &common.Order{
		Symbol:   "BTCUSDT",
		Action:   common.OrderActionLong,
		Type:     common.OrderTypeMarket,
		Quantity: decimal.NewFromInt(1), // 50,000 USDT, more than the 10,000 balance
	})
	require.Error(s.T(), err)
	var fundsErr *common.InsufficientFundsError
	assert.ErrorAs(s.T(), err, &fundsErr)
}

func (s *MockConnectorTestSuite) TestCancelOpenLimitOrder() {
	c := s.newConnector()
	require.NoError(s.T(), c.Connect(context.Background()))

	order, err := c.PlaceOrder(context.Background(), &common.Order{
		Symbol:   "BTCUSDT",
		Action:   common.OrderActionLong,
		Type:     common.OrderTypeLimit,
		Quantity: decimal.NewFromFloat(0.01),
		Price:    decimal.NewFromInt(40000),
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), common.OrderStatusOpen, order.Status)

	cancelled, err := c.CancelOrder(context.Background(), order.ID, order.Symbol)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), common.OrderStatusCancelled, cancelled.Status)
}

func (s *MockConnectorTestSuite) TestCancelAlreadyTerminalOrderFails() {
	c := s.newConnector()
	require.NoError(s.T(), c.Connect(context.Background()))

	order, err := c.PlaceOrder(context.Background(), &common.Order{
		Symbol:   "BTCUSDT",
		Action:   common.OrderActionLong,
		Type:     common.OrderTypeMarket,
		Quantity: decimal.NewFromFloat(0.01),
	})
	require.NoError(s.T(), err)

	_, err = c.CancelOrder(context.Background(), order.ID, order.Symbol)
	assert.Error(s.T(), err)
}

// TestSubscribeCandlesRegistersWithoutBlocking confirms the subscription
// starts a detached goroutine and returns immediately; its synthetic cadence
// matches the TimeFrame's own duration (here one minute), so this does not
// wait for a tick to actually fire.
func (s *MockConnectorTestSuite) TestSubscribeCandlesRegistersWithoutBlocking() {
	c := s.newConnector()
	require.NoError(s.T(), c.Connect(context.Background()))

	start := time.Now()
	id, err := c.SubscribeCandles(context.Background(), "BTCUSDT", common.TimeFrame1m, func(interface{}) {})
	require.NoError(s.T(), err)
	assert.NotEmpty(s.T(), id)
	assert.Less(s.T(), time.Since(start), 100*time.Millisecond)

	require.NoError(s.T(), c.Unsubscribe(id))
}

func (s *MockConnectorTestSuite) TestUnsubscribeAllStopsStreaming() {
	c := s.newConnector()
	require.NoError(s.T(), c.Connect(context.Background()))

	_, err := c.SubscribeTicker(context.Background(), "BTCUSDT", func(interface{}) {})
	require.NoError(s.T(), err)

	require.NoError(s.T(), c.UnsubscribeAll())
}

func TestMockConnectorSuite(t *testing.T) {
	suite.Run(t, new(MockConnectorTestSuite))
}
