package common

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type TypesTestSuite struct {
	suite.Suite
}

func (s *TypesTestSuite) TestCandlestickInvariant() {
	now := time.Now()
	c := Candlestick{
		Open: decimal.NewFromInt(100), High: decimal.NewFromInt(110),
		Low: decimal.NewFromInt(95), Close: decimal.NewFromInt(105),
		OpenTime: now, CloseTime: now.Add(time.Minute),
	}
	assert.True(s.T(), c.Low.LessThanOrEqual(c.Open))
	assert.True(s.T(), c.Low.LessThanOrEqual(c.Close))
	assert.True(s.T(), c.Open.LessThanOrEqual(c.High))
	assert.True(s.T(), c.Close.LessThanOrEqual(c.High))
	assert.True(s.T(), c.CloseTime.After(c.OpenTime))
}

func (s *TypesTestSuite) TestTickerBidAskInvariant() {
	t := Ticker{Bid: decimal.NewFromInt(99), Ask: decimal.NewFromInt(100)}
	assert.True(s.T(), t.Bid.LessThanOrEqual(t.Ask))
}

func (s *TypesTestSuite) TestOrderBookBestPrices() {
	ob := OrderBook{
		Bids: []PriceLevel{{Price: decimal.NewFromInt(99)}, {Price: decimal.NewFromInt(98)}},
		Asks: []PriceLevel{{Price: decimal.NewFromInt(100)}, {Price: decimal.NewFromInt(101)}},
	}
	assert.True(s.T(), ob.BestBid().Price.LessThan(ob.BestAsk().Price))
}

func (s *TypesTestSuite) TestTradingSignalConfidenceBounds() {
	sig := TradingSignal{Action: SignalBuy, Confidence: 0.75}
	assert.GreaterOrEqual(s.T(), sig.Confidence, 0.0)
	assert.LessOrEqual(s.T(), sig.Confidence, 1.0)
}

func (s *TypesTestSuite) TestOrderStatusTerminal() {
	assert.True(s.T(), OrderStatusFilled.IsTerminal())
	assert.True(s.T(), OrderStatusCancelled.IsTerminal())
	assert.True(s.T(), OrderStatusRejected.IsTerminal())
	assert.False(s.T(), OrderStatusOpen.IsTerminal())
	assert.False(s.T(), OrderStatusPending.IsTerminal())
}

func (s *TypesTestSuite) TestPositionProfitability() {
	profitable := Position{UnrealizedPnL: decimal.NewFromInt(10)}
	losing := Position{UnrealizedPnL: decimal.NewFromInt(-5)}
	assert.True(s.T(), profitable.IsProfitable())
	assert.False(s.T(), losing.IsProfitable())
}

func TestTypesSuite(t *testing.T) {
	suite.Run(t, new(TypesTestSuite))
}
