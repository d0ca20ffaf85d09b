// Package common holds the venue-agnostic data model and the Connector
// contract every exchange package implements: candles, tickers, order
// books, orders, positions, subscriptions and the closed error taxonomy.
package common

import (
	"time"

	"github.com/shopspring/decimal"
)

// Exchange identifies a supported venue implementation.
type Exchange string

const (
	Binance Exchange = "BINANCE"
	Bitget  Exchange = "BITGET"
)

// TimeFrame is the core's venue-agnostic candle interval enum. Each
// connector maps it exhaustively to its own wire values.
type TimeFrame string

const (
	TimeFrame1m  TimeFrame = "1m"
	TimeFrame5m  TimeFrame = "5m"
	TimeFrame15m TimeFrame = "15m"
	TimeFrame1h  TimeFrame = "1h"
	TimeFrame4h  TimeFrame = "4h"
	TimeFrame1d  TimeFrame = "1d"
)

// Duration returns the wall-clock length of one TimeFrame bar.
func (tf TimeFrame) Duration() time.Duration {
	switch tf {
	case TimeFrame1m:
		return time.Minute
	case TimeFrame5m:
		return 5 * time.Minute
	case TimeFrame15m:
		return 15 * time.Minute
	case TimeFrame1h:
		return time.Hour
	case TimeFrame4h:
		return 4 * time.Hour
	case TimeFrame1d:
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// Candlestick is an OHLCV bar. Invariant: Low <= Open,Close <= High and
// CloseTime > OpenTime.
type Candlestick struct {
	Symbol      string
	Interval    TimeFrame
	OpenTime    time.Time
	CloseTime   time.Time
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	Volume      decimal.Decimal
	QuoteVolume decimal.Decimal
}

// Ticker is a 24h rolling snapshot. Invariant: Bid <= Ask when both nonzero.
type Ticker struct {
	Symbol             string
	Last               decimal.Decimal
	Bid                decimal.Decimal
	Ask                decimal.Decimal
	High24h            decimal.Decimal
	Low24h              decimal.Decimal
	Open24h             decimal.Decimal
	Volume              decimal.Decimal
	QuoteVolume         decimal.Decimal
	PriceChange         decimal.Decimal
	PriceChangePercent  decimal.Decimal
	Timestamp           time.Time
}

// PriceLevel is one rung of an order book side.
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBook holds descending bids and ascending asks. Invariant:
// best bid < best ask.
type OrderBook struct {
	Symbol    string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// BestBid returns the highest bid, or a zero level if empty.
func (ob OrderBook) BestBid() PriceLevel {
	if len(ob.Bids) == 0 {
		return PriceLevel{}
	}
	return ob.Bids[0]
}

// BestAsk returns the lowest ask, or a zero level if empty.
func (ob OrderBook) BestAsk() PriceLevel {
	if len(ob.Asks) == 0 {
		return PriceLevel{}
	}
	return ob.Asks[0]
}

// OrderAction is the side of an Order: the position direction it opens or
// closes. Distinct from TradingSignal.Action, which speaks in strategy
// terms (BUY/SELL/CLOSE/HOLD).
type OrderAction string

const (
	OrderActionLong  OrderAction = "LONG"
	OrderActionShort OrderAction = "SHORT"
)

// OrderType is the venue order type.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// TimeInForce controls order lifetime semantics.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// OrderStatus is the lifecycle state of a venue order.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusOpen            OrderStatus = "OPEN"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// IsTerminal reports whether status is a final state the core never
// re-opens.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// Order is the core's working copy of a venue order. Created locally,
// submitted, then driven to a terminal state by venue responses and
// stream events.
type Order struct {
	ID              string
	ClientOrderID   string
	Symbol          string
	Action          OrderAction
	Type            OrderType
	TimeInForce     TimeInForce
	Quantity        decimal.Decimal
	Price           decimal.Decimal // zero for MARKET
	Status          OrderStatus
	FilledQuantity  decimal.Decimal
	AveragePrice    decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Position is the trader's cached view of an open position on a symbol.
// Created on the first fill of a new side, mutated as fills arrive,
// destroyed when net quantity returns to zero.
type Position struct {
	Symbol        string
	Action        OrderAction
	Quantity      decimal.Decimal
	EntryPrice    decimal.Decimal
	CurrentPrice  decimal.Decimal
	UnrealizedPnL decimal.Decimal
	Leverage      decimal.Decimal
	OpenedAt      time.Time
}

// IsProfitable reports whether the position currently shows positive PnL.
func (p Position) IsProfitable() bool {
	return p.UnrealizedPnL.GreaterThan(decimal.Zero)
}

// IndicatorValue holds a scalar or small vector indicator reading, keyed by
// indicator name in ProcessedMarketData.
type IndicatorValue struct {
	Scalar decimal.Decimal
	Vector []decimal.Decimal
	IsSet  bool
}

// ScalarValue wraps a single decimal as a set IndicatorValue.
func ScalarValue(d decimal.Decimal) IndicatorValue {
	return IndicatorValue{Scalar: d, IsSet: true}
}

// ProcessedMarketData is the per-tick snapshot a Strategy consumes.
type ProcessedMarketData struct {
	Candles     []Candlestick
	Indicators  map[string]IndicatorValue
	LatestPrice decimal.Decimal
	Timestamp   time.Time
}

// SignalAction is the action a Strategy or Signal Generator emits. Distinct
// from OrderAction: BUY/SELL describe strategy intent, CLOSE closes any
// open position, HOLD emits no order.
type SignalAction string

const (
	SignalBuy   SignalAction = "BUY"
	SignalSell  SignalAction = "SELL"
	SignalClose SignalAction = "CLOSE"
	SignalHold  SignalAction = "HOLD"
)

// TradingSignal is the raw or fused output of the strategy/signal pipeline.
// Invariant: 0 <= Confidence <= 1.
type TradingSignal struct {
	Action           SignalAction
	Confidence       float64
	Reason           string
	Timestamp        time.Time
	Indicators       map[string]IndicatorValue
	MatchedPatternID string
}

// Balance is an account's free/locked/total holding of one asset.
type Balance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
	Total  decimal.Decimal
}

// LatencyStats summarizes observed REST latency for a connector.
type LatencyStats struct {
	AvgLatencyMicros int64
	MinLatencyMicros int64
	MaxLatencyMicros int64
	P50LatencyMicros int64
	P95LatencyMicros int64
	P99LatencyMicros int64
	SampleCount      int64
	LastUpdated      time.Time
}

// ConnectionStats summarizes a connector's connection/session health.
type ConnectionStats struct {
	IsConnected       bool
	ConnectedSince    time.Time
	ReconnectCount    int64
	LastReconnectTime time.Time
	MessagesSent      int64
	MessagesReceived  int64
	ErrorCount        int64
	LastError         string
	LastErrorTime     time.Time
}
