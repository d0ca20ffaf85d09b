package binance

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
)

// parseDecimal parses a Binance numeric-string field, treating empty or
// malformed input as zero rather than erroring: a missing optional field
// must not fail an otherwise-valid response.
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// normalizeSymbol uppercases a symbol for the wire; Binance has no internal
// separator (e.g. "BTCUSDT", not "BTC_USDT").
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(symbol)
}

// intervalWire maps the core TimeFrame enum to Binance's kline interval
// strings. The mapping is exhaustive over the core's enum.
func intervalWire(tf common.TimeFrame) string {
	switch tf {
	case common.TimeFrame1m:
		return "1m"
	case common.TimeFrame5m:
		return "5m"
	case common.TimeFrame15m:
		return "15m"
	case common.TimeFrame1h:
		return "1h"
	case common.TimeFrame4h:
		return "4h"
	case common.TimeFrame1d:
		return "1d"
	default:
		return "1m"
	}
}

func toTicker(symbol string, r tickerResponse) *common.Ticker {
	return &common.Ticker{
		Symbol:             symbol,
		Last:               parseDecimal(r.LastPrice),
		Bid:                parseDecimal(r.BidPrice),
		Ask:                parseDecimal(r.AskPrice),
		High24h:            parseDecimal(r.HighPrice),
		Low24h:             parseDecimal(r.LowPrice),
		Open24h:            parseDecimal(r.OpenPrice),
		Volume:             parseDecimal(r.Volume),
		QuoteVolume:        parseDecimal(r.QuoteVolume),
		PriceChange:        parseDecimal(r.PriceChange),
		PriceChangePercent: parseDecimal(r.PriceChangePercent),
		Timestamp:          time.Now(),
	}
}

func toOrderBook(symbol string, r orderBookResponse) *common.OrderBook {
	bids := make([]common.PriceLevel, 0, len(r.Bids))
	for _, lvl := range r.Bids {
		if len(lvl) < 2 {
			continue
		}
		bids = append(bids, common.PriceLevel{Price: parseDecimal(lvl[0]), Quantity: parseDecimal(lvl[1])})
	}
	asks := make([]common.PriceLevel, 0, len(r.Asks))
	for _, lvl := range r.Asks {
		if len(lvl) < 2 {
			continue
		}
		asks = append(asks, common.PriceLevel{Price: parseDecimal(lvl[0]), Quantity: parseDecimal(lvl[1])})
	}
	return &common.OrderBook{Symbol: symbol, Bids: bids, Asks: asks, Timestamp: time.Now()}
}

// toCandle converts one heterogeneous kline row. A row too short or with a
// field of the wrong JSON type is dropped by the caller rather than
// panicking here.
func toCandle(symbol string, interval common.TimeFrame, row klineResponse) (common.Candlestick, bool) {
	if len(row) < 8 {
		return common.Candlestick{}, false
	}
	openTime, ok := row[0].(float64)
	if !ok {
		return common.Candlestick{}, false
	}
	open, ok1 := row[1].(string)
	high, ok2 := row[2].(string)
	low, ok3 := row[3].(string)
	closeP, ok4 := row[4].(string)
	volume, ok5 := row[5].(string)
	closeTime, ok6 := row[6].(float64)
	quoteVolume, ok7 := row[7].(string)
	if !(ok1 && ok2 && ok3 && ok4 && ok5 && ok6 && ok7) {
		return common.Candlestick{}, false
	}
	return common.Candlestick{
		Symbol:      symbol,
		Interval:    interval,
		OpenTime:    parseMillis(int64(openTime)),
		CloseTime:   parseMillis(int64(closeTime)),
		Open:        parseDecimal(open),
		High:        parseDecimal(high),
		Low:         parseDecimal(low),
		Close:       parseDecimal(closeP),
		Volume:      parseDecimal(volume),
		QuoteVolume: parseDecimal(quoteVolume),
	}, true
}

func toOrderStatus(status string) common.OrderStatus {
	switch status {
	case "NEW":
		return common.OrderStatusOpen
	case "PARTIALLY_FILLED":
		return common.OrderStatusPartiallyFilled
	case "FILLED":
		return common.OrderStatusFilled
	case "CANCELED":
		return common.OrderStatusCancelled
	case "REJECTED", "EXPIRED":
		return common.OrderStatusRejected
	default:
		return common.OrderStatusPending
	}
}

func toOrder(r orderResponse) *common.Order {
	action := common.OrderActionLong
	if strings.EqualFold(r.Side, "SELL") {
		action = common.OrderActionShort
	}
	orderType := common.OrderTypeMarket
	if strings.EqualFold(r.Type, "LIMIT") {
		orderType = common.OrderTypeLimit
	}

	executed := parseDecimal(r.ExecutedQty)
	avgPrice := parseDecimal(r.Price)
	cumulativeQuote := parseDecimal(r.CummulativeQuoteQty)
	if !executed.IsZero() && !cumulativeQuote.IsZero() {
		avgPrice = cumulativeQuote.Div(executed)
	}

	return &common.Order{
		ID:             strconv.FormatInt(r.OrderID, 10),
		ClientOrderID:  r.ClientOrderID,
		Symbol:         r.Symbol,
		Action:         action,
		Type:           orderType,
		TimeInForce:    common.TimeInForce(r.TimeInForce),
		Quantity:       parseDecimal(r.OrigQty),
		Price:          parseDecimal(r.Price),
		Status:         toOrderStatus(r.Status),
		FilledQuantity: executed,
		AveragePrice:   avgPrice,
		CreatedAt:      parseMillis(r.Time),
		UpdatedAt:      parseMillis(r.UpdateTime),
	}
}

func toBalances(r accountResponse) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.Balances))
	for _, b := range r.Balances {
		free := parseDecimal(b.Free)
		locked := parseDecimal(b.Locked)
		out[b.Asset] = free.Add(locked)
	}
	return out
}

func orderSideWire(action common.OrderAction) string {
	if action == common.OrderActionShort {
		return "SELL"
	}
	return "BUY"
}

// orderTypeWire decides MARKET vs LIMIT from a non-zero price: a priced
// order is LIMIT-eligible, an unpriced one is MARKET.
func orderTypeWire(price decimal.Decimal) string {
	if price.IsZero() {
		return "MARKET"
	}
	return "LIMIT"
}
