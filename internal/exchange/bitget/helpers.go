package bitget

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
)

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

func parseMillisString(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// normalizeSymbol uppercases a symbol; Bitget spot symbols carry no
// internal separator on the wire ("BTCUSDT").
func normalizeSymbol(symbol string) string {
	return strings.ToUpper(symbol)
}

// intervalWire maps the core TimeFrame enum to Bitget's kline granularity
// strings.
func intervalWire(tf common.TimeFrame) string {
	switch tf {
	case common.TimeFrame1m:
		return "1min"
	case common.TimeFrame5m:
		return "5min"
	case common.TimeFrame15m:
		return "15min"
	case common.TimeFrame1h:
		return "1h"
	case common.TimeFrame4h:
		return "4h"
	case common.TimeFrame1d:
		return "1day"
	default:
		return "1min"
	}
}

func toTicker(symbol string, d tickerData) *common.Ticker {
	return &common.Ticker{
		Symbol:      symbol,
		Last:        parseDecimal(d.Close),
		Bid:         parseDecimal(d.BidPr),
		Ask:         parseDecimal(d.AskPr),
		High24h:     parseDecimal(d.High24h),
		Low24h:      parseDecimal(d.Low24h),
		Open24h:     parseDecimal(d.Open),
		Volume:      parseDecimal(d.BaseVol),
		QuoteVolume: parseDecimal(d.QuoteVol),
		Timestamp:   parseMillisString(d.Ts),
	}
}

func toOrderBook(symbol string, d depthData) *common.OrderBook {
	bids := make([]common.PriceLevel, 0, len(d.Bids))
	for _, lvl := range d.Bids {
		if len(lvl) < 2 {
			continue
		}
		bids = append(bids, common.PriceLevel{Price: parseDecimal(lvl[0]), Quantity: parseDecimal(lvl[1])})
	}
	asks := make([]common.PriceLevel, 0, len(d.Asks))
	for _, lvl := range d.Asks {
		if len(lvl) < 2 {
			continue
		}
		asks = append(asks, common.PriceLevel{Price: parseDecimal(lvl[0]), Quantity: parseDecimal(lvl[1])})
	}
	return &common.OrderBook{Symbol: symbol, Bids: bids, Asks: asks, Timestamp: time.Now()}
}

func toCandle(symbol string, interval common.TimeFrame, row candleRow) (common.Candlestick, bool) {
	if len(row) < 6 {
		return common.Candlestick{}, false
	}
	openTime := parseMillisString(row[0])
	candle := common.Candlestick{
		Symbol:   symbol,
		Interval: interval,
		OpenTime: openTime,
		Open:     parseDecimal(row[1]),
		High:     parseDecimal(row[2]),
		Low:      parseDecimal(row[3]),
		Close:    parseDecimal(row[4]),
		Volume:   parseDecimal(row[5]),
	}
	if len(row) >= 7 {
		candle.QuoteVolume = parseDecimal(row[6])
	}
	candle.CloseTime = candle.OpenTime.Add(interval.Duration())
	return candle, true
}

func toOrderStatus(status string) common.OrderStatus {
	switch strings.ToLower(status) {
	case "new", "init", "live":
		return common.OrderStatusOpen
	case "partially_filled":
		return common.OrderStatusPartiallyFilled
	case "filled", "full_fill":
		return common.OrderStatusFilled
	case "cancelled", "canceled":
		return common.OrderStatusCancelled
	case "rejected":
		return common.OrderStatusRejected
	default:
		return common.OrderStatusPending
	}
}

func toOrder(d orderData) *common.Order {
	action := common.OrderActionLong
	if strings.EqualFold(d.Side, "sell") {
		action = common.OrderActionShort
	}
	orderType := common.OrderTypeMarket
	if strings.EqualFold(d.OrderType, "limit") {
		orderType = common.OrderTypeLimit
	}

	avgPrice := parseDecimal(d.FillPrice)
	if avgPrice.IsZero() {
		avgPrice = parseDecimal(d.Price)
	}

	return &common.Order{
		ID:             d.OrderID,
		ClientOrderID:  d.ClientOID,
		Symbol:         d.Symbol,
		Action:         action,
		Type:           orderType,
		Quantity:       parseDecimal(d.Size),
		Price:          parseDecimal(d.Price),
		Status:         toOrderStatus(d.Status),
		FilledQuantity: parseDecimal(d.FilledQty),
		AveragePrice:   avgPrice,
		CreatedAt:      parseMillisString(d.CTime),
		UpdatedAt:      parseMillisString(d.UTime),
	}
}

func toBalances(assets []accountAssetData) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(assets))
	for _, a := range assets {
		out[a.Coin] = parseDecimal(a.Available).Add(parseDecimal(a.Frozen))
	}
	return out
}

func orderSideWire(action common.OrderAction) string {
	if action == common.OrderActionShort {
		return "sell"
	}
	return "buy"
}

func orderTypeWire(price decimal.Decimal) string {
	if price.IsZero() {
		return "market"
	}
	return "limit"
}

// splitPair best-effort splits a Bitget symbol on a known quote suffix.
func splitPair(symbol string) (base, quote string, ok bool) {
	sym := normalizeSymbol(symbol)
	for _, q := range []string{"USDT", "USDC", "BTC", "ETH"} {
		if len(sym) > len(q) && strings.HasSuffix(sym, q) {
			return sym[:len(sym)-len(q)], q, true
		}
	}
	return "", "", false
}
