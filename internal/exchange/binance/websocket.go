package binance

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/wsmanager"
)

// parser implements wsmanager.Parser for Binance's combined-stream frame
// format: {"stream": "<channel>", "data": {...}} for multiplexed
// connections, with SUBSCRIBE/UNSUBSCRIBE control frames carrying a method,
// params array and numeric id.
type parser struct {
	nextID int64
}

func candleChannel(symbol string, interval common.TimeFrame) string {
	return fmt.Sprintf("%s@kline_%s", strings.ToLower(symbol), intervalWire(interval))
}

func tickerChannel(symbol string) string {
	return fmt.Sprintf("%s@ticker", strings.ToLower(symbol))
}

type subscribeFrame struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

func (p *parser) BuildSubscribe(channel string) (string, error) {
	p.nextID++
	frame := subscribeFrame{Method: "SUBSCRIBE", Params: []string{channel}, ID: p.nextID}
	raw, err := json.Marshal(frame)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (p *parser) BuildUnsubscribe(channel string) (string, bool) {
	p.nextID++
	frame := subscribeFrame{Method: "UNSUBSCRIBE", Params: []string{channel}, ID: p.nextID}
	raw, err := json.Marshal(frame)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

// ParseMessage decodes a combined-stream envelope and, for kline and ticker
// event types, converts the payload into the core's Candlestick/Ticker
// types. Anything else (subscribe acks, unrecognized events) is dropped.
func (p *parser) ParseMessage(raw []byte) wsmanager.ParsedMessage {
	var envelope wsStreamEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Stream == "" {
		return wsmanager.ParsedMessage{Ok: false}
	}

	switch {
	case strings.Contains(envelope.Stream, "@kline_"):
		var event wsKlineEvent
		if err := json.Unmarshal(envelope.Data, &event); err != nil {
			return wsmanager.ParsedMessage{Ok: false}
		}
		candle := common.Candlestick{
			Symbol:    event.Symbol,
			Interval:  common.TimeFrame(event.Kline.Interval),
			OpenTime:  parseMillis(event.Kline.StartTime),
			CloseTime: parseMillis(event.Kline.CloseTime),
			Open:      parseDecimal(event.Kline.Open),
			High:      parseDecimal(event.Kline.High),
			Low:       parseDecimal(event.Kline.Low),
			Close:     parseDecimal(event.Kline.Close),
			Volume:    parseDecimal(event.Kline.Volume),
		}
		return wsmanager.ParsedMessage{Channel: envelope.Stream, Payload: candle, Ok: true}

	case strings.HasSuffix(envelope.Stream, "@ticker"):
		var event wsTickerEvent
		if err := json.Unmarshal(envelope.Data, &event); err != nil {
			return wsmanager.ParsedMessage{Ok: false}
		}
		ticker := common.Ticker{
			Symbol: event.Symbol,
			Last:   parseDecimal(event.LastPrice),
			Bid:    parseDecimal(event.BidPrice),
			Ask:    parseDecimal(event.AskPrice),
			High24h: parseDecimal(event.High),
			Low24h:  parseDecimal(event.Low),
			Volume:  parseDecimal(event.Volume),
		}
		return wsmanager.ParsedMessage{Channel: envelope.Stream, Payload: ticker, Ok: true}

	default:
		return wsmanager.ParsedMessage{Ok: false}
	}
}
