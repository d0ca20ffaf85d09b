package bitget

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/wsmanager"
)

// parser implements wsmanager.Parser for Bitget's spot channel format:
// {"op": "subscribe", "args": [{"instType": "sp", "channel": "...",
// "instId": "..."}]} with push frames shaped {"action": "snapshot"|"update",
// "arg": {...same...}, "data": [...]}. The Manager's Channel key is the
// "<channel>:<instId>" pair, built identically on subscribe and on parse so
// pushes route back to the right callback.
type parser struct{}

const instType = "sp"

func candleChannel(symbol string, interval common.TimeFrame) string {
	return fmt.Sprintf("candle%s:%s", intervalWire(interval), normalizeSymbol(symbol))
}

func tickerChannel(symbol string) string {
	return fmt.Sprintf("ticker:%s", normalizeSymbol(symbol))
}

func splitChannelKey(key string) (channel, instID string, ok bool) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

type wsArg struct {
	InstType string `json:"instType"`
	Channel  string `json:"channel"`
	InstID   string `json:"instId"`
}

type subscribeFrame struct {
	Op   string  `json:"op"`
	Args []wsArg `json:"args"`
}

func (p *parser) BuildSubscribe(channel string) (string, error) {
	ch, instID, ok := splitChannelKey(channel)
	if !ok {
		return "", fmt.Errorf("bitget: malformed channel key %q", channel)
	}
	frame := subscribeFrame{Op: "subscribe", Args: []wsArg{{InstType: instType, Channel: ch, InstID: instID}}}
	raw, err := json.Marshal(frame)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (p *parser) BuildUnsubscribe(channel string) (string, bool) {
	ch, instID, ok := splitChannelKey(channel)
	if !ok {
		return "", false
	}
	frame := subscribeFrame{Op: "unsubscribe", Args: []wsArg{{InstType: instType, Channel: ch, InstID: instID}}}
	raw, err := json.Marshal(frame)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

type pushFrame struct {
	Action string          `json:"action"`
	Arg    wsArg           `json:"arg"`
	Data   json.RawMessage `json:"data"`
}

// ParseMessage decodes a push frame. candle pushes carry an array of
// candleRow; ticker pushes carry an array of tickerData (the venue always
// wraps a single snapshot/update in a one-element array).
func (p *parser) ParseMessage(raw []byte) wsmanager.ParsedMessage {
	var frame pushFrame
	if err := json.Unmarshal(raw, &frame); err != nil || frame.Arg.Channel == "" {
		return wsmanager.ParsedMessage{Ok: false}
	}
	key := fmt.Sprintf("%s:%s", frame.Arg.Channel, frame.Arg.InstID)

	switch {
	case strings.HasPrefix(frame.Arg.Channel, "candle"):
		var rows []candleRow
		if err := json.Unmarshal(frame.Data, &rows); err != nil || len(rows) == 0 {
			return wsmanager.ParsedMessage{Ok: false}
		}
		interval := wireToInterval(strings.TrimPrefix(frame.Arg.Channel, "candle"))
		candle, ok := toCandle(frame.Arg.InstID, interval, rows[len(rows)-1])
		if !ok {
			return wsmanager.ParsedMessage{Ok: false}
		}
		return wsmanager.ParsedMessage{Channel: key, Payload: candle, Ok: true}

	case frame.Arg.Channel == "ticker":
		var rows []tickerData
		if err := json.Unmarshal(frame.Data, &rows); err != nil || len(rows) == 0 {
			return wsmanager.ParsedMessage{Ok: false}
		}
		ticker := toTicker(frame.Arg.InstID, rows[len(rows)-1])
		return wsmanager.ParsedMessage{Channel: key, Payload: *ticker, Ok: true}

	default:
		return wsmanager.ParsedMessage{Ok: false}
	}
}

// wireToInterval inverts intervalWire for the subset of granularities the
// candle channel name carries.
func wireToInterval(wire string) common.TimeFrame {
	switch wire {
	case "1min":
		return common.TimeFrame1m
	case "5min":
		return common.TimeFrame5m
	case "15min":
		return common.TimeFrame15m
	case "1h":
		return common.TimeFrame1h
	case "4h":
		return common.TimeFrame4h
	case "1day":
		return common.TimeFrame1d
	default:
		return common.TimeFrame1m
	}
}
