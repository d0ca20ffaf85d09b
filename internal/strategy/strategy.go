// Package strategy consumes candles and indicators to emit a raw
// TradingSignal. The reference implementation here is trend-following
// (SMA crossover + RSI filter + MACD confirmation); other strategies slot
// into the same contract.
package strategy

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/internal/indicator"
)

// Strategy evaluates a ProcessedMarketData snapshot and produces a raw
// TradingSignal. Reset clears any internal continuation state.
type Strategy interface {
	Name() string
	Evaluate(data common.ProcessedMarketData) common.TradingSignal
	Reset()
}

// Names the canonical enum every persisted config must resolve to.
const (
	NameTrendFollowing = "TREND_FOLLOWING"
)

// NormalizeName maps legacy persisted strategy names to their canonical
// form. Unknown names pass through unchanged.
func NormalizeName(name string) string {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "MOMENTUM":
		return NameTrendFollowing
	case "TREND_FOLLOWING", "TRENDFOLLOWING":
		return NameTrendFollowing
	default:
		return name
	}
}

// TrendFollowingConfig parameterizes the reference strategy.
type TrendFollowingConfig struct {
	ShortPeriod        int
	LongPeriod         int
	RSIPeriod          int
	RSIOverbought      decimal.Decimal
	RSIOversold        decimal.Decimal
	MACDFast           int
	MACDSlow           int
	MACDSignal         int
	MinCandlesRequired int
}

// DefaultTrendFollowingConfig mirrors spec defaults: 26-candle minimum,
// RSI(14) 70/30, MACD(12,26,9).
func DefaultTrendFollowingConfig() TrendFollowingConfig {
	return TrendFollowingConfig{
		ShortPeriod:        9,
		LongPeriod:         21,
		RSIPeriod:          14,
		RSIOverbought:      decimal.NewFromInt(70),
		RSIOversold:        decimal.NewFromInt(30),
		MACDFast:           12,
		MACDSlow:           26,
		MACDSignal:         9,
		MinCandlesRequired: 26,
	}
}

// TrendFollowing is the example strategy from spec §4.9: SMA short/long
// crossover for directional bias, RSI filter, MACD confirmation.
type TrendFollowing struct {
	cfg         TrendFollowingConfig
	shortSMA    *indicator.SMA
	longSMA     *indicator.SMA
	rsi         *indicator.RSI
	macd        *indicator.MACD
	prevShort   *decimal.Decimal
	prevLong    *decimal.Decimal
}

// NewTrendFollowing builds a fresh TrendFollowing strategy.
func NewTrendFollowing(cfg TrendFollowingConfig) *TrendFollowing {
	return &TrendFollowing{
		cfg:      cfg,
		shortSMA: indicator.NewSMA(cfg.ShortPeriod),
		longSMA:  indicator.NewSMA(cfg.LongPeriod),
		rsi:      indicator.NewRSI(cfg.RSIPeriod),
		macd:     indicator.NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal),
	}
}

// Name returns the canonical strategy name.
func (t *TrendFollowing) Name() string { return NameTrendFollowing }

// Reset clears all indicator continuation state.
func (t *TrendFollowing) Reset() {
	t.shortSMA.Reset()
	t.longSMA.Reset()
	t.rsi.Reset()
	t.macd.Reset()
	t.prevShort = nil
	t.prevLong = nil
}

// Evaluate folds the latest candle's close into every indicator and
// returns the resulting raw signal. Callers pass one ProcessedMarketData
// per tick; only the latest candle's close is folded in, since the SMA/EMA
// state already carries the window history.
func (t *TrendFollowing) Evaluate(data common.ProcessedMarketData) common.TradingSignal {
	if len(data.Candles) < t.cfg.MinCandlesRequired {
		return common.TradingSignal{
			Action:     common.SignalHold,
			Confidence: 0,
			Reason:     "insufficient candle history",
			Timestamp:  data.Timestamp,
		}
	}

	latest := data.Candles[len(data.Candles)-1].Close

	shortVal := t.shortSMA.Update(latest)
	longVal := t.longSMA.Update(latest)
	rsiVal := t.rsi.Update(latest)
	macdVal := t.macd.Update(latest)

	if shortVal == nil || longVal == nil {
		return common.TradingSignal{Action: common.SignalHold, Confidence: 0, Reason: "warming up moving averages", Timestamp: data.Timestamp}
	}

	action := common.SignalHold
	confidence := 0.0
	reasons := make([]string, 0, 4)

	if t.prevShort != nil && t.prevLong != nil {
		goldenCross := t.prevShort.LessThanOrEqual(*t.prevLong) && shortVal.GreaterThan(*longVal)
		deathCross := t.prevShort.GreaterThanOrEqual(*t.prevLong) && shortVal.LessThan(*longVal)

		switch {
		case goldenCross:
			action = common.SignalBuy
			confidence = 0.6
			reasons = append(reasons, "golden cross: short SMA crossed above long SMA")
		case deathCross:
			action = common.SignalSell
			confidence = 0.6
			reasons = append(reasons, "death cross: short SMA crossed below long SMA")
		}
	}
	t.prevShort = shortVal
	t.prevLong = longVal

	if rsiVal != nil {
		switch {
		case action == common.SignalBuy && rsiVal.GreaterThan(t.cfg.RSIOverbought):
			confidence *= 0.5
			reasons = append(reasons, "RSI overbought, downgrading confidence")
		case action == common.SignalSell && rsiVal.LessThan(t.cfg.RSIOversold):
			confidence *= 0.5
			reasons = append(reasons, "RSI oversold, downgrading confidence")
		}
	}

	if macdVal != nil {
		switch {
		case action == common.SignalBuy && macdVal.Histogram.GreaterThan(decimal.Zero):
			confidence += 0.2
			reasons = append(reasons, "MACD histogram confirms bullish bias")
		case action == common.SignalBuy && macdVal.Histogram.LessThan(decimal.Zero):
			confidence -= 0.2
			reasons = append(reasons, "MACD histogram contradicts bullish bias")
		case action == common.SignalSell && macdVal.Histogram.LessThan(decimal.Zero):
			confidence += 0.2
			reasons = append(reasons, "MACD histogram confirms bearish bias")
		case action == common.SignalSell && macdVal.Histogram.GreaterThan(decimal.Zero):
			confidence -= 0.2
			reasons = append(reasons, "MACD histogram contradicts bearish bias")
		}
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "no SMA crossover detected")
	}

	indicators := map[string]common.IndicatorValue{
		"sma_short": common.ScalarValue(*shortVal),
		"sma_long":  common.ScalarValue(*longVal),
	}
	if rsiVal != nil {
		indicators["rsi"] = common.ScalarValue(*rsiVal)
	}
	if macdVal != nil {
		indicators["macd"] = common.ScalarValue(macdVal.MACD)
		indicators["macd_signal"] = common.ScalarValue(macdVal.Signal)
		indicators["macd_histogram"] = common.ScalarValue(macdVal.Histogram)
	}

	return common.TradingSignal{
		Action:     action,
		Confidence: confidence,
		Reason:     strings.Join(reasons, "; "),
		Timestamp:  data.Timestamp,
		Indicators: indicators,
	}
}
