// Package signalgen fuses a raw strategy signal with an optional pattern
// match, then filters the result by current position state and a
// confidence threshold, per the ordered rules the Trader Runtime depends
// on before translating a signal into an order.
package signalgen

import (
	"fmt"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/internal/pattern"
)

// Config parameterizes fusion and filtering.
type Config struct {
	MinConfidenceThreshold float64
	PatternWeight          float64 // w_pattern in the fusion formula
}

// DefaultConfig mirrors the spec's example thresholds.
func DefaultConfig() Config {
	return Config{MinConfidenceThreshold: 0.5, PatternWeight: 0.3}
}

// Generate fuses raw with an optional pattern match and filters the result
// against position, applying the filter rules in order:
//  1. duplicate same-side action while a position is open -> HOLD
//  2. CLOSE always accepted when a position exists
//  3. confidence below threshold -> HOLD
func Generate(cfg Config, raw common.TradingSignal, match *pattern.PatternMatch, position *common.Position) common.TradingSignal {
	final := raw
	final.Confidence = fuse(cfg, raw.Confidence, match)
	if match != nil {
		final.MatchedPatternID = match.PatternID
	}

	filteredToHold := false

	if position != nil {
		duplicateLong := raw.Action == common.SignalBuy && position.Action == common.OrderActionLong
		duplicateShort := raw.Action == common.SignalSell && position.Action == common.OrderActionShort
		if duplicateLong || duplicateShort {
			side := "long"
			if duplicateShort {
				side = "short"
			}
			final.Action = common.SignalHold
			final.Reason = fmt.Sprintf("Already have %s position; %s", side, raw.Reason)
			filteredToHold = true
		}
	}

	if !filteredToHold && raw.Action == common.SignalClose {
		if position == nil {
			final.Action = common.SignalHold
			final.Reason = "CLOSE requested but no open position; " + raw.Reason
			filteredToHold = true
		} else {
			final.Action = common.SignalClose
		}
	}

	if !filteredToHold && final.Action != common.SignalClose && final.Confidence < cfg.MinConfidenceThreshold {
		final.Action = common.SignalHold
		final.Reason = fmt.Sprintf("confidence %.2f below threshold %.2f; %s", final.Confidence, cfg.MinConfidenceThreshold, raw.Reason)
		filteredToHold = true
	}

	if filteredToHold {
		final.Confidence *= 0.5
	}

	if final.Action == common.SignalClose && position != nil {
		if position.IsProfitable() {
			final.Confidence += 0.1
		} else {
			final.Confidence -= 0.1
		}
	}

	final.Confidence = clamp01(final.Confidence)
	return final
}

func fuse(cfg Config, strategyConfidence float64, match *pattern.PatternMatch) float64 {
	if match == nil {
		return strategyConfidence
	}
	return (1-cfg.PatternWeight)*strategyConfidence + cfg.PatternWeight*match.Confidence
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
