// Package pattern defines the consumer-side contract for the external
// pattern-discovery/learning pipeline: the core only scores stored
// patterns against current market conditions through this interface;
// scoring internals belong to that external collaborator.
package pattern

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
)

// DefaultMinRelevance is the floor below which a match is not worth
// reporting.
const DefaultMinRelevance = 0.6

// MarketConditions is the snapshot a Matcher scores patterns against.
type MarketConditions struct {
	Exchange     common.Exchange
	Symbol       string
	CurrentPrice decimal.Decimal
	Indicators   map[string]common.IndicatorValue
	Candles      []common.Candlestick
	Timestamp    time.Time
}

// PatternMatch is one scored pattern result. RelevanceScore is the
// similarity of the stored pattern's fingerprint to conditions;
// Confidence is derived from the pattern's historical win-rate.
type PatternMatch struct {
	PatternID      string
	RelevanceScore float64
	Confidence     float64
}

// Matcher scores stored patterns against MarketConditions and returns the
// top maxResults with RelevanceScore >= minRelevance, ranked descending by
// relevance.
type Matcher interface {
	Match(conditions MarketConditions, maxResults int, minRelevance float64) ([]PatternMatch, error)
}

// NoopMatcher is a Matcher that never finds anything, suitable for
// deployments or tests that do not wire the external pattern service.
type NoopMatcher struct{}

// Match always returns an empty result set.
func (NoopMatcher) Match(conditions MarketConditions, maxResults int, minRelevance float64) ([]PatternMatch, error) {
	return nil, nil
}

// Best returns the highest-relevance match, or nil if matches is empty.
func Best(matches []PatternMatch) *PatternMatch {
	if len(matches) == 0 {
		return nil
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.RelevanceScore > best.RelevanceScore {
			best = m
		}
	}
	return &best
}
