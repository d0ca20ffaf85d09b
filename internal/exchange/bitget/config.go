// Package bitget implements the Connector contract for Bitget spot: the
// prehash-based request signature, its v1/v2 market-endpoint split, the
// testnet paptrading sub-protocol, and a combined WebSocket adapter.
package bitget

import "github.com/ai-agentic-browser/trader-core/internal/config"

// Config decorates the core ExchangeConfig with Bitget's endpoint-version
// switch.
type Config struct {
	config.ExchangeConfig

	// UseV2MarketEndpoints switches spot market operations (candles,
	// ticker, depth) from the mandatory v1 paths to v2. Public informational
	// endpoints (symbol discovery) are always v2 regardless of this flag.
	UseV2MarketEndpoints bool
}

const (
	prodBaseURL = "https://api.bitget.com"
	prodWSURL   = "wss://ws.bitget.com/spot/v1/stream"
)

func (c Config) resolvedBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return prodBaseURL
}

func (c Config) resolvedWSURL() string {
	if c.WSBaseURL != "" {
		return c.WSBaseURL
	}
	return prodWSURL
}
