package binance

import (
	"time"

	"github.com/ai-agentic-browser/trader-core/internal/config"
)

// Config decorates the core ExchangeConfig with Binance's URL defaulting.
type Config struct {
	config.ExchangeConfig
}

const (
	prodBaseURL    = "https://api.binance.com"
	prodWSBaseURL  = "wss://stream.binance.com:9443/stream"
	testnetBaseURL = "https://testnet.binance.vision"
	testnetWSURL   = "wss://testnet.binance.vision/stream"
)

// resolvedBaseURL returns the REST base URL, honoring an explicit override
// before falling back to the testnet/production default.
func (c Config) resolvedBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Testnet {
		return testnetBaseURL
	}
	return prodBaseURL
}

func (c Config) resolvedWSBaseURL() string {
	if c.WSBaseURL != "" {
		return c.WSBaseURL
	}
	if c.Testnet {
		return testnetWSURL
	}
	return prodWSBaseURL
}

func (c Config) recvWindowMillis() int64 {
	return int64(5 * time.Second / time.Millisecond)
}
