package binance

import (
	"github.com/ai-agentic-browser/trader-core/internal/config"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/factory"
	"github.com/ai-agentic-browser/trader-core/pkg/observability"
)

func init() {
	factory.Register(config.Binance, func(cfg config.ExchangeConfig) common.Connector {
		logger := observability.NewLogger(config.ObservabilityConfig{ServiceName: "binance-connector", LogLevel: "info", LogFormat: "json"})
		return NewClient(logger, Config{ExchangeConfig: cfg})
	})
}
