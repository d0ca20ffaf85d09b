package bitget

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/ai-agentic-browser/trader-core/internal/config"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/pkg/observability"
)

// noopLogger backs the disposable clients these helpers spin up; callers
// that want probe activity logged use their own configured Client instead.
func noopLogger() *observability.Logger {
	return observability.NewLogger(config.ObservabilityConfig{ServiceName: "bitget-probe", LogLevel: "error", LogFormat: "text"})
}

// EnvironmentProbeResult records which environment a credential pair
// actually works against.
type EnvironmentProbeResult struct {
	Testnet bool
	BaseURL string
}

// DetectEnvironment tries the credentials against testnet first (the
// paptrading sub-protocol), falling back to production when the venue
// reports an environment mismatch (40099). Any other error is returned
// as-is without a fallback attempt, since it does not indicate the wrong
// environment. Callers that already know the environment should set
// cfg.Testnet explicitly and skip this helper.
func DetectEnvironment(ctx context.Context, cfg Config) (EnvironmentProbeResult, error) {
	testnetCfg := cfg
	testnetCfg.Testnet = true
	if err := probeBalance(ctx, testnetCfg); err == nil {
		return EnvironmentProbeResult{Testnet: true, BaseURL: testnetCfg.resolvedBaseURL()}, nil
	} else if !isEnvironmentMismatch(err) {
		return EnvironmentProbeResult{}, err
	}

	prodCfg := cfg
	prodCfg.Testnet = false
	if err := probeBalance(ctx, prodCfg); err != nil {
		return EnvironmentProbeResult{}, err
	}
	return EnvironmentProbeResult{Testnet: false, BaseURL: prodCfg.resolvedBaseURL()}, nil
}

// isEnvironmentMismatch reports whether err is specifically the venue's
// environment-mismatch signal (code 40099), not any authentication failure
// — a bad key or signature must propagate, not trigger a fallback attempt.
func isEnvironmentMismatch(err error) bool {
	var authErr *common.AuthenticationError
	if errors.As(err, &authErr) {
		return strings.HasPrefix(authErr.Message, "environment mismatch")
	}
	return false
}

// probeBalance builds a disposable client against cfg and attempts a single
// authenticated balance call, the cheapest signed request available.
func probeBalance(ctx context.Context, cfg Config) error {
	client := NewClient(noopLogger(), cfg)
	_, err := client.GetBalance(ctx)
	return err
}

const (
	symbolProbeBudget = 20
	symbolProbeTarget = 5
)

// V1CompatibleSymbols enumerates online v2 symbols and probes each against
// the v1 ticker endpoint, returning the first symbolProbeTarget symbols that
// respond successfully (out of at most symbolProbeBudget probed), for
// callers that need to know which symbols the mandatory-by-default v1
// market path actually serves.
func V1CompatibleSymbols(ctx context.Context, cfg Config) ([]string, error) {
	client := NewClient(noopLogger(), cfg)
	symbols, err := client.publicSymbols(ctx)
	if err != nil {
		return nil, err
	}

	v1Client := NewClient(noopLogger(), cfg)
	v1Client.cfg.UseV2MarketEndpoints = false

	compatible := make([]string, 0, symbolProbeTarget)
	probed := 0
	for _, s := range symbols {
		if s.Status != "" && s.Status != "online" {
			continue
		}
		if probed >= symbolProbeBudget || len(compatible) >= symbolProbeTarget {
			break
		}
		probed++

		params := url.Values{}
		params.Set("symbol", s.Symbol)
		var data tickerData
		if err := v1Client.get(ctx, "/api/spot/v1/market/ticker", params, false, &data); err == nil {
			compatible = append(compatible, s.Symbol)
		}
	}
	return compatible, nil
}
