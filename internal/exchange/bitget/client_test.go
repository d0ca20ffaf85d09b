package bitget

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ai-agentic-browser/trader-core/internal/config"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/pkg/observability"
)

type ClientTestSuite struct {
	suite.Suite
	server *httptest.Server
	client *Client
}

func (s *ClientTestSuite) newClient(handler http.HandlerFunc) *Client {
	s.server = httptest.NewServer(handler)
	cfg := Config{ExchangeConfig: config.ExchangeConfig{
		Exchange:       config.Bitget,
		APIKey:         "key",
		APISecret:      "secret",
		Passphrase:     "pass",
		BaseURL:        s.server.URL,
		RateLimit:      config.RateLimitConfig{RequestsPerSecond: 100, BurstCapacity: 100},
		Retry:          config.RetryConfig{MaxRetries: 0},
		WebSocket:      config.DefaultWebSocket(),
		ConnectTimeout: time.Second,
		RequestTimeout: time.Second,
	}}
	c := NewClient(testLogger(), cfg)
	c.connected = true
	return c
}

func testLogger() *observability.Logger {
	return observability.NewLogger(config.ObservabilityConfig{ServiceName: "bitget-test", LogLevel: "error", LogFormat: "text"})
}

func (s *ClientTestSuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
	}
}

func envelopeOK(data interface{}) envelope {
	raw, _ := json.Marshal(data)
	return envelope{Code: successCode, Msg: "success", Data: raw}
}

func (s *ClientTestSuite) TestGetTickerDecodesResponse() {
	c := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(s.T(), "/api/spot/v1/market/ticker", r.URL.Path)
		_ = json.NewEncoder(w).Encode(envelopeOK(tickerData{
			Symbol: "BTCUSDT", Close: "50000", BidPr: "49990", AskPr: "50010",
		}))
	})

	ticker, err := c.GetTicker(context.Background(), "btcusdt")
	require.NoError(s.T(), err)
	assert.True(s.T(), decimal.NewFromInt(50000).Equal(ticker.Last))
}

func (s *ClientTestSuite) TestGetTickerRespectsV2MarketEndpointsFlag() {
	c := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(s.T(), "/api/v2/spot/market/ticker", r.URL.Path)
		_ = json.NewEncoder(w).Encode(envelopeOK(tickerData{Symbol: "BTCUSDT", Close: "50000"}))
	})
	c.cfg.UseV2MarketEndpoints = true

	_, err := c.GetTicker(context.Background(), "BTCUSDT")
	require.NoError(s.T(), err)
}

func (s *ClientTestSuite) TestPlaceOrderSignsRequest() {
	c := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(s.T(), "/api/v2/spot/trade/place-order", r.URL.Path)
		assert.NotEmpty(s.T(), r.Header.Get("ACCESS-SIGN"))
		assert.Equal(s.T(), "key", r.Header.Get("ACCESS-KEY"))
		assert.Equal(s.T(), "pass", r.Header.Get("ACCESS-PASSPHRASE"))
		_ = json.NewEncoder(w).Encode(envelopeOK(orderData{
			Symbol: "BTCUSDT", OrderID: "1", Status: "full_fill", Size: "0.01",
			FilledQty: "0.01", Price: "50000", Side: "buy", OrderType: "market",
		}))
	})

	order, err := c.PlaceOrder(context.Background(), &common.Order{
		Symbol: "BTCUSDT", Action: common.OrderActionLong, Type: common.OrderTypeMarket,
		Quantity: decimal.NewFromFloat(0.01),
	})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), common.OrderStatusFilled, order.Status)
}

func (s *ClientTestSuite) TestErrorResponseMapsThroughPipeline() {
	c := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(apiErrorResponse{Code: "43012", Msg: "insufficient balance"})
	})

	_, err := c.PlaceOrder(context.Background(), &common.Order{
		Symbol: "BTCUSDT", Action: common.OrderActionLong, Type: common.OrderTypeMarket,
		Quantity: decimal.NewFromFloat(0.01),
	})
	var fundsErr *common.InsufficientFundsError
	assert.ErrorAs(s.T(), err, &fundsErr)
}

func (s *ClientTestSuite) TestApplicationLevelErrorOnHTTP200() {
	c := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(envelope{Code: "40099", Msg: "environment mismatch"})
	})

	_, err := c.GetBalance(context.Background())
	var authErr *common.AuthenticationError
	assert.ErrorAs(s.T(), err, &authErr)
}

func (s *ClientTestSuite) TestOpsBeforeConnectFail() {
	cfg := Config{ExchangeConfig: config.ExchangeConfig{
		Exchange: config.Bitget, APIKey: "k", APISecret: "s", Passphrase: "p",
		RateLimit:      config.DefaultRateLimit(),
		Retry:          config.DefaultRetryConfig(),
		WebSocket:      config.DefaultWebSocket(),
		ConnectTimeout: time.Second, RequestTimeout: time.Second,
	}}
	c := NewClient(testLogger(), cfg)

	_, err := c.GetTicker(context.Background(), "BTCUSDT")
	var connErr *common.ConnectionError
	assert.ErrorAs(s.T(), err, &connErr)
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

// --- Environment auto-detection ---

type EnvDetectionTestSuite struct {
	suite.Suite
	server *httptest.Server
}

func (s *EnvDetectionTestSuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
	}
}

func (s *EnvDetectionTestSuite) baseConfig() Config {
	return Config{ExchangeConfig: config.ExchangeConfig{
		Exchange:       config.Bitget,
		APIKey:         "key",
		APISecret:      "secret",
		Passphrase:     "pass",
		BaseURL:        s.server.URL,
		RateLimit:      config.RateLimitConfig{RequestsPerSecond: 100, BurstCapacity: 100},
		Retry:          config.RetryConfig{MaxRetries: 0},
		WebSocket:      config.DefaultWebSocket(),
		ConnectTimeout: time.Second,
		RequestTimeout: time.Second,
	}}
}

// TestDetectEnvironmentFallsBackToProduction simulates credentials that are
// production-only: the testnet attempt (paptrading header set) gets 40099,
// and the retry without the header succeeds.
func (s *EnvDetectionTestSuite) TestDetectEnvironmentFallsBackToProduction() {
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("paptrading") == "1" {
			_ = json.NewEncoder(w).Encode(envelope{Code: environmentMismatchCode, Msg: "environment mismatch"})
			return
		}
		_ = json.NewEncoder(w).Encode(envelopeOK([]accountAssetData{}))
	}))

	result, err := DetectEnvironment(context.Background(), s.baseConfig())
	require.NoError(s.T(), err)
	assert.False(s.T(), result.Testnet)
}

// TestDetectEnvironmentStaysOnTestnetWhenItSucceeds simulates credentials
// that work fine against testnet, so no fallback attempt is needed.
func (s *EnvDetectionTestSuite) TestDetectEnvironmentStaysOnTestnetWhenItSucceeds() {
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(envelopeOK([]accountAssetData{}))
	}))

	result, err := DetectEnvironment(context.Background(), s.baseConfig())
	require.NoError(s.T(), err)
	assert.True(s.T(), result.Testnet)
}

// TestDetectEnvironmentPropagatesOtherErrors simulates a non-environment
// error (e.g. a genuinely bad key), which must not trigger a fallback.
func (s *EnvDetectionTestSuite) TestDetectEnvironmentPropagatesOtherErrors() {
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(envelope{Code: "40001", Msg: "bad signature"})
	}))

	_, err := DetectEnvironment(context.Background(), s.baseConfig())
	var authErr *common.AuthenticationError
	assert.ErrorAs(s.T(), err, &authErr)
}

func TestEnvDetectionSuite(t *testing.T) {
	suite.Run(t, new(EnvDetectionTestSuite))
}
