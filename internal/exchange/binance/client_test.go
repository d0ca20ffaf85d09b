package binance

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
		Exchange:       config.Binance,
		APIKey:         "key",
		APISecret:      "secret",
		BaseURL:        s.server.URL,
		RateLimit:      config.RateLimitConfig{RequestsPerSecond: 100, BurstCapacity: 100},
		Retry:          config.RetryConfig{MaxRetries: 0},
		WebSocket:      config.DefaultWebSocket(),
		ConnectTimeout: time.Second,
		RequestTimeout: time.Second,
	}}
	c := NewClient(testLogger(), cfg)
	c.connected = true // bypass the WS handshake; REST pipeline is under test here
	return c
}

func testLogger() *observability.Logger {
	return observability.NewLogger(config.ObservabilityConfig{ServiceName: "binance-test", LogLevel: "error", LogFormat: "text"})
}

func (s *ClientTestSuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
	}
}

func (s *ClientTestSuite) TestGetTickerDecodesResponse() {
	c := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(s.T(), "/api/v3/ticker/24hr", r.URL.Path)
		_ = json.NewEncoder(w).Encode(tickerResponse{
			Symbol: "BTCUSDT", LastPrice: "50000", BidPrice: "49990", AskPrice: "50010",
		})
	})

	ticker, err := c.GetTicker(context.Background(), "btcusdt")
	require.NoError(s.T(), err)
	assert.True(s.T(), decimal.NewFromInt(50000).Equal(ticker.Last))
}

func (s *ClientTestSuite) TestPlaceOrderSignsRequest() {
	c := s.newClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(s.T(), "/api/v3/order", r.URL.Path)
		assert.Contains(s.T(), r.URL.RawQuery, "signature=")
		assert.Equal(s.T(), "key", r.Header.Get(APIKeyHeader))
		_ = json.NewEncoder(w).Encode(orderResponse{
			Symbol: "BTCUSDT", OrderID: 1, Status: "FILLED", OrigQty: "0.01",
			ExecutedQty: "0.01", Price: "50000", Side: "BUY", Type: "MARKET",
		})
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
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(apiErrorResponse{Code: -2010, Msg: "insufficient balance"})
	})

	_, err := c.PlaceOrder(context.Background(), &common.Order{
		Symbol: "BTCUSDT", Action: common.OrderActionLong, Type: common.OrderTypeMarket,
		Quantity: decimal.NewFromFloat(0.01),
	})
	var fundsErr *common.InsufficientFundsError
	assert.ErrorAs(s.T(), err, &fundsErr)
}

func (s *ClientTestSuite) TestOpsBeforeConnectFail() {
	cfg := Config{ExchangeConfig: config.ExchangeConfig{
		Exchange: config.Binance, APIKey: "k", APISecret: "s",
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
