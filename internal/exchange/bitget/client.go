package bitget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/wsmanager"
	"github.com/ai-agentic-browser/trader-core/internal/ratelimit"
	"github.com/ai-agentic-browser/trader-core/internal/retry"
	"github.com/ai-agentic-browser/trader-core/pkg/observability"
)

// Client is the Bitget Connector. Each REST call passes through rate-limit
// acquire, then retry-policy execute, then (for signed endpoints) the
// prehash-based signature, then HTTP send, then error mapping.
type Client struct {
	logger      *observability.Logger
	cfg         Config
	httpClient  *http.Client
	limiter     *ratelimit.Limiter
	retryPolicy retry.Policy
	auth        *Authenticator
	ws          *wsmanager.Manager

	mu        sync.RWMutex
	connected bool

	latencyMu    sync.Mutex
	latencyStats common.LatencyStats
}

// NewClient builds a Bitget Connector from a venue-decorated Config.
func NewClient(logger *observability.Logger, cfg Config) *Client {
	limiter := ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstCapacity, cfg.RateLimit.PerEndpointLimit)
	retryPolicy := retry.Policy{
		MaxRetries:   cfg.Retry.MaxRetries,
		BaseDelay:    cfg.Retry.BaseDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		Exponential:  cfg.Retry.Exponential,
		JitterFactor: cfg.Retry.JitterFactor,
	}
	auth := NewAuthenticator(cfg.APIKey, cfg.APISecret, cfg.Passphrase, cfg.Testnet)

	c := &Client{
		logger:       logger,
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		limiter:      limiter,
		retryPolicy:  retryPolicy,
		auth:         auth,
		latencyStats: common.LatencyStats{LastUpdated: time.Now()},
	}
	c.ws = wsmanager.New(logger, cfg.WebSocket, cfg.resolvedWSURL(), &parser{})
	return c
}

func (c *Client) Configure(cfg interface{}) error {
	venueCfg, ok := cfg.(Config)
	if !ok {
		return fmt.Errorf("bitget: Configure expects bitget.Config")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = venueCfg
	c.auth = NewAuthenticator(venueCfg.APIKey, venueCfg.APISecret, venueCfg.Passphrase, venueCfg.Testnet)
	c.httpClient = &http.Client{Timeout: venueCfg.RequestTimeout}
	return nil
}

// Connect performs reachability (public symbols probe), a server-time fetch
// to update the authenticator's clock offset, and an authenticated balance
// probe. Any stage failing leaves the connector disconnected.
func (c *Client) Connect(ctx context.Context) error {
	if _, err := c.publicSymbols(ctx); err != nil {
		return err
	}

	before := time.Now()
	var timeData serverTimeData
	if err := c.get(ctx, "/api/v2/public/time", nil, false, &timeData); err != nil {
		return err
	}
	if ms, err := strconv.ParseInt(timeData.ServerTime, 10, 64); err == nil {
		c.auth.UpdateTimestampOffset(time.UnixMilli(ms), before)
	}

	if _, err := c.GetBalance(ctx); err != nil {
		return err
	}

	if err := c.ws.Connect(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	c.logger.Info(ctx, "connected to bitget", map[string]interface{}{"testnet": c.cfg.Testnet, "base_url": c.cfg.resolvedBaseURL()})
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	err := c.ws.Disconnect(ctx)
	c.logger.Info(ctx, "disconnected from bitget", nil)
	return err
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) ExchangeName() common.Exchange { return common.Bitget }

func (c *Client) requireConnected() error {
	if !c.IsConnected() {
		return &common.ConnectionError{Message: "bitget: operation before connect", Retryable: false}
	}
	return nil
}

// publicSymbols probes v2 public symbol discovery, always v2 regardless of
// UseV2MarketEndpoints (which governs spot market operations only).
func (c *Client) publicSymbols(ctx context.Context) ([]symbolInfo, error) {
	var symbols []symbolInfo
	if err := c.get(ctx, "/api/v2/spot/public/symbols", nil, false, &symbols); err != nil {
		return nil, err
	}
	return symbols, nil
}

// --- REST pipeline ---

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, bodyObj interface{}, signed bool, out interface{}) error {
	start := time.Now()
	if err := c.limiter.Acquire(ctx, 1, path); err != nil {
		return err
	}

	err := retry.Execute(ctx, c.retryPolicy, func(ctx context.Context) error {
		return c.send(ctx, method, path, params, bodyObj, signed, out)
	})

	c.recordLatency(time.Since(start).Microseconds())
	return err
}

func (c *Client) get(ctx context.Context, path string, params url.Values, signed bool, out interface{}) error {
	return c.doRequest(ctx, http.MethodGet, path, params, nil, signed, out)
}

func (c *Client) send(ctx context.Context, method, path string, params url.Values, bodyObj interface{}, signed bool, out interface{}) error {
	query := ""
	if params != nil && len(params) > 0 {
		query = "?" + params.Encode()
	}

	var bodyBytes []byte
	if bodyObj != nil {
		var err error
		bodyBytes, err = json.Marshal(bodyObj)
		if err != nil {
			return &common.ExchangeError{ErrorCode: "ENCODE", Message: err.Error(), Retryable: false}
		}
	}

	fullURL := c.cfg.resolvedBaseURL() + path + query

	var bodyReader io.Reader
	if len(bodyBytes) > 0 {
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return &common.ConnectionError{Message: err.Error(), Retryable: false}
	}
	req.Header.Set("Content-Type", "application/json")

	if signed {
		signBody := query
		if len(bodyBytes) > 0 {
			signBody = string(bodyBytes)
		}
		for k, v := range c.auth.Headers(method, path, signBody) {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &common.ConnectionError{Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &common.ConnectionError{Message: err.Error(), Retryable: true}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return MapError(resp.StatusCode, respBody)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &common.ExchangeError{ErrorCode: "DECODE", Message: err.Error(), Retryable: false}
	}
	if env.Code != "" && env.Code != successCode {
		return mapCode(env.Code, env.Msg)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &common.ExchangeError{ErrorCode: "DECODE", Message: err.Error(), Retryable: false}
		}
	}
	return nil
}

func (c *Client) recordLatency(micros int64) {
	c.latencyMu.Lock()
	defer c.latencyMu.Unlock()
	s := &c.latencyStats
	if s.SampleCount == 0 {
		s.MinLatencyMicros, s.MaxLatencyMicros, s.AvgLatencyMicros = micros, micros, micros
	} else {
		if micros < s.MinLatencyMicros {
			s.MinLatencyMicros = micros
		}
		if micros > s.MaxLatencyMicros {
			s.MaxLatencyMicros = micros
		}
		s.AvgLatencyMicros = (s.AvgLatencyMicros*s.SampleCount + micros) / (s.SampleCount + 1)
	}
	s.SampleCount++
	s.LastUpdated = time.Now()
}

// marketPathPrefix returns "/api/spot/v1/market" or "/api/v2/spot/market"
// depending on UseV2MarketEndpoints.
func (c *Client) marketPathPrefix() string {
	if c.cfg.UseV2MarketEndpoints {
		return "/api/v2/spot/market"
	}
	return "/api/spot/v1/market"
}

// --- Market data ---

func (c *Client) GetCandles(ctx context.Context, symbol string, interval common.TimeFrame, limit int) ([]common.Candlestick, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))
	params.Set("period", intervalWire(interval))
	params.Set("granularity", intervalWire(interval))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var rows []candleRow
	if err := c.get(ctx, c.marketPathPrefix()+"/candles", params, false, &rows); err != nil {
		return nil, err
	}
	candles := make([]common.Candlestick, 0, len(rows))
	for _, row := range rows {
		if candle, ok := toCandle(normalizeSymbol(symbol), interval, row); ok {
			candles = append(candles, candle)
		}
	}
	return candles, nil
}

func (c *Client) GetTicker(ctx context.Context, symbol string) (*common.Ticker, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))

	var data tickerData
	if err := c.get(ctx, c.marketPathPrefix()+"/ticker", params, false, &data); err != nil {
		return nil, err
	}
	return toTicker(normalizeSymbol(symbol), data), nil
}

func (c *Client) GetOrderBook(ctx context.Context, symbol string, limit int) (*common.OrderBook, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var data depthData
	if err := c.get(ctx, c.marketPathPrefix()+"/depth", params, false, &data); err != nil {
		return nil, err
	}
	return toOrderBook(normalizeSymbol(symbol), data), nil
}

// --- Account ---

func (c *Client) GetBalance(ctx context.Context) (map[string]decimal.Decimal, error) {
	var assets []accountAssetData
	if err := c.doRequest(ctx, http.MethodGet, "/api/v2/spot/account/assets", nil, nil, true, &assets); err != nil {
		return nil, err
	}
	return toBalances(assets), nil
}

func (c *Client) GetPositions(ctx context.Context) ([]common.Position, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (c *Client) GetPosition(ctx context.Context, symbol string) (*common.Position, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	return nil, nil
}

// --- Orders ---

func (c *Client) PlaceOrder(ctx context.Context, order *common.Order) (*common.Order, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	body := map[string]string{
		"symbol":    normalizeSymbol(order.Symbol),
		"side":      orderSideWire(order.Action),
		"orderType": orderTypeWire(order.Price),
		"size":      order.Quantity.String(),
		"force":     "gtc",
	}
	if orderTypeWire(order.Price) == "limit" {
		body["price"] = order.Price.String()
	}

	var data orderData
	if err := c.doRequest(ctx, http.MethodPost, "/api/v2/spot/trade/place-order", nil, body, true, &data); err != nil {
		return nil, err
	}
	return toOrder(data), nil
}

func (c *Client) CancelOrder(ctx context.Context, id, symbol string) (*common.Order, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	body := map[string]string{"symbol": normalizeSymbol(symbol), "orderId": id}

	var data orderData
	if err := c.doRequest(ctx, http.MethodPost, "/api/v2/spot/trade/cancel-order", nil, body, true, &data); err != nil {
		return nil, err
	}
	return toOrder(data), nil
}

func (c *Client) GetOrder(ctx context.Context, id, symbol string) (*common.Order, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))
	params.Set("orderId", id)

	var data orderData
	if err := c.doRequest(ctx, http.MethodGet, "/api/v2/spot/trade/orderInfo", params, nil, true, &data); err != nil {
		return nil, err
	}
	return toOrder(data), nil
}

func (c *Client) GetOrders(ctx context.Context, symbol string) ([]common.Order, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", normalizeSymbol(symbol))
	}

	var rows []orderData
	if err := c.doRequest(ctx, http.MethodGet, "/api/v2/spot/trade/unfilled-orders", params, nil, true, &rows); err != nil {
		return nil, err
	}
	orders := make([]common.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, *toOrder(row))
	}
	return orders, nil
}

func (c *Client) ClosePosition(ctx context.Context, symbol string) (*common.Order, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	base, _, ok := splitPair(symbol)
	if !ok {
		return nil, &common.OrderError{ErrorCode: "UNKNOWN_SYMBOL", Message: "cannot split symbol " + symbol, Retryable: false}
	}

	balances, err := c.GetBalance(ctx)
	if err != nil {
		return nil, err
	}
	qty := balances[base]
	if qty.LessThanOrEqual(decimal.Zero) {
		return nil, &common.OrderError{ErrorCode: "NO_POSITION", Message: "no position", Retryable: false}
	}

	return c.PlaceOrder(ctx, &common.Order{
		Symbol:   symbol,
		Action:   common.OrderActionShort,
		Type:     common.OrderTypeMarket,
		Quantity: qty,
	})
}

// --- Streaming ---

func (c *Client) SubscribeCandles(ctx context.Context, symbol string, interval common.TimeFrame, cb common.SubscriptionCallback) (string, error) {
	if err := c.requireConnected(); err != nil {
		return "", err
	}
	return c.ws.Subscribe(candleChannel(symbol, interval), cb)
}

func (c *Client) SubscribeTicker(ctx context.Context, symbol string, cb common.SubscriptionCallback) (string, error) {
	if err := c.requireConnected(); err != nil {
		return "", err
	}
	return c.ws.Subscribe(tickerChannel(symbol), cb)
}

// SubscribeOrderUpdates would require the venue's private trade channel
// (login handshake over the same socket); not wired since order state is
// tracked through REST polling instead.
func (c *Client) SubscribeOrderUpdates(ctx context.Context, cb common.SubscriptionCallback) (string, error) {
	if err := c.requireConnected(); err != nil {
		return "", err
	}
	return "", &common.UnsupportedExchangeError{Exchange: common.Bitget}
}

func (c *Client) Unsubscribe(id string) error { return c.ws.Unsubscribe(id) }
func (c *Client) UnsubscribeAll() error       { return c.ws.UnsubscribeAll() }

// --- Metrics ---

func (c *Client) GetLatencyStats() common.LatencyStats {
	c.latencyMu.Lock()
	defer c.latencyMu.Unlock()
	return c.latencyStats
}

func (c *Client) GetConnectionStats() common.ConnectionStats {
	stats := c.ws.Stats()
	stats.IsConnected = c.IsConnected()
	return stats
}
