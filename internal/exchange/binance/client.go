// Package binance implements the Connector contract for Binance spot: HMAC
// request signing, the venue's error-code table, and a combined-stream
// WebSocket adapter, composed over the shared rate limiter, retry policy
// and WebSocket Manager.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/wsmanager"
	"github.com/ai-agentic-browser/trader-core/internal/ratelimit"
	"github.com/ai-agentic-browser/trader-core/internal/retry"
	"github.com/ai-agentic-browser/trader-core/pkg/observability"
)

// Client is the Binance Connector. Each REST call passes through rate-limit
// acquire, then retry-policy execute, then (for signed endpoints) HMAC
// signing, then HTTP send, then error mapping.
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

// NewClient builds a Binance Connector from a venue-decorated Config.
func NewClient(logger *observability.Logger, cfg Config) *Client {
	limiter := ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstCapacity, cfg.RateLimit.PerEndpointLimit)
	retryPolicy := retry.Policy{
		MaxRetries:   cfg.Retry.MaxRetries,
		BaseDelay:    cfg.Retry.BaseDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		Exponential:  cfg.Retry.Exponential,
		JitterFactor: cfg.Retry.JitterFactor,
	}
	auth := NewAuthenticator(cfg.APIKey, cfg.APISecret, cfg.recvWindowMillis())

	c := &Client{
		logger:      logger,
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: cfg.RequestTimeout},
		limiter:     limiter,
		retryPolicy: retryPolicy,
		auth:        auth,
		latencyStats: common.LatencyStats{LastUpdated: time.Now()},
	}
	c.ws = wsmanager.New(logger, cfg.WebSocket, cfg.resolvedWSBaseURL(), &parser{})
	return c
}

func (c *Client) Configure(cfg interface{}) error {
	venueCfg, ok := cfg.(Config)
	if !ok {
		return fmt.Errorf("binance: Configure expects binance.Config")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = venueCfg
	c.auth = NewAuthenticator(venueCfg.APIKey, venueCfg.APISecret, venueCfg.recvWindowMillis())
	c.httpClient = &http.Client{Timeout: venueCfg.RequestTimeout}
	return nil
}

// Connect performs the three-stage handshake: unauthenticated reachability
// ping, server-time fetch to update the authenticator's clock offset, and
// one authenticated balance probe to validate credentials. Any stage
// failing leaves the connector disconnected.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.get(ctx, "/api/v3/ping", nil, false, nil); err != nil {
		return err
	}

	before := time.Now()
	var serverTime serverTimeResponse
	if err := c.get(ctx, "/api/v3/time", nil, false, &serverTime); err != nil {
		return err
	}
	c.auth.UpdateTimestampOffset(time.UnixMilli(serverTime.ServerTime), before)

	if _, err := c.GetBalance(ctx); err != nil {
		return err
	}

	if err := c.ws.Connect(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	c.logger.Info(ctx, "connected to binance", map[string]interface{}{"testnet": c.cfg.Testnet, "base_url": c.cfg.resolvedBaseURL()})
	return nil
}

func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	err := c.ws.Disconnect(ctx)
	c.logger.Info(ctx, "disconnected from binance", nil)
	return err
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) ExchangeName() common.Exchange { return common.Binance }

func (c *Client) requireConnected() error {
	if !c.IsConnected() {
		return &common.ConnectionError{Message: "binance: operation before connect", Retryable: false}
	}
	return nil
}

// --- REST pipeline ---

// doRequest runs one rate-limited, retried, optionally-signed REST call and
// decodes the JSON response body into out (if non-nil).
func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values, signed bool, out interface{}) error {
	start := time.Now()
	weight := 1.0

	if err := c.limiter.Acquire(ctx, weight, endpoint); err != nil {
		return err
	}

	err := retry.Execute(ctx, c.retryPolicy, func(ctx context.Context) error {
		return c.send(ctx, method, endpoint, params, signed, out)
	})

	c.recordLatency(time.Since(start).Microseconds())
	return err
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, signed bool, out interface{}) error {
	return c.doRequest(ctx, http.MethodGet, endpoint, params, signed, out)
}

func (c *Client) send(ctx context.Context, method, endpoint string, params url.Values, signed bool, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}

	var query string
	var body io.Reader
	if signed {
		query = c.auth.Sign(params)
	} else {
		query = params.Encode()
	}

	fullURL := c.cfg.resolvedBaseURL() + endpoint
	if method == http.MethodGet || method == http.MethodDelete {
		if query != "" {
			fullURL += "?" + query
		}
	} else if query != "" {
		body = strings.NewReader(query)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return &common.ConnectionError{Message: err.Error(), Retryable: false}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if c.auth.APIKey() != "" {
		req.Header.Set(APIKeyHeader, c.auth.APIKey())
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

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
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

// --- Market data ---

func (c *Client) GetCandles(ctx context.Context, symbol string, interval common.TimeFrame, limit int) ([]common.Candlestick, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))
	params.Set("interval", intervalWire(interval))
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var rows []klineResponse
	if err := c.get(ctx, "/api/v3/klines", params, false, &rows); err != nil {
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

	var r tickerResponse
	if err := c.get(ctx, "/api/v3/ticker/24hr", params, false, &r); err != nil {
		return nil, err
	}
	return toTicker(normalizeSymbol(symbol), r), nil
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

	var r orderBookResponse
	if err := c.get(ctx, "/api/v3/depth", params, false, &r); err != nil {
		return nil, err
	}
	return toOrderBook(normalizeSymbol(symbol), r), nil
}

// --- Account ---

func (c *Client) GetBalance(ctx context.Context) (map[string]decimal.Decimal, error) {
	var r accountResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/account", url.Values{}, true, &r); err != nil {
		return nil, err
	}
	return toBalances(r), nil
}

// GetPositions is always empty for a spot venue: Binance spot has no
// authoritative position query, unlike a margin or futures account.
func (c *Client) GetPositions(ctx context.Context) ([]common.Position, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	return nil, nil
}

// GetPosition mirrors GetPositions and returns nil, nil rather than
// fabricate a Position the venue cannot actually report.
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
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(order.Symbol))
	params.Set("side", orderSideWire(order.Action))
	orderType := orderTypeWire(order.Price)
	params.Set("type", orderType)
	params.Set("quantity", order.Quantity.String())
	if orderType == "LIMIT" {
		params.Set("price", order.Price.String())
		tif := order.TimeInForce
		if tif == "" {
			tif = common.TimeInForceGTC
		}
		params.Set("timeInForce", string(tif))
	}

	var r orderResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v3/order", params, true, &r); err != nil {
		return nil, err
	}
	return toOrder(r), nil
}

func (c *Client) CancelOrder(ctx context.Context, id, symbol string) (*common.Order, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))
	params.Set("orderId", id)

	var r orderResponse
	if err := c.doRequest(ctx, http.MethodDelete, "/api/v3/order", params, true, &r); err != nil {
		return nil, err
	}
	return toOrder(r), nil
}

func (c *Client) GetOrder(ctx context.Context, id, symbol string) (*common.Order, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", normalizeSymbol(symbol))
	params.Set("orderId", id)

	var r orderResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/order", params, true, &r); err != nil {
		return nil, err
	}
	return toOrder(r), nil
}

func (c *Client) GetOrders(ctx context.Context, symbol string) ([]common.Order, error) {
	if err := c.requireConnected(); err != nil {
		return nil, err
	}
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", normalizeSymbol(symbol))
	}

	var rows []orderResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/openOrders", params, true, &rows); err != nil {
		return nil, err
	}
	orders := make([]common.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, *toOrder(row))
	}
	return orders, nil
}

// ClosePosition queries the base-asset balance and, if positive, submits a
// MARKET opposite-side order for that quantity.
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

// splitPair best-effort splits a Binance symbol on a known quote suffix.
func splitPair(symbol string) (base, quote string, ok bool) {
	sym := normalizeSymbol(symbol)
	for _, q := range []string{"USDT", "USDC", "BUSD", "BTC", "ETH"} {
		if len(sym) > len(q) && strings.HasSuffix(sym, q) {
			return sym[:len(sym)-len(q)], q, true
		}
	}
	return "", "", false
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

// SubscribeOrderUpdates would require the venue's listenKey-based user-data
// stream; not wired here since the trading core authenticates order state
// through REST polling (GetOrder/GetOrders) rather than the user-data
// stream.
func (c *Client) SubscribeOrderUpdates(ctx context.Context, cb common.SubscriptionCallback) (string, error) {
	if err := c.requireConnected(); err != nil {
		return "", err
	}
	return "", &common.UnsupportedExchangeError{Exchange: common.Binance}
}

func (c *Client) Unsubscribe(id string) error    { return c.ws.Unsubscribe(id) }
func (c *Client) UnsubscribeAll() error          { return c.ws.UnsubscribeAll() }

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
