package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/trader-core/internal/config"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/factory"
	"github.com/ai-agentic-browser/trader-core/internal/pattern"
	"github.com/ai-agentic-browser/trader-core/internal/signalgen"
	"github.com/ai-agentic-browser/trader-core/internal/strategy"
	"github.com/ai-agentic-browser/trader-core/internal/trader"
	"github.com/ai-agentic-browser/trader-core/pkg/observability"
)

// PositionDTO carries a cached Position over the wire, decimal fields as
// strings per the persisted-state layout's lexical-equivalence rule.
type PositionDTO struct {
	Action       string `json:"action"`
	Quantity     string `json:"quantity"`
	EntryPrice   string `json:"entry_price"`
	CurrentPrice string `json:"current_price"`
}

// TraderDTO is the wire shape for trader CRUD. Status is always translated
// through toWireStatus; it never leaks the internal CREATED/TERMINATED
// vocabulary.
type TraderDTO struct {
	ID       string       `json:"id"`
	Exchange string       `json:"exchange"`
	Symbol   string       `json:"symbol"`
	Status   string       `json:"status"`
	Budget   string       `json:"budget"`
	Leverage string       `json:"leverage"`
	Position *PositionDTO `json:"position,omitempty"`
}

// CreateTraderRequest is the create-trader request body. Secrets are
// accepted here and handed straight to the Connector; this core never
// persists them.
type CreateTraderRequest struct {
	Exchange   string `json:"exchange" binding:"required"`
	Symbol     string `json:"symbol" binding:"required"`
	APIKey     string `json:"apiKey" binding:"required"`
	APISecret  string `json:"apiSecret" binding:"required"`
	Passphrase string `json:"passphrase"`
	Testnet    bool   `json:"testnet"`
	Budget     string `json:"budget" binding:"required"`
	Leverage   string `json:"leverage"`
}

// PatchStatusRequest carries one of the wire-vocabulary status values.
type PatchStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// PatchBalanceRequest carries a new per-trade budget. PatchBalance records it
// on the registry entry and in the returned DTO; a running Trader keeps
// sizing orders with the budget it was created with.
type PatchBalanceRequest struct {
	Budget string `json:"budget" binding:"required"`
}

// ConnectionTestRequest exercises a disposable Connector's connect/disconnect
// cycle without retaining it; see spec's exchange connection test contract.
type ConnectionTestRequest struct {
	Exchange   string `json:"exchange" binding:"required"`
	APIKey     string `json:"apiKey" binding:"required"`
	SecretKey  string `json:"secretKey" binding:"required"`
	Passphrase string `json:"passphrase"`
}

type ConnectionTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// traderEntry pairs a running Trader with the bookkeeping the DTO layer
// needs that the Trader itself does not track (exchange label, budget and
// leverage as reported in the DTO, connector to tear down on delete).
type traderEntry struct {
	trader    *trader.Trader
	connector common.Connector
	exchange  string
	budget    decimal.Decimal
	leverage  decimal.Decimal
}

// TraderManager is the in-memory trader registry the HTTP handlers operate
// on. It owns connector construction through the factory and the lifecycle
// transitions translated from the wire status vocabulary.
type TraderManager struct {
	logger *observability.Logger

	mu      sync.RWMutex
	traders map[string]*traderEntry
}

func NewTraderManager(logger *observability.Logger) *TraderManager {
	return &TraderManager{logger: logger, traders: make(map[string]*traderEntry)}
}

// toWireStatus maps the core's internal lifecycle state to the wire
// vocabulary (ACTIVE|PAUSED|STOPPING|STOPPED); CREATED and TERMINATED both
// read as STOPPED since neither has a running tick loop.
func toWireStatus(s trader.State) string {
	switch s {
	case trader.StateActive:
		return "ACTIVE"
	case trader.StatePaused:
		return "PAUSED"
	default:
		return "STOPPED"
	}
}

func toTraderDTO(id string, entry *traderEntry) TraderDTO {
	dto := TraderDTO{
		ID:       id,
		Exchange: entry.exchange,
		Symbol:   entry.trader.ID(),
		Status:   toWireStatus(entry.trader.State()),
		Budget:   entry.budget.String(),
		Leverage: entry.leverage.String(),
	}
	if pos := entry.trader.Position(); pos != nil {
		dto.Position = &PositionDTO{
			Action:       string(pos.Action),
			Quantity:     pos.Quantity.String(),
			EntryPrice:   pos.EntryPrice.String(),
			CurrentPrice: pos.CurrentPrice.String(),
		}
	}
	return dto
}

// Create builds a real Connector via the factory, a trend-following
// strategy, and a Trader, then starts it immediately. The trader's Symbol
// field doubles as its ID in responses for readability; the registry key is
// a generated UUID so multiple traders can watch the same symbol.
func (m *TraderManager) Create(ctx context.Context, req CreateTraderRequest) (TraderDTO, error) {
	exchange := config.Exchange(strings.ToUpper(strings.TrimSpace(req.Exchange)))

	budget, err := decimal.NewFromString(req.Budget)
	if err != nil {
		return TraderDTO{}, fmt.Errorf("invalid budget: %w", err)
	}
	leverage := decimal.NewFromInt(1)
	if req.Leverage != "" {
		leverage, err = decimal.NewFromString(req.Leverage)
		if err != nil {
			return TraderDTO{}, fmt.Errorf("invalid leverage: %w", err)
		}
	}

	exchCfg := config.ExchangeConfig{
		Exchange:       exchange,
		APIKey:         req.APIKey,
		APISecret:      req.APISecret,
		Passphrase:     req.Passphrase,
		Testnet:        req.Testnet,
		RateLimit:      config.DefaultRateLimit(),
		Retry:          config.DefaultRetryConfig(),
		WebSocket:      config.DefaultWebSocket(),
		HealthCheck:    config.DefaultHealthCheck(),
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
	if err := exchCfg.Validate(); err != nil {
		return TraderDTO{}, fmt.Errorf("invalid exchange config: %w", err)
	}

	connector, err := factory.CreateConnector(exchange, exchCfg, false)
	if err != nil {
		return TraderDTO{}, fmt.Errorf("build connector: %w", err)
	}
	if err := connector.Connect(ctx); err != nil {
		return TraderDTO{}, fmt.Errorf("connect: %w", err)
	}

	strat := strategy.NewTrendFollowing(strategy.DefaultTrendFollowingConfig())
	traderCfg := trader.Config{
		Symbol:         req.Symbol,
		Interval:       common.TimeFrame1h,
		TickInterval:   30 * time.Second,
		CandleWindow:   50,
		Budget:         budget,
		Leverage:       leverage,
		SignalGen:      signalgen.DefaultConfig(),
		ExchangeConfig: exchCfg,
	}

	id := uuid.New().String()
	t := trader.New(m.logger, req.Symbol, traderCfg, connector, strat, pattern.NoopMatcher{})
	if err := t.Start(ctx); err != nil {
		_ = connector.Disconnect(ctx)
		return TraderDTO{}, fmt.Errorf("start trader: %w", err)
	}

	entry := &traderEntry{trader: t, connector: connector, exchange: string(exchange), budget: budget, leverage: leverage}
	m.mu.Lock()
	m.traders[id] = entry
	m.mu.Unlock()

	return toTraderDTO(id, entry), nil
}

func (m *TraderManager) Get(id string) (TraderDTO, bool) {
	m.mu.RLock()
	entry, ok := m.traders[id]
	m.mu.RUnlock()
	if !ok {
		return TraderDTO{}, false
	}
	return toTraderDTO(id, entry), true
}

func (m *TraderManager) List() []TraderDTO {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TraderDTO, 0, len(m.traders))
	for id, entry := range m.traders {
		out = append(out, toTraderDTO(id, entry))
	}
	return out
}

// PatchStatus translates a wire status into a Start/Stop call. ACTIVE
// (re)starts, PAUSED and STOPPING both pause (the synchronous Stop leaves
// no observable STOPPING window), STOPPED terminates.
func (m *TraderManager) PatchStatus(ctx context.Context, id, status string) (TraderDTO, error) {
	entry, ok := m.lookup(id)
	if !ok {
		return TraderDTO{}, fmt.Errorf("trader %s not found", id)
	}

	var err error
	switch status {
	case "ACTIVE":
		err = entry.trader.Start(ctx)
	case "PAUSED", "STOPPING":
		err = entry.trader.Stop(ctx)
	case "STOPPED":
		err = entry.trader.Terminate(ctx)
	default:
		return TraderDTO{}, fmt.Errorf("unknown status %q", status)
	}
	if err != nil {
		return TraderDTO{}, err
	}
	return toTraderDTO(id, entry), nil
}

func (m *TraderManager) PatchBalance(id, budget string) (TraderDTO, error) {
	entry, ok := m.lookup(id)
	if !ok {
		return TraderDTO{}, fmt.Errorf("trader %s not found", id)
	}
	parsed, err := decimal.NewFromString(budget)
	if err != nil {
		return TraderDTO{}, fmt.Errorf("invalid budget: %w", err)
	}

	m.mu.Lock()
	entry.budget = parsed
	m.mu.Unlock()
	return toTraderDTO(id, entry), nil
}

// Delete terminates the trader and disconnects its connector, then drops it
// from the registry.
func (m *TraderManager) Delete(ctx context.Context, id string) error {
	entry, ok := m.lookup(id)
	if !ok {
		return fmt.Errorf("trader %s not found", id)
	}
	if err := entry.trader.Terminate(ctx); err != nil {
		return err
	}
	_ = entry.connector.Disconnect(ctx)

	m.mu.Lock()
	delete(m.traders, id)
	m.mu.Unlock()
	return nil
}

func (m *TraderManager) lookup(id string) (*traderEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.traders[id]
	return entry, ok
}

// registerRoutes wires the Trader CRUD and connection-test surface onto a
// gin engine.
func registerRoutes(router *gin.Engine, manager *TraderManager) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "traderd", "timestamp": time.Now().UTC()})
	})

	router.POST("/api/v1/exchange/test-connection", testConnectionHandler)

	traders := router.Group("/api/v1/traders")
	{
		traders.POST("", createTraderHandler(manager))
		traders.GET("", listTradersHandler(manager))
		traders.GET("/:id", getTraderHandler(manager))
		traders.DELETE("/:id", deleteTraderHandler(manager))
		traders.PATCH("/:id/status", patchStatusHandler(manager))
		traders.PATCH("/:id/balance", patchBalanceHandler(manager))
	}
}

func testConnectionHandler(c *gin.Context) {
	var req ConnectionTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	exchange := config.Exchange(strings.ToUpper(strings.TrimSpace(req.Exchange)))
	cfg := config.ExchangeConfig{
		Exchange:       exchange,
		APIKey:         req.APIKey,
		APISecret:      req.SecretKey,
		Passphrase:     req.Passphrase,
		RateLimit:      config.DefaultRateLimit(),
		Retry:          config.DefaultRetryConfig(),
		WebSocket:      config.DefaultWebSocket(),
		HealthCheck:    config.DefaultHealthCheck(),
		ConnectTimeout: 10 * time.Second,
		RequestTimeout: 10 * time.Second,
	}

	connector, err := factory.CreateConnector(exchange, cfg, false)
	if err != nil {
		c.JSON(http.StatusOK, ConnectionTestResponse{Success: false, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := connector.Connect(ctx); err != nil {
		c.JSON(http.StatusOK, ConnectionTestResponse{Success: false, Message: err.Error()})
		return
	}
	_ = connector.Disconnect(ctx)

	c.JSON(http.StatusOK, ConnectionTestResponse{Success: true, Message: "connected"})
}

func createTraderHandler(manager *TraderManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTraderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
			return
		}
		dto, err := manager.Create(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, dto)
	}
}

func listTradersHandler(manager *TraderManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"traders": manager.List()})
	}
}

func getTraderHandler(manager *TraderManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		dto, ok := manager.Get(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "trader not found"})
			return
		}
		c.JSON(http.StatusOK, dto)
	}
}

func deleteTraderHandler(manager *TraderManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := manager.Delete(c.Request.Context(), c.Param("id")); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func patchStatusHandler(manager *TraderManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PatchStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
			return
		}
		dto, err := manager.PatchStatus(c.Request.Context(), c.Param("id"), req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, dto)
	}
}

func patchBalanceHandler(manager *TraderManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PatchBalanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
			return
		}
		dto, err := manager.PatchBalance(c.Param("id"), req.Budget)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, dto)
	}
}
