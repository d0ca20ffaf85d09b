// Command traderd exposes the exchange connection test and trader CRUD
// surface over HTTP. It owns no persistence and no UI: every trader it
// creates lives only in process memory for the life of this daemon, the
// config-file-parsing and secret-storage layers a full API server would add
// left to the collaborator this core is consumed by.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/ai-agentic-browser/trader-core/internal/config"
	"github.com/ai-agentic-browser/trader-core/pkg/observability"

	// venue packages self-register with the connector factory on import.
	_ "github.com/ai-agentic-browser/trader-core/internal/exchange/binance"
	_ "github.com/ai-agentic-browser/trader-core/internal/exchange/bitget"
)

func main() {
	obsCfg := config.LoadObservability()
	obsCfg.ServiceName = "traderd"
	logger := observability.NewLogger(obsCfg)

	host := getEnv("SERVER_HOST", "0.0.0.0")
	port := getEnv("SERVER_PORT", "8090")

	manager := NewTraderManager(logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, manager)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Info(ctx, "starting traderd", map[string]interface{}{"address": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "server failed", err, nil)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info(ctx, "received shutdown signal", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	for _, dto := range manager.List() {
		if err := manager.Delete(shutdownCtx, dto.ID); err != nil {
			logger.Error(shutdownCtx, "failed to tear down trader on shutdown", err, map[string]interface{}{"trader_id": dto.ID})
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "failed to shutdown server", err, nil)
	}
	logger.Info(ctx, "traderd shutdown complete", nil)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
