// Package factory generalizes the teacher's exchange manager switch
// statement into a process-wide, registered-factory-fn registry: each venue
// registers a constructor once at init time, and callers ask for a cached
// or fresh Connector by name without importing the venue package directly.
package factory

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ai-agentic-browser/trader-core/internal/config"
	"github.com/ai-agentic-browser/trader-core/internal/exchange/common"
)

// ConnectorFn builds a fresh, unconfigured-but-ready Connector for one venue
// from an ExchangeConfig. Venue packages register one via Register in an
// init() func.
type ConnectorFn func(cfg config.ExchangeConfig) common.Connector

// Registry is the process-wide venue -> constructor map plus a cache of
// already-built connectors keyed by exchange. Safe for concurrent use;
// concurrent requests for the same uncached exchange collapse into a single
// construction via singleflight.
type Registry struct {
	mu         sync.RWMutex
	factories  map[config.Exchange]ConnectorFn
	cache      map[config.Exchange]common.Connector
	group      singleflight.Group
}

// defaultRegistry is the process-wide instance venue packages register
// against and callers use by default.
var defaultRegistry = New()

// New creates an empty Registry. Most callers use the package-level
// Register/CreateConnector/RemoveConnector/RemoveAll functions instead,
// which operate on defaultRegistry; New exists for tests that need
// isolation from global registration state.
func New() *Registry {
	return &Registry{
		factories: make(map[config.Exchange]ConnectorFn),
		cache:     make(map[config.Exchange]common.Connector),
	}
}

// Register binds a venue to its constructor. Called from each venue
// package's init(), so importing the venue package for its side effect is
// enough to make it available through the registry.
func (r *Registry) Register(exchange config.Exchange, fn ConnectorFn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[exchange] = fn
}

// CreateConnector returns a Connector for cfg.Exchange, validating that cfg
// names the exchange the caller asked for. When useCache is true and a
// connector for this exchange already exists, it is returned unchanged
// instead of building a new one. Concurrent calls for the same
// not-yet-cached exchange share a single construction.
func (r *Registry) CreateConnector(exchange config.Exchange, cfg config.ExchangeConfig, useCache bool) (common.Connector, error) {
	if cfg.Exchange != exchange {
		return nil, fmt.Errorf("factory: config exchange %q does not match requested %q", cfg.Exchange, exchange)
	}

	if useCache {
		r.mu.RLock()
		if c, ok := r.cache[exchange]; ok {
			r.mu.RUnlock()
			return c, nil
		}
		r.mu.RUnlock()
	}

	r.mu.RLock()
	fn, ok := r.factories[exchange]
	r.mu.RUnlock()
	if !ok {
		return nil, &common.UnsupportedExchangeError{Exchange: common.Exchange(exchange)}
	}

	result, err, _ := r.group.Do(string(exchange), func() (interface{}, error) {
		connector := fn(cfg)
		if useCache {
			r.mu.Lock()
			r.cache[exchange] = connector
			r.mu.Unlock()
		}
		return connector, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(common.Connector), nil
}

// RemoveConnector evicts exchange's cached connector, if any, without
// disconnecting it — callers that want a clean shutdown should Disconnect
// the returned connector themselves before removal, or rely on GetConnector
// to inspect it first.
func (r *Registry) RemoveConnector(exchange config.Exchange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, exchange)
}

// RemoveAll evicts every cached connector.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[config.Exchange]common.Connector)
}

// GetConnector returns the cached connector for exchange, if any, without
// constructing one.
func (r *Registry) GetConnector(exchange config.Exchange) (common.Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cache[exchange]
	return c, ok
}

// --- Package-level convenience wrapping defaultRegistry ---

func Register(exchange config.Exchange, fn ConnectorFn) {
	defaultRegistry.Register(exchange, fn)
}

func CreateConnector(exchange config.Exchange, cfg config.ExchangeConfig, useCache bool) (common.Connector, error) {
	return defaultRegistry.CreateConnector(exchange, cfg, useCache)
}

func RemoveConnector(exchange config.Exchange) {
	defaultRegistry.RemoveConnector(exchange)
}

func RemoveAll() {
	defaultRegistry.RemoveAll()
}

func GetConnector(exchange config.Exchange) (common.Connector, bool) {
	return defaultRegistry.GetConnector(exchange)
}
