package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsProvider registers and exposes Prometheus metrics for the
// exchange-connector and trader-runtime core. No package in this repository
// records observations into them.
type MetricsProvider struct {
	registry *prometheus.Registry

	RateLimiterWaitSeconds   *prometheus.HistogramVec
	RateLimiterRejectedTotal *prometheus.CounterVec
	ConnectorLatencySeconds  *prometheus.HistogramVec
	ConnectorRequestsTotal   *prometheus.CounterVec
	WebSocketReconnectsTotal *prometheus.CounterVec
	WebSocketStateGauge      *prometheus.GaugeVec
	TraderTicksTotal         *prometheus.CounterVec
	TraderTickErrorsTotal    *prometheus.CounterVec
	RetryAttemptsTotal       *prometheus.CounterVec
}

// MetricsConfig configures the metrics registry.
type MetricsConfig struct {
	Namespace string
	Enabled   bool
}

// NewMetricsProvider creates and registers every metric. Disabled providers
// return a usable zero-value that discards observations silently.
func NewMetricsProvider(cfg MetricsConfig) (*MetricsProvider, error) {
	registry := prometheus.NewRegistry()
	ns := cfg.Namespace
	if ns == "" {
		ns = "trader"
	}

	mp := &MetricsProvider{
		registry: registry,
		RateLimiterWaitSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "ratelimit",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for a rate-limit token",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		RateLimiterRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "ratelimit",
			Name:      "rejected_total",
			Help:      "Total non-blocking acquire attempts rejected for lack of tokens",
		}, []string{"endpoint"}),
		ConnectorLatencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "connector",
			Name:      "request_latency_seconds",
			Help:      "REST request latency per exchange and operation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"exchange", "operation"}),
		ConnectorRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "connector",
			Name:      "requests_total",
			Help:      "Total REST requests per exchange, operation and outcome",
		}, []string{"exchange", "operation", "outcome"}),
		WebSocketReconnectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "websocket",
			Name:      "reconnects_total",
			Help:      "Total reconnect attempts per exchange",
		}, []string{"exchange"}),
		WebSocketStateGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "websocket",
			Name:      "state",
			Help:      "Current WebSocket connection state (0=disconnected,1=connecting,2=connected,3=reconnecting)",
		}, []string{"exchange"}),
		TraderTicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "trader",
			Name:      "ticks_total",
			Help:      "Total trader ticks executed per trader id and outcome",
		}, []string{"trader_id", "outcome"}),
		TraderTickErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "trader",
			Name:      "tick_errors_total",
			Help:      "Total errors encountered during trader ticks",
		}, []string{"trader_id", "stage"}),
		RetryAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "retry",
			Name:      "attempts_total",
			Help:      "Total retry attempts per operation and outcome",
		}, []string{"operation", "outcome"}),
	}

	if !cfg.Enabled {
		return mp, nil
	}

	collectors := []prometheus.Collector{
		mp.RateLimiterWaitSeconds,
		mp.RateLimiterRejectedTotal,
		mp.ConnectorLatencySeconds,
		mp.ConnectorRequestsTotal,
		mp.WebSocketReconnectsTotal,
		mp.WebSocketStateGauge,
		mp.TraderTicksTotal,
		mp.TraderTickErrorsTotal,
		mp.RetryAttemptsTotal,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return mp, nil
}

// Registry exposes the underlying Prometheus registry, e.g. for wiring
// promhttp.HandlerFor in cmd/traderd.
func (mp *MetricsProvider) Registry() *prometheus.Registry {
	return mp.registry
}
