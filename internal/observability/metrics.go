// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Swap metrics
	SwapsTotal    *prometheus.CounterVec
	SwapVolume    *prometheus.CounterVec
	SwapDuration  *prometheus.HistogramVec
	SwapsInFlight prometheus.Gauge

	// Pool lifecycle
	PoolsInitialized *prometheus.CounterVec

	// Event fan-out
	EventPublishErrors *prometheus.CounterVec

	// HTTP
	RejectedRequests *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered with reg. A nil reg
// registers with the default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "solana_pool_swap"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		SwapsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "total",
			Help:      "Swap attempts by direction and outcome kind",
		}, []string{"direction", "outcome"}),
		SwapVolume: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "volume_total",
			Help:      "Base units moved by successful swaps",
		}, []string{"direction"}),
		SwapDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "duration_seconds",
			Help:      "Time spent executing a swap, including ledger waits",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"direction"}),
		SwapsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "swap",
			Name:      "in_flight",
			Help:      "Swaps currently executing",
		}),
		PoolsInitialized: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "initialize_total",
			Help:      "Pool initialization attempts by outcome kind",
		}, []string{"outcome"}),
		EventPublishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "publish_errors_total",
			Help:      "Failed swap event deliveries by sink",
		}, []string{"sink"}),
		RejectedRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rejected_requests_total",
			Help:      "Requests rejected before reaching the engine",
		}, []string{"reason"}),
	}
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordSwap records the outcome of one swap attempt.
func (m *Metrics) RecordSwap(direction, outcome string, amount uint64, took time.Duration) {
	m.SwapsTotal.WithLabelValues(direction, outcome).Inc()
	m.SwapDuration.WithLabelValues(direction).Observe(took.Seconds())
	if outcome == "ok" {
		m.SwapVolume.WithLabelValues(direction).Add(float64(amount))
	}
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
