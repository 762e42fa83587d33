package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the service.
type Metrics struct {
	// Registry owns every collector below; /metrics serves it.
	Registry *prometheus.Registry

	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	cacheErrors        *prometheus.CounterVec
	computeDuration    *prometheus.HistogramVec
	invalidatedBalance prometheus.Counter
}

// NewMetrics registers all collectors in a private registry so that
// tests can build as many instances as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expense_share_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expense_share_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		cacheErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expense_share_cache_errors_total",
				Help: "Cache backend failures swallowed by the adapter.",
			},
			[]string{"op"},
		),
		computeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "expense_share_balance_compute_seconds",
				Help:    "Duration of balance computations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		invalidatedBalance: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "expense_share_balance_invalidations_total",
				Help: "Balance cache entries invalidated.",
			},
		),
	}
}

func (m *Metrics) IncrCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(cache).Inc()
}

func (m *Metrics) IncrCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// CacheError counts a swallowed backend failure.
func (m *Metrics) CacheError(op string) {
	if m == nil {
		return
	}
	m.cacheErrors.WithLabelValues(op).Inc()
}

// ObserveCompute records how long a balance computation took.
func (m *Metrics) ObserveCompute(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.computeDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// AddInvalidations counts removed balance entries.
func (m *Metrics) AddInvalidations(n int) {
	if m == nil {
		return
	}
	m.invalidatedBalance.Add(float64(n))
}
