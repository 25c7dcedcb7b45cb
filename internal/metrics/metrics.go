package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps the prometheus collectors for the recipe backend.
type Metrics struct {
	registry *prometheus.Registry

	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	upstreamCalls *prometheus.CounterVec

	requestDuration *prometheus.HistogramVec
}

// Request duration buckets in seconds. Upstream calls dominate the tail.
var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// New creates and registers the backend's collectors on a fresh registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by namespace.",
		}, []string{"tier"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses by namespace.",
		}, []string{"tier"}),
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Spoonacular API calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration by route and status.",
			Buckets:   durationBuckets,
		}, []string{"route", "status"}),
	}

	m.registry.MustRegister(
		m.cacheHits,
		m.cacheMisses,
		m.upstreamCalls,
		m.requestDuration,
	)

	return m
}

// CacheHit records a hit on the given cache tier.
func (m *Metrics) CacheHit(tier string) {
	m.cacheHits.WithLabelValues(tier).Inc()
}

// CacheMiss records a miss on the given cache tier.
func (m *Metrics) CacheMiss(tier string) {
	m.cacheMisses.WithLabelValues(tier).Inc()
}

// UpstreamCall records an upstream API call outcome ("ok" or an error kind).
func (m *Metrics) UpstreamCall(operation, outcome string) {
	m.upstreamCalls.WithLabelValues(operation, outcome).Inc()
}

// ObserveRequest records a served HTTP request.
func (m *Metrics) ObserveRequest(route, status string, elapsed time.Duration) {
	m.requestDuration.WithLabelValues(route, status).Observe(elapsed.Seconds())
}

// Handler returns the exposition handler for the /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
