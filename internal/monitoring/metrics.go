// Package monitoring owns the Prometheus registry and the metric vectors
// shared by the query cache, the data proxy and the HTTP server.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "placemap"

// Metrics holds every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	// CacheLookups counts query cache lookups by query name and result
	// (hit, stale, miss).
	CacheLookups *prometheus.CounterVec

	// UpstreamFetches counts upstream fetches by query name and outcome
	// (success, not_found, error).
	UpstreamFetches *prometheus.CounterVec

	// UpstreamDuration observes upstream fetch latency, retries included.
	UpstreamDuration *prometheus.HistogramVec

	// ProxyRequests counts data proxy requests by slug and status class.
	ProxyRequests *prometheus.CounterVec

	// HTTPRequests counts API requests by method, route and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration observes API request latency by method and route.
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates a registry with the Go and process collectors and
// registers the service metrics on it.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: namespace}),
	)

	m := &Metrics{
		registry: reg,
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "cache_lookups_total",
			Help:      "Query cache lookups by result.",
		}, []string{"query", "result"}),
		UpstreamFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "upstream_fetches_total",
			Help:      "Upstream API fetches by outcome.",
		}, []string{"query", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "upstream_fetch_seconds",
			Help:      "Upstream fetch latency including retries.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"query"}),
		ProxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dataproxy",
			Name:      "requests_total",
			Help:      "Data proxy requests by slug and status.",
		}, []string{"slug", "status"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "API requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		m.CacheLookups,
		m.UpstreamFetches,
		m.UpstreamDuration,
		m.ProxyRequests,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// GaugeFunc registers a gauge whose value is read from fn at scrape time.
func (m *Metrics) GaugeFunc(subsystem, name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, fn))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
