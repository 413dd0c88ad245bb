// Package metrics provides Prometheus metrics for the QR service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPLatencyBuckets cover the full request/response cycle.
	HTTPLatencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}

	// FetchLatencyBuckets cover calls to the QR image service.
	FetchLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 15.0}
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTPRequestDuration tracks inbound requests.
	HTTPRequestDuration *prometheus.HistogramVec

	// FetchTotal counts image fetches by endpoint host and outcome.
	FetchTotal *prometheus.CounterVec

	// FetchLatency tracks image fetch latency.
	FetchLatency *prometheus.HistogramVec

	// CacheLookups counts cache hits and misses.
	CacheLookups *prometheus.CounterVec

	// Cycles counts finished generation cycles by outcome.
	Cycles *prometheus.CounterVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: HTTPLatencyBuckets,
			},
			[]string{"method", "route", "status_code"},
		),
		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qr_fetch_total",
				Help: "QR image fetches by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		FetchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "qr_fetch_latency_seconds",
				Help:    "QR image fetch latency in seconds",
				Buckets: FetchLatencyBuckets,
			},
			[]string{"endpoint"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qr_cache_lookups_total",
				Help: "QR image cache lookups by result",
			},
			[]string{"result"},
		),
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qr_generation_cycles_total",
				Help: "Finished generation cycles by outcome",
			},
			[]string{"outcome"},
		),
	}
	m.registry.MustRegister(
		m.HTTPRequestDuration,
		m.FetchTotal,
		m.FetchLatency,
		m.CacheLookups,
		m.Cycles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTP records one inbound request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveFetch records one image fetch.
func (m *Metrics) ObserveFetch(endpoint, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(endpoint, outcome).Inc()
	m.FetchLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// CacheHit records a cache lookup result.
func (m *Metrics) CacheHit(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// CycleFinished records the outcome of a generation cycle.
func (m *Metrics) CycleFinished(outcome string) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(outcome).Inc()
}
