// Package metrics holds the Prometheus instrumentation for the dashboard server itself.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the server exports.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	authFailures        prometheus.Counter
	samplerFailures     *prometheus.CounterVec
	lastUsage           *prometheus.GaugeVec
}

// NewManager creates a Manager registered on its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "opsdash",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route, method and status code",
		},
		[]string{"route", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"route", "method"},
	)

	m.authFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "auth_failures_total",
		Help:      "Requests rejected by the Basic Auth guard",
	})

	m.samplerFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "sampler_failures_total",
			Help:      "Host metric reads that failed and were replaced by zero",
		},
		[]string{"resource"},
	)

	m.lastUsage = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      "last_usage_percent",
			Help:      "Most recent clamped usage percentage served to a client",
		},
		[]string{"resource"},
	)
}

// RecordHTTPRequest counts a finished request and observes its duration.
func (m *Manager) RecordHTTPRequest(route, method, statusCode string, seconds float64) {
	m.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(route, method).Observe(seconds)
}

// RecordAuthFailure increments the rejected-credentials counter.
func (m *Manager) RecordAuthFailure() {
	m.authFailures.Inc()
}

// RecordSamplerFailure counts a failed host read for resource (cpu, memory).
func (m *Manager) RecordSamplerFailure(resource string) {
	m.samplerFailures.WithLabelValues(resource).Inc()
}

// SetLastUsage records the value last served for resource.
func (m *Manager) SetLastUsage(resource string, percent int) {
	m.lastUsage.WithLabelValues(resource).Set(float64(percent))
}

// Registry exposes the registry for promhttp.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}
