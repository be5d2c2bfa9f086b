// Package metrics holds the Prometheus collectors of the routing service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is one set of collectors registered on a single registry.
type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	QueriesRouted   prometheus.Counter
	RouteSelected   *prometheus.CounterVec
	EncodeLatency   prometheus.Histogram
	WSConnections   prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestCount: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semrouter_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "semrouter_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		QueriesRouted: f.NewCounter(
			prometheus.CounterOpts{
				Name: "semrouter_queries_routed_total",
				Help: "Total number of queries routed",
			},
		),
		RouteSelected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semrouter_route_selected_total",
				Help: "Number of times each route was the best match",
			},
			[]string{"route"},
		),
		EncodeLatency: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "semrouter_route_latency_seconds",
				Help:    "Latency of encoding and scoring one request's queries",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
		),
		WSConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "semrouter_websocket_connections",
				Help: "Number of open websocket connections",
			},
		),
	}
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	m.RequestCount.WithLabelValues(method, endpoint, statusLabel(status)).Inc()
	m.RequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// ObserveRouting records a routed batch and its best routes.
func (m *Metrics) ObserveRouting(best []string, elapsed time.Duration) {
	m.QueriesRouted.Add(float64(len(best)))
	for _, name := range best {
		m.RouteSelected.WithLabelValues(name).Inc()
	}
	m.EncodeLatency.Observe(elapsed.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
