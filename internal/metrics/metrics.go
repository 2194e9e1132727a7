// Package metrics provides Prometheus instrumentation for txguard.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txguard",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "txguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// RequestsTotal counts transfer requests by outcome (confirmation_requested
	// or the rejection reason).
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txguard",
			Name:      "requests_total",
			Help:      "Total transfer requests by outcome.",
		},
		[]string{"outcome"},
	)

	// ConfirmationsTotal counts confirm attempts by outcome (approved or
	// the rejection reason).
	ConfirmationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txguard",
			Name:      "confirmations_total",
			Help:      "Total confirmation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// FreezesTotal counts freeze events by source (manual or anomaly).
	FreezesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txguard",
			Name:      "freezes_total",
			Help:      "Total wallet freeze events by source.",
		},
		[]string{"source"},
	)

	// PendingConfirmation tracks whether a confirmation is outstanding (0 or 1).
	PendingConfirmation = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "txguard",
			Name:      "pending_confirmation",
			Help:      "1 while a confirmation is outstanding, else 0.",
		},
	)

	// IntegrityFailuresTotal counts tamper detections by file.
	IntegrityFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txguard",
			Name:      "integrity_failures_total",
			Help:      "Total integrity verification failures by file.",
		},
		[]string{"file"},
	)

	// ActiveWebSocketClients tracks connected audit-feed clients.
	ActiveWebSocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "txguard",
			Name:      "active_websocket_clients",
			Help:      "Number of currently connected WebSocket clients.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RequestsTotal,
		ConfirmationsTotal,
		FreezesTotal,
		PendingConfirmation,
		IntegrityFailuresTotal,
		ActiveWebSocketClients,
	)
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // Uses route pattern, not actual path (avoids cardinality explosion)
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
