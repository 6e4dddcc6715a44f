// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// SocketConnectionsActive tracks active websocket connections.
	SocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "socket_connections_active",
			Help: "Number of active websocket connections",
		},
	)

	// MessagesTotal tracks messages by status transition.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages by status transition",
		},
		[]string{"transition"},
	)

	// NotificationsTotal tracks notifications created by type.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total notifications created",
		},
		[]string{"type"},
	)

	// PushesTotal tracks remote push submissions by outcome.
	PushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pushes_total",
			Help: "Total remote push submissions",
		},
		[]string{"outcome"},
	)

	// PushReceiptErrors tracks push receipts reporting a delivery error.
	PushReceiptErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_receipt_errors_total",
			Help: "Push receipts reporting a delivery error",
		},
		[]string{"code"},
	)

	// DispatchDuration tracks end-to-end message dispatch latency.
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_duration_seconds",
			Help:    "Message dispatch latency from persist to fan-out",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"route"},
	)

	// LiveDeliveriesTotal tracks live socket fan-out sends.
	LiveDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_deliveries_total",
			Help: "Live socket event deliveries",
		},
		[]string{"event", "outcome"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordDispatch records a dispatch latency observation for a route
// ("live" or "push").
func RecordDispatch(route string, seconds float64) {
	DispatchDuration.WithLabelValues(route).Observe(seconds)
}

// IncrementSocketConnections increments the active connection count.
func IncrementSocketConnections() {
	SocketConnectionsActive.Inc()
}

// DecrementSocketConnections decrements the active connection count.
func DecrementSocketConnections() {
	SocketConnectionsActive.Dec()
}
