package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	ConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"service"},
	)

	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Inbound frames processed, by envelope type and outcome",
		},
		[]string{"type", "result"},
	)

	DecodeErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_decode_errors_total",
			Help: "Inbound frames dropped because the envelope could not be decoded",
		},
	)

	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_store_errors_total",
			Help: "Durable store failures, by operation",
		},
		[]string{"op"},
	)

	OutboundDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_outbound_dropped_total",
			Help: "Outbound messages discarded by the drop-oldest send buffer",
		},
		[]string{"room"},
	)
)
