package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ConnectionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connection_transitions_total",
			Help: "Connection graph operations by outcome.",
		},
		[]string{"op", "outcome"},
	)

	ChatMessagesStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_stored_total",
			Help: "Total number of persisted chat messages.",
		},
	)

	ChatPresenceOnline = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_presence_online",
			Help: "Users with a joined real-time connection.",
		},
	)

	ChatTypingEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_typing_events_total",
			Help: "Typing notifications sent, by kind.",
		},
		[]string{"kind"},
	)
)

func MustRegister() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		ConnectionTransitionsTotal,
		ChatMessagesStoredTotal,
		ChatPresenceOnline,
		ChatTypingEventsTotal,
	)
}
