package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connections

	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections_active",
			Help: "Websocket sessions currently attached to the hub",
		},
	)

	UsersOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_users_online",
			Help: "Users with a current session in the connection registry",
		},
	)

	HandshakeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_handshake_failures_total",
			Help: "Rejected websocket handshakes",
		},
		[]string{"reason"}, // "missing_token", "invalid_token", "upgrade"
	)

	SlowConsumersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_slow_consumers_dropped_total",
			Help: "Sessions detached because their send buffer was full",
		},
	)

	StaleEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_stale_evictions_total",
			Help: "Disconnects ignored because a newer session had superseded them",
		},
	)

	// Events

	EventsInbound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_inbound_total",
			Help: "Client events received by type",
		},
		[]string{"type"},
	)

	EventsOutbound = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_outbound_total",
			Help: "Frames queued to sessions by event type",
		},
		[]string{"type"},
	)

	// Hub

	HubTaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "realtime_hub_task_duration_seconds",
			Help:    "Time spent executing one task on the hub loop",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
	)

	// Storage

	MessagesPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_messages_persisted_total",
			Help: "Chat message writes by target kind and result",
		},
		[]string{"kind", "result"}, // kind: "direct", "group"; result: "ok", "error"
	)

	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realtime_store_duration_seconds",
			Help:    "Duration of message store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realtime_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	StreamPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_stream_publish_failures_total",
			Help: "Chat messages that could not be queued to the event stream",
		},
	)
)

// RecordHubTask observes the time spent in one hub task.
func RecordHubTask(start time.Time) {
	HubTaskDuration.Observe(time.Since(start).Seconds())
}

// RecordStore observes one message store operation.
func RecordStore(operation string, start time.Time) {
	StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
