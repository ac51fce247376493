// Package metrics provides Prometheus metrics for the avatar bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks the number of active avatar sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "avatar_active_sessions",
			Help: "Number of currently active avatar sessions",
		},
	)

	// SessionsCreated tracks the total number of sessions created.
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avatar_sessions_created_total",
			Help: "Total number of avatar sessions created",
		},
	)

	// SessionsDeleted tracks the total number of sessions deleted.
	SessionsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avatar_sessions_deleted_total",
			Help: "Total number of avatar sessions deleted",
		},
		[]string{"reason"},
	)

	// SessionStateTransitions tracks session state changes.
	SessionStateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avatar_session_state_transitions_total",
			Help: "Total number of session state transitions",
		},
		[]string{"from_state", "to_state"},
	)

	// LiveKitSyncDuration tracks the duration of LiveKit sync operations.
	LiveKitSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "avatar_livekit_sync_duration_seconds",
			Help:    "Duration of LiveKit room sync operations",
			Buckets: prometheus.DefBuckets,
		},
	)

	// LiveKitSyncErrors tracks errors during LiveKit sync.
	LiveKitSyncErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avatar_livekit_sync_errors_total",
			Help: "Total number of errors during LiveKit sync",
		},
	)

	// TokensIssued counts LiveKit tokens minted, by issuing route.
	TokensIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avatar_tokens_issued_total",
			Help: "Total number of LiveKit access tokens issued",
		},
		[]string{"source"},
	)

	// TokenGenerationDuration tracks token generation time.
	TokenGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "avatar_token_generation_duration_seconds",
			Help:    "Duration of LiveKit token generation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
	)

	// WebhooksReceived counts inbound webhook requests by event type and outcome.
	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avatar_webhooks_received_total",
			Help: "Total number of inbound webhook requests",
		},
		[]string{"event", "outcome"},
	)

	// WebhookQueueDepth tracks events waiting for a dispatcher worker.
	WebhookQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "avatar_webhook_queue_depth",
			Help: "Number of webhook events waiting to be dispatched",
		},
	)

	// WebhookDispatchDuration tracks handler execution time per event type.
	WebhookDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "avatar_webhook_dispatch_duration_seconds",
			Help:    "Duration of webhook handler execution",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"event", "status"},
	)

	// WebhookDeadLetters counts events moved to the dead-letter store.
	WebhookDeadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avatar_webhook_dead_letters_total",
			Help: "Total number of webhook events that exhausted retries",
		},
		[]string{"event"},
	)

	// WebhookDeliveries counts outbound notification attempts by outcome.
	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avatar_webhook_deliveries_total",
			Help: "Total number of outbound webhook delivery attempts",
		},
		[]string{"event", "outcome"},
	)

	// StreamerChunksReceived counts audio chunks accepted from clients.
	StreamerChunksReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avatar_streamer_chunks_received_total",
			Help: "Total number of audio chunks received by the streamer",
		},
	)

	// StreamerChunksDropped counts audio chunks discarded by backpressure.
	StreamerChunksDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avatar_streamer_chunks_dropped_total",
			Help: "Total number of audio chunks dropped because the queue was full or trimmed",
		},
	)

	// StreamerFramesPublished counts frames forwarded to the publisher.
	StreamerFramesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "avatar_streamer_frames_published_total",
			Help: "Total number of avatar frames published",
		},
	)

	// HTTPRequests counts API requests by route and status class.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avatar_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks API latency by route.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "avatar_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamerClients tracks connected audio clients.
	StreamerClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "avatar_streamer_clients",
			Help: "Number of connected streamer clients",
		},
	)

	// GestureTriggers counts gesture requests by outcome.
	GestureTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "avatar_gesture_triggers_total",
			Help: "Total number of avatar gesture triggers",
		},
		[]string{"action", "outcome"},
	)
)

// RecordSessionCreated increments session creation metrics.
func RecordSessionCreated() {
	SessionsCreated.Inc()
	ActiveSessions.Inc()
}

// RecordSessionDeleted increments session deletion metrics.
func RecordSessionDeleted(reason string) {
	SessionsDeleted.WithLabelValues(reason).Inc()
	ActiveSessions.Dec()
}

// RecordStateTransition records a session state change.
func RecordStateTransition(fromState, toState string) {
	SessionStateTransitions.WithLabelValues(fromState, toState).Inc()
}

// RecordWebhookReceived records an inbound webhook outcome.
func RecordWebhookReceived(event, outcome string) {
	if event == "" {
		event = "unknown"
	}
	WebhooksReceived.WithLabelValues(event, outcome).Inc()
}
