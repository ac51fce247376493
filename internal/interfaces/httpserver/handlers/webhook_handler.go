package handlers

import (
	"context"
	"net/http"

	"avatar-bridge/internal/domain/webhook"
)

// WebhookStats summarizes inbound webhook processing.
type WebhookStats struct {
	QueueDepth int                      `json:"queue_depth"`
	Activity   webhook.ActivitySnapshot `json:"activity"`
	EventTypes []string                 `json:"event_types"`
}

// WebhookHandler accepts avatar platform webhooks and manages dead letters.
type WebhookHandler struct {
	receiver   *webhook.Receiver
	dispatcher *webhook.Dispatcher
	registry   *webhook.Registry
	activity   *webhook.AgentActivity
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(receiver *webhook.Receiver, dispatcher *webhook.Dispatcher, registry *webhook.Registry, activity *webhook.AgentActivity) *WebhookHandler {
	return &WebhookHandler{
		receiver:   receiver,
		dispatcher: dispatcher,
		registry:   registry,
		activity:   activity,
	}
}

// Receive verifies and enqueues one delivery.
func (h *WebhookHandler) Receive(ctx context.Context, body []byte, headers http.Header) (*webhook.Result, error) {
	return h.receiver.Receive(ctx, body, headers)
}

// DeadLetters lists failed events, newest first.
func (h *WebhookHandler) DeadLetters(ctx context.Context, limit int) ([]*webhook.DeadLetter, error) {
	return h.dispatcher.DeadLetters(ctx, limit)
}

// Replay re-enqueues a dead letter.
func (h *WebhookHandler) Replay(ctx context.Context, id string) (*webhook.Event, error) {
	return h.dispatcher.Replay(ctx, id)
}

// Stats reports queue depth and per-type activity.
func (h *WebhookHandler) Stats() WebhookStats {
	return WebhookStats{
		QueueDepth: h.dispatcher.QueueDepth(),
		Activity:   h.activity.Snapshot(),
		EventTypes: h.registry.Types(),
	}
}
