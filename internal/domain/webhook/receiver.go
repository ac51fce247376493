package webhook

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"

	"avatar-bridge/internal/infrastructure/metrics"
	"avatar-bridge/internal/utils/platformerrors"
)

// ReceiverConfig configures a Receiver.
type ReceiverConfig struct {
	Secret           string
	RequireSignature bool
	Tolerance        time.Duration
	DedupSize        int
	DedupTTL         time.Duration
}

// Result describes how an inbound webhook was handled.
type Result struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event"`
	Duplicate bool   `json:"duplicate"`
	Queued    bool   `json:"queued"`
}

// ErrSecretNotConfigured means signatures are required but no secret is set.
var ErrSecretNotConfigured = errors.New("webhook secret not configured")

// Enqueuer accepts events for asynchronous processing.
type Enqueuer interface {
	Enqueue(event *Event) error
}

// Receiver authenticates, de-duplicates and enqueues inbound webhooks. It
// never runs handlers itself, so the sender always gets a prompt answer.
type Receiver struct {
	cfg   ReceiverConfig
	queue Enqueuer
	log   zerolog.Logger
	now   func() time.Time

	mu   sync.Mutex
	seen *expirable.LRU[string, time.Time]
}

// NewReceiver creates a receiver feeding queue.
func NewReceiver(cfg ReceiverConfig, queue Enqueuer, log zerolog.Logger) *Receiver {
	if cfg.DedupSize <= 0 {
		cfg.DedupSize = 4096
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 10 * time.Minute
	}
	r := &Receiver{
		cfg:   cfg,
		queue: queue,
		log:   log.With().Str("component", "webhook-receiver").Logger(),
		now:   time.Now,
		seen:  expirable.NewLRU[string, time.Time](cfg.DedupSize, nil, cfg.DedupTTL),
	}
	if cfg.RequireSignature && strings.TrimSpace(cfg.Secret) == "" {
		r.log.Error().Msg("webhook signatures required but no secret configured; every webhook will be refused")
	}
	return r
}

// Receive processes one webhook request body.
func (r *Receiver) Receive(ctx context.Context, body []byte, headers http.Header) (*Result, error) {
	if err := r.authenticate(body, headers); err != nil {
		if errors.Is(err, ErrSecretNotConfigured) {
			metrics.RecordWebhookReceived("", "misconfigured")
			r.log.Error().Err(err).Msg("cannot verify webhook")
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal, err.Error(), err)
		}
		metrics.RecordWebhookReceived("", "unauthorized")
		r.log.Warn().Err(err).Msg("rejected webhook signature")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized, err.Error(), err)
	}

	now := r.now()
	event, err := ParseEvent(body, now)
	if err != nil {
		metrics.RecordWebhookReceived("", "invalid")
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, err.Error(), err)
	}

	if r.cfg.Tolerance > 0 && !event.Timestamp.IsZero() {
		skew := now.Sub(event.Timestamp)
		if skew < 0 {
			skew = -skew
		}
		if skew > r.cfg.Tolerance {
			metrics.RecordWebhookReceived(event.Type, "stale")
			r.log.Warn().
				Str("event", event.Type).
				Str("event_id", event.ID).
				Dur("skew", skew).
				Msg("webhook timestamp outside tolerance")
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				"webhook timestamp outside tolerance", nil)
		}
	}

	result := &Result{EventID: event.ID, EventType: event.Type}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.seen.Contains(event.ID) {
		metrics.RecordWebhookReceived(event.Type, "duplicate")
		r.log.Info().Str("event", event.Type).Str("event_id", event.ID).Msg("duplicate webhook acknowledged")
		result.Duplicate = true
		return result, nil
	}

	if err := r.queue.Enqueue(event); err != nil {
		metrics.RecordWebhookReceived(event.Type, "rejected")
		r.log.Warn().Err(err).Str("event", event.Type).Str("event_id", event.ID).Msg("could not enqueue webhook")
		if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrDispatcherStopped) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnavailable,
				"webhook queue unavailable, retry later", err)
		}
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInternal,
			"failed to enqueue webhook", err)
	}
	// only remembered once accepted, so a rejected delivery can be retried
	r.seen.Add(event.ID, now)
	result.Queued = true

	metrics.RecordWebhookReceived(event.Type, "accepted")
	r.log.Info().
		Str("event", event.Type).
		Str("event_id", event.ID).
		Str("agent_id", event.AgentID).
		Msg("webhook accepted")
	return result, nil
}

func (r *Receiver) authenticate(body []byte, headers http.Header) error {
	signature := SignatureFromHeaders(headers)
	if strings.TrimSpace(r.cfg.Secret) == "" {
		if r.cfg.RequireSignature {
			return ErrSecretNotConfigured
		}
		return nil
	}
	if signature == "" {
		if r.cfg.RequireSignature {
			return ErrMissingSignature
		}
		return nil
	}
	return Verify(r.cfg.Secret, body, signature)
}
