// Package webhook delivers signed outbound webhook notifications.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/retry"
	domainwebhook "avatar-bridge/internal/domain/webhook"
	"avatar-bridge/internal/infrastructure/metrics"
	"avatar-bridge/internal/utils/idgen"
)

// Header names set on every delivery.
const (
	HeaderEventType = "X-Event-Type"
	HeaderWebhookID = "X-Webhook-ID"
)

// Payload is the envelope posted to the target.
type Payload struct {
	ID        string `json:"id"`
	Event     string `json:"event"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// SenderConfig configures a Sender.
type SenderConfig struct {
	URL            string
	Secret         string
	RequestTimeout time.Duration
	Policy         retry.Policy
}

// Sender posts events to one target URL with the 1s/5s/30s retry schedule.
type Sender struct {
	cfg    SenderConfig
	client *resty.Client
	log    zerolog.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewSender creates a sender. A zero Policy uses retry.DeliveryPolicy.
func NewSender(cfg SenderConfig, log zerolog.Logger) *Sender {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.Policy.BackoffStrategy == "" {
		cfg.Policy = retry.DeliveryPolicy()
	}
	client := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "avatar-bridge/1.0")

	return &Sender{
		cfg:    cfg,
		client: client,
		log:    log.With().Str("component", "webhook-sender").Logger(),
	}
}

// Enabled reports whether a target URL is configured.
func (s *Sender) Enabled() bool {
	return s != nil && s.cfg.URL != ""
}

// Notify delivers in the background; failures are logged. It satisfies
// session.Notifier.
func (s *Sender) Notify(ctx context.Context, event string, data any) {
	if !s.Enabled() {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		// detached from the request that triggered it
		sendCtx := context.WithoutCancel(ctx)
		if err := s.Send(sendCtx, event, data); err != nil {
			s.log.Error().Err(err).Str("event", event).Msg("webhook notification dropped")
		}
	}()
}

// Send delivers one event, retrying per the policy.
func (s *Sender) Send(ctx context.Context, event string, data any) error {
	if !s.Enabled() {
		return nil
	}

	id, err := idgen.GenerateSecureID("whk", 20)
	if err != nil {
		return err
	}
	body, err := json.Marshal(Payload{ID: id, Event: event, Timestamp: time.Now().Unix(), Data: data})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	log := s.log.With().Str("event", event).Str("webhook_id", id).Logger()
	return retry.NewExecutor(s.cfg.Policy).
		OnRetry(func(attempt int, delay time.Duration, err error) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("webhook delivery failed, retrying")
		}).
		Execute(ctx, func(ctx context.Context, attempt int) error {
			return s.post(ctx, id, event, body, attempt+1)
		})
}

func (s *Sender) post(ctx context.Context, id, event string, body []byte, attempt int) error {
	req := s.client.R().
		SetContext(ctx).
		SetHeader(HeaderEventType, event).
		SetHeader(HeaderWebhookID, id).
		SetBody(body)
	if s.cfg.Secret != "" {
		req.SetHeader(domainwebhook.HeaderSignature, domainwebhook.SignatureHeader(s.cfg.Secret, body))
	}

	resp, err := req.Post(s.cfg.URL)
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues(event, "error").Inc()
		return fmt.Errorf("send webhook (attempt %d): %w", attempt, err)
	}

	status := resp.StatusCode()
	if status >= 200 && status < 300 {
		metrics.WebhookDeliveries.WithLabelValues(event, "delivered").Inc()
		s.log.Info().
			Str("event", event).
			Str("webhook_id", id).
			Int("status", status).
			Int("attempt", attempt).
			Msg("webhook delivered")
		return nil
	}

	metrics.WebhookDeliveries.WithLabelValues(event, "rejected").Inc()
	err = fmt.Errorf("webhook returned status %d (attempt %d)", status, attempt)
	if !retryableStatus(status) {
		return retry.Permanent(err)
	}
	return err
}

// retryableStatus reports whether a non-2xx answer is worth retrying.
func retryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 400 && status < 500:
		return false
	}
	return true
}

// Close waits for background deliveries until ctx is done.
func (s *Sender) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
