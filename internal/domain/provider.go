package domain

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"avatar-bridge/internal/config"
	"avatar-bridge/internal/domain/dynamics"
	"avatar-bridge/internal/domain/session"
	"avatar-bridge/internal/domain/token"
	"avatar-bridge/internal/domain/webhook"
)

// ProvideTokenService provides the room token service.
func ProvideTokenService(signer token.Signer, cfg *config.Config, log zerolog.Logger) token.Service {
	return token.NewService(signer, token.Settings{
		ServerURL:          cfg.LiveKitURL,
		DefaultRoom:        cfg.DefaultRoom,
		DefaultParticipant: cfg.DefaultParticipant,
		TTL:                cfg.LiveKitTokenTTL,
	}, log)
}

// ProvideSessionService provides a session service.
func ProvideSessionService(
	sessionStore session.Store,
	signer token.Signer,
	notifier session.Notifier,
	cfg *config.Config,
	log zerolog.Logger,
) session.Service {
	return session.NewService(
		sessionStore,
		signer,
		notifier,
		cfg.LiveKitURL,
		cfg.LiveKitTokenTTL,
		log,
	)
}

// ProvideAgentActivity provides the shared agent activity counters.
func ProvideAgentActivity() *webhook.AgentActivity {
	return &webhook.AgentActivity{}
}

// ProvideRegistry provides the webhook event registry. gestures may be nil.
func ProvideRegistry(activity *webhook.AgentActivity, gestures *dynamics.Handler, log zerolog.Logger) *webhook.Registry {
	if gestures == nil {
		return webhook.NewDefaultRegistry(activity, log)
	}
	return webhook.NewDefaultRegistry(activity, log, gestures)
}

// ProvideDispatcher provides the webhook dispatcher. The caller starts it.
func ProvideDispatcher(
	cfg *config.Config,
	registry *webhook.Registry,
	deadLetters webhook.DeadLetterStore,
	log zerolog.Logger,
) *webhook.Dispatcher {
	return webhook.NewDispatcher(webhook.DispatcherConfig{
		QueueSize:      cfg.WebhookQueueSize,
		Workers:        cfg.WebhookWorkers,
		HandlerTimeout: cfg.WebhookHandlerTimeout,
		Retry:          webhook.DefaultRetryPolicy(cfg.WebhookMaxAttempts),
	}, registry, deadLetters, log)
}

// ProvideReceiver provides the inbound webhook receiver.
func ProvideReceiver(cfg *config.Config, dispatcher *webhook.Dispatcher, log zerolog.Logger) *webhook.Receiver {
	return webhook.NewReceiver(webhook.ReceiverConfig{
		Secret:           cfg.WebhookSecret,
		RequireSignature: cfg.WebhookRequireSignature,
		Tolerance:        cfg.WebhookTolerance,
		DedupSize:        cfg.WebhookDedupSize,
		DedupTTL:         cfg.WebhookDedupTTL,
	}, dispatcher, log)
}

// ServiceProvider provides all domain services.
var ServiceProvider = wire.NewSet(
	ProvideTokenService,
	ProvideSessionService,
	ProvideAgentActivity,
	ProvideRegistry,
	ProvideDispatcher,
	ProvideReceiver,
)
