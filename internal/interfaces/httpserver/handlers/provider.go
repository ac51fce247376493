package handlers

import (
	"github.com/google/wire"
)

// Provider holds all HTTP handlers.
type Provider struct {
	Session *SessionHandler
	Token   *TokenHandler
	Webhook *WebhookHandler
	LiveKit *LiveKitHandler
}

// NewProvider creates a new handler provider.
func NewProvider(session *SessionHandler, token *TokenHandler, webhook *WebhookHandler, livekit *LiveKitHandler) *Provider {
	return &Provider{
		Session: session,
		Token:   token,
		Webhook: webhook,
		LiveKit: livekit,
	}
}

// HandlerProvider provides all handlers for wire.
var HandlerProvider = wire.NewSet(
	NewSessionHandler,
	NewTokenHandler,
	NewWebhookHandler,
	NewLiveKitHandler,
	NewProvider,
)
