package handlers

import (
	"context"

	"avatar-bridge/internal/domain/token"
)

// Token request sources, used as a metrics label.
const (
	SourceQuery = "get"
	SourceBody  = "post"
)

// TokenHandler issues LiveKit tokens.
type TokenHandler struct {
	service token.Service
}

// NewTokenHandler creates a token handler.
func NewTokenHandler(service token.Service) *TokenHandler {
	return &TokenHandler{service: service}
}

// Issue mints a token.
func (h *TokenHandler) Issue(ctx context.Context, req token.Request, source string) (*token.Token, error) {
	return h.service.Issue(ctx, req, source)
}

// ClientConfig returns the public client configuration.
func (h *TokenHandler) ClientConfig() token.ClientConfig {
	return h.service.ClientConfig()
}
