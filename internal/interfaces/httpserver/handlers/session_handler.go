package handlers

import (
	"context"

	"avatar-bridge/internal/domain/session"
)

// SessionHandler handles session-related HTTP requests.
type SessionHandler struct {
	service session.Service
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(service session.Service) *SessionHandler {
	return &SessionHandler{service: service}
}

// CreateSession creates a session for userID.
func (h *SessionHandler) CreateSession(ctx context.Context, req *session.CreateSessionRequest, userID string) (*session.Session, error) {
	return h.service.CreateSession(ctx, req, userID)
}

// GetSession returns the session when it belongs to userID.
func (h *SessionHandler) GetSession(ctx context.Context, id, userID string) (*session.Session, error) {
	sess, err := h.service.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, ErrForbidden
	}
	return sess, nil
}

// ListUserSessions retrieves all sessions for a user.
func (h *SessionHandler) ListUserSessions(ctx context.Context, userID string) ([]*session.Session, error) {
	return h.service.ListUserSessions(ctx, userID)
}

// DeleteSession removes a session owned by userID.
func (h *SessionHandler) DeleteSession(ctx context.Context, id, userID string) error {
	if _, err := h.GetSession(ctx, id, userID); err != nil {
		return err
	}
	return h.service.DeleteSession(ctx, id)
}
