package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/token"
	"avatar-bridge/internal/infrastructure/metrics"
	"avatar-bridge/internal/utils/idgen"
)

// Notifier delivers lifecycle events to an external listener. Delivery is
// asynchronous; implementations must not block the caller.
type Notifier interface {
	Notify(ctx context.Context, event string, data any)
}

// Service defines the business operations for session management.
type Service interface {
	CreateSession(ctx context.Context, req *CreateSessionRequest, userID string) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	ListUserSessions(ctx context.Context, userID string) ([]*Session, error)
	DeleteSession(ctx context.Context, id string) error

	// MarkConnected moves a created session to connected.
	MarkConnected(ctx context.Context, id string) error
	// EndSession removes a session for the given reason.
	EndSession(ctx context.Context, id, reason string) error
	// SessionForRoom resolves the session owning a LiveKit room.
	SessionForRoom(ctx context.Context, room string) (*Session, error)
}

type service struct {
	store    Store
	signer   token.Signer
	notifier Notifier
	wsURL    string
	tokenTTL time.Duration
	log      zerolog.Logger
}

// NewService creates a new session service. notifier may be nil.
func NewService(store Store, signer token.Signer, notifier Notifier, wsURL string, tokenTTL time.Duration, log zerolog.Logger) Service {
	return &service{
		store:    store,
		signer:   signer,
		notifier: notifier,
		wsURL:    wsURL,
		tokenTTL: tokenTTL,
		log:      log.With().Str("component", "session-service").Logger(),
	}
}

func (s *service) CreateSession(ctx context.Context, req *CreateSessionRequest, userID string) (*Session, error) {
	if req == nil {
		req = &CreateSessionRequest{}
	}

	sessionID, err := idgen.GenerateSecureID("sess", 24)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to generate session ID")
		return nil, err
	}

	roomID, err := idgen.GenerateSecureID("room", 24)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to generate room ID")
		return nil, err
	}

	identity := userID
	if identity == "" {
		identity, err = idgen.GenerateSecureID("user", 24)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to generate user ID")
			return nil, err
		}
	}

	grant := token.Grant{Room: roomID, Identity: identity, TTL: s.tokenTTL}
	if req.AvatarID != "" {
		meta, err := json.Marshal(map[string]string{"avatar_id": req.AvatarID})
		if err != nil {
			return nil, err
		}
		grant.Metadata = string(meta)
	}
	jwt, err := s.signer.Sign(grant)
	if err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to generate token")
		return nil, err
	}
	metrics.TokensIssued.WithLabelValues("session").Inc()

	now := time.Now()
	session := &Session{
		ID:     sessionID,
		Object: "avatar.session",
		ClientSecret: &ClientSecret{
			Value:     jwt,
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
		},
		WsURL:     s.wsURL,
		RoomID:    roomID,
		UserID:    userID,
		AvatarID:  req.AvatarID,
		Status:    StateCreated,
		Room:      roomID,
		State:     StateCreated,
		CreatedAt: now,
	}

	if err := s.store.Create(ctx, session); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID).Msg("failed to store session")
		return nil, err
	}
	metrics.RecordSessionCreated()

	s.log.Info().
		Str("session_id", sessionID).
		Str("user_id", userID).
		Str("room_id", roomID).
		Str("state", string(StateCreated)).
		Msg("session created")

	s.notify(ctx, EventCreated, session, "")
	return session, nil
}

func (s *service) GetSession(ctx context.Context, id string) (*Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Status = sess.State
	return sess, nil
}

func (s *service) ListUserSessions(ctx context.Context, userID string) ([]*Session, error) {
	sessions, err := s.store.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		sess.Status = sess.State
	}
	return sessions, nil
}

func (s *service) DeleteSession(ctx context.Context, id string) error {
	return s.EndSession(ctx, id, EndReasonDeleted)
}

func (s *service) SessionForRoom(ctx context.Context, room string) (*Session, error) {
	return s.store.GetByRoom(ctx, room)
}

func (s *service) MarkConnected(ctx context.Context, id string) error {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.State == StateConnected {
		return nil
	}
	if err := s.store.UpdateState(ctx, id, StateConnected); err != nil {
		return err
	}
	metrics.RecordStateTransition(string(sess.State), string(StateConnected))

	s.log.Info().
		Str("session_id", id).
		Str("room", sess.Room).
		Str("state", string(StateConnected)).
		Msg("session connected")
	s.notify(ctx, EventConnected, sess, "")
	return nil
}

func (s *service) EndSession(ctx context.Context, id, reason string) error {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			// lost a race with another cleanup path
			return nil
		}
		return err
	}
	metrics.RecordSessionDeleted(reason)

	s.log.Info().
		Str("session_id", id).
		Str("room", sess.Room).
		Str("reason", reason).
		Msg("session deleted")
	s.notify(ctx, EventEnded, sess, reason)
	return nil
}

func (s *service) notify(ctx context.Context, event string, sess *Session, reason string) {
	if s.notifier == nil {
		return
	}
	state := sess.State
	if event == EventConnected {
		state = StateConnected
	}
	s.notifier.Notify(ctx, event, Notification{
		SessionID: sess.ID,
		Room:      sess.Room,
		UserID:    sess.UserID,
		AvatarID:  sess.AvatarID,
		State:     state,
		Reason:    reason,
		Timestamp: time.Now().Unix(),
	})
}
