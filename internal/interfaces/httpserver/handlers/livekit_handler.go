package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/livekit/protocol/livekit"
	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/session"
)

// LiveKit server webhook event names.
const (
	LiveKitParticipantJoined = "participant_joined"
	LiveKitRoomFinished      = "room_finished"
)

// Outcomes of a LiveKit webhook.
const (
	ActionConnected = "connected"
	ActionEnded     = "ended"
	ActionIgnored   = "ignored"
)

// LiveKitEventReceiver authenticates and decodes a LiveKit webhook request.
type LiveKitEventReceiver interface {
	Receive(r *http.Request) (*livekit.WebhookEvent, error)
}

// LiveKitHandler applies LiveKit room events to sessions.
type LiveKitHandler struct {
	receiver LiveKitEventReceiver
	sessions session.Service
	log      zerolog.Logger
}

// NewLiveKitHandler creates a LiveKit webhook handler.
func NewLiveKitHandler(receiver LiveKitEventReceiver, sessions session.Service, log zerolog.Logger) *LiveKitHandler {
	return &LiveKitHandler{
		receiver: receiver,
		sessions: sessions,
		log:      log.With().Str("component", "livekit-webhooks").Logger(),
	}
}

// Receive verifies and decodes the request.
func (h *LiveKitHandler) Receive(r *http.Request) (*livekit.WebhookEvent, error) {
	return h.receiver.Receive(r)
}

// Handle applies event and reports what it did. Events for rooms without a
// session are ignored.
func (h *LiveKitHandler) Handle(ctx context.Context, event *livekit.WebhookEvent) (string, error) {
	room := event.GetRoom().GetName()
	log := h.log.With().Str("event", event.GetEvent()).Str("room", room).Logger()

	switch event.GetEvent() {
	case LiveKitParticipantJoined:
		// the avatar agent joining does not mean the user is there
		if event.GetParticipant().GetKind() == livekit.ParticipantInfo_AGENT {
			return ActionIgnored, nil
		}
		sess, err := h.lookup(ctx, room)
		if err != nil || sess == nil {
			return ActionIgnored, err
		}
		if err := h.sessions.MarkConnected(ctx, sess.ID); err != nil {
			return "", err
		}
		log.Info().Str("session_id", sess.ID).Str("identity", event.GetParticipant().GetIdentity()).Msg("participant joined session room")
		return ActionConnected, nil

	case LiveKitRoomFinished:
		sess, err := h.lookup(ctx, room)
		if err != nil || sess == nil {
			return ActionIgnored, err
		}
		if err := h.sessions.EndSession(ctx, sess.ID, session.EndReasonRoomFinished); err != nil && !errors.Is(err, session.ErrNotFound) {
			return "", err
		}
		log.Info().Str("session_id", sess.ID).Msg("session room finished")
		return ActionEnded, nil
	}

	log.Debug().Msg("livekit webhook ignored")
	return ActionIgnored, nil
}

func (h *LiveKitHandler) lookup(ctx context.Context, room string) (*session.Session, error) {
	if room == "" {
		return nil, nil
	}
	sess, err := h.sessions.SessionForRoom(ctx, room)
	if errors.Is(err, session.ErrNotFound) {
		return nil, nil
	}
	return sess, err
}
