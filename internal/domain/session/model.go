package session

import (
	"errors"
	"time"
)

// SessionState represents the state of an avatar session.
type SessionState string

const (
	// StateCreated indicates the session token was created, waiting for connection.
	StateCreated SessionState = "created"
	// StateConnected indicates the participant has joined the LiveKit room.
	StateConnected SessionState = "connected"
)

// Reasons recorded when a session ends.
const (
	EndReasonDeleted      = "deleted"
	EndReasonRoomEmpty    = "room_empty"
	EndReasonRoomFinished = "room_finished"
	EndReasonStale        = "stale"
)

// Lifecycle notification event names.
const (
	EventCreated   = "session.created"
	EventConnected = "session.connected"
	EventEnded     = "session.ended"
)

var (
	// ErrNotFound is returned when a session is not found.
	ErrNotFound = errors.New("session not found")
	// ErrAlreadyExists is returned when trying to create a session that already exists.
	ErrAlreadyExists = errors.New("session already exists")
	// ErrRoomAlreadyExists is returned when a session already owns the room.
	ErrRoomAlreadyExists = errors.New("room already exists")
)

// Session represents an avatar session: one LiveKit room shared by a user
// and the avatar agent.
type Session struct {
	ID           string        `json:"id"`
	Object       string        `json:"object"` // "avatar.session"
	ClientSecret *ClientSecret `json:"client_secret,omitempty"`
	WsURL        string        `json:"ws_url,omitempty"` // LiveKit WebSocket URL
	RoomID       string        `json:"room_id,omitempty"`
	UserID       string        `json:"user_id,omitempty"`
	AvatarID     string        `json:"avatar_id,omitempty"`
	Status       SessionState  `json:"status,omitempty"`

	// Internal tracking (not serialized to JSON response)
	Room        string       `json:"-"` // internal room name (same as RoomID)
	State       SessionState `json:"-"`
	CreatedAt   time.Time    `json:"-"`
	ConnectedAt time.Time    `json:"-"`
}

// ClientSecret contains the ephemeral token for client authentication.
type ClientSecret struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"` // actual token expiry timestamp
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	// AvatarID is passed to the avatar agent through token metadata.
	AvatarID string `json:"avatar_id,omitempty"`
}

// ListSessionsResponse is the response for listing sessions.
type ListSessionsResponse struct {
	Object string     `json:"object"` // "list"
	Data   []*Session `json:"data"`
}

// DeleteSessionResponse is the response for deleting a session.
type DeleteSessionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"` // "avatar.session.deleted"
	Deleted bool   `json:"deleted"`
}

// Notification is the payload of a lifecycle event.
type Notification struct {
	SessionID string       `json:"session_id"`
	Room      string       `json:"room"`
	UserID    string       `json:"user_id,omitempty"`
	AvatarID  string       `json:"avatar_id,omitempty"`
	State     SessionState `json:"state"`
	Reason    string       `json:"reason,omitempty"`
	Timestamp int64        `json:"timestamp"`
}
