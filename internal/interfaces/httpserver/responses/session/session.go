// Package sessionres contains HTTP response DTOs for session endpoints.
package sessionres

import (
	domainsession "avatar-bridge/internal/domain/session"
)

// SessionResponse represents a session in API responses.
type SessionResponse struct {
	ID           string              `json:"id"`
	Object       string              `json:"object"`
	ClientSecret *ClientSecretDetail `json:"client_secret,omitempty"`
	WsURL        string              `json:"ws_url,omitempty"`
	RoomID       string              `json:"room_id,omitempty"`
	UserID       string              `json:"user_id,omitempty"`
	AvatarID     string              `json:"avatar_id,omitempty"`
	Status       string              `json:"status,omitempty"`
	CreatedAt    int64               `json:"created_at,omitempty"`
	ConnectedAt  int64               `json:"connected_at,omitempty"`
}

// ClientSecretDetail contains the client secret for a session.
type ClientSecretDetail struct {
	Value     string `json:"value"`
	ExpiresAt int64  `json:"expires_at"`
}

// ListSessionsResponse represents the response for listing sessions.
type ListSessionsResponse struct {
	Object string             `json:"object"`
	Data   []*SessionResponse `json:"data"`
}

// DeleteSessionResponse represents the response for deleting a session.
type DeleteSessionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

// NewSessionResponse is the POST form, the only one carrying client_secret.
func NewSessionResponse(sess *domainsession.Session) *SessionResponse {
	resp := NewSessionResponseForGet(sess)
	if sess.ClientSecret != nil {
		resp.ClientSecret = &ClientSecretDetail{
			Value:     sess.ClientSecret.Value,
			ExpiresAt: sess.ClientSecret.ExpiresAt,
		}
	}
	return resp
}

// NewSessionResponseForGet omits the client secret.
func NewSessionResponseForGet(sess *domainsession.Session) *SessionResponse {
	resp := &SessionResponse{
		ID:       sess.ID,
		Object:   sess.Object,
		WsURL:    sess.WsURL,
		RoomID:   sess.Room,
		UserID:   sess.UserID,
		AvatarID: sess.AvatarID,
		Status:   string(sess.State),
	}
	if !sess.CreatedAt.IsZero() {
		resp.CreatedAt = sess.CreatedAt.Unix()
	}
	if !sess.ConnectedAt.IsZero() {
		resp.ConnectedAt = sess.ConnectedAt.Unix()
	}
	return resp
}

// NewListSessionsResponse creates a ListSessionsResponse from domain Sessions.
func NewListSessionsResponse(sessions []*domainsession.Session) *ListSessionsResponse {
	data := make([]*SessionResponse, len(sessions))
	for i, s := range sessions {
		data[i] = NewSessionResponseForGet(s)
	}
	return &ListSessionsResponse{
		Object: "list",
		Data:   data,
	}
}

// NewDeleteSessionResponse creates a DeleteSessionResponse.
func NewDeleteSessionResponse(id string) *DeleteSessionResponse {
	return &DeleteSessionResponse{
		ID:      id,
		Object:  "avatar.session.deleted",
		Deleted: true,
	}
}
