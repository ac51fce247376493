// Package session contains HTTP request DTOs for session endpoints.
package session

import domainsession "avatar-bridge/internal/domain/session"

// CreateSessionRequest is the optional body of POST /v1/sessions.
type CreateSessionRequest struct {
	// AvatarID selects the avatar the agent should render.
	AvatarID string `json:"avatar_id,omitempty" binding:"omitempty,max=64"`
}

// ToDomain converts the request to its domain form.
func (r CreateSessionRequest) ToDomain() *domainsession.CreateSessionRequest {
	return &domainsession.CreateSessionRequest{AvatarID: r.AvatarID}
}
