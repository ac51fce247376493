// Package webhookres contains HTTP response DTOs for webhook endpoints.
package webhookres

import (
	"time"

	"avatar-bridge/internal/domain/webhook"
)

// Status values in ReceiveResponse.
const (
	StatusAccepted  = "accepted"
	StatusDuplicate = "duplicate"
)

// ReceiveResponse acknowledges a webhook delivery.
type ReceiveResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Duplicate bool   `json:"duplicate"`
}

// LiveKitResponse acknowledges a LiveKit server webhook.
type LiveKitResponse struct {
	Event  string `json:"event"`
	Room   string `json:"room,omitempty"`
	Action string `json:"action"`
}

// DeadLetterResponse is one failed event.
type DeadLetterResponse struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	AgentID   string `json:"agent_id,omitempty"`
	Error     string `json:"error"`
	Attempts  int    `json:"attempts"`
	FailedAt  string `json:"failed_at"`
}

// DeadLetterListResponse lists failed events.
type DeadLetterListResponse struct {
	Object string                `json:"object"`
	Data   []*DeadLetterResponse `json:"data"`
}

// ReplayResponse reports a replayed dead letter.
type ReplayResponse struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Replayed  bool   `json:"replayed"`
}

// NewReceiveResponse builds the acknowledgement for r.
func NewReceiveResponse(r *webhook.Result) *ReceiveResponse {
	status := StatusAccepted
	if r.Duplicate {
		status = StatusDuplicate
	}
	return &ReceiveResponse{
		Status:    status,
		EventID:   r.EventID,
		EventType: r.EventType,
		Duplicate: r.Duplicate,
	}
}

// NewDeadLetterListResponse converts stored dead letters. Payloads are not
// echoed back.
func NewDeadLetterListResponse(items []*webhook.DeadLetter) *DeadLetterListResponse {
	data := make([]*DeadLetterResponse, len(items))
	for i, dl := range items {
		data[i] = &DeadLetterResponse{
			ID:        dl.ID,
			EventID:   dl.EventID,
			EventType: dl.EventType,
			AgentID:   dl.AgentID,
			Error:     dl.Error,
			Attempts:  dl.Attempts,
			FailedAt:  dl.FailedAt.UTC().Format(time.RFC3339),
		}
	}
	return &DeadLetterListResponse{Object: "list", Data: data}
}
