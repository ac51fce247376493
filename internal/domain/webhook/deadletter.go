package webhook

import (
	"context"
	"errors"
	"time"
)

// ErrDeadLetterNotFound is returned for unknown dead-letter ids.
var ErrDeadLetterNotFound = errors.New("dead letter not found")

// DeadLetter is an event whose handler kept failing.
type DeadLetter struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	AgentID   string    `json:"agent_id,omitempty"`
	Payload   []byte    `json:"payload"`
	Error     string    `json:"error"`
	Attempts  int       `json:"attempts"`
	FailedAt  time.Time `json:"failed_at"`
}

// DeadLetterStore persists dead letters. List returns newest first.
type DeadLetterStore interface {
	Put(ctx context.Context, dl *DeadLetter) error
	Get(ctx context.Context, id string) (*DeadLetter, error)
	List(ctx context.Context, limit int) ([]*DeadLetter, error)
	Delete(ctx context.Context, id string) error
}
