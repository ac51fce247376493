package webhook

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Handler processes one event type.
type Handler interface {
	Handle(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event *Event) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// Registry routes events to handlers by type.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
}

// NewRegistry returns a registry whose fallback handler is used for
// unregistered types.
func NewRegistry(fallback Handler) *Registry {
	return &Registry{handlers: make(map[string]Handler), fallback: fallback}
}

// Register sets the handler for eventType.
func (r *Registry) Register(eventType string, h Handler) {
	r.mu.Lock()
	r.handlers[eventType] = h
	r.mu.Unlock()
}

// Lookup returns the handler for eventType and whether it was registered.
func (r *Registry) Lookup(eventType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.handlers[eventType]; ok {
		return h, true
	}
	return r.fallback, false
}

// Types returns the registered event types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// AgentActivity keeps per-type counts of the built-in room and chat events.
type AgentActivity struct {
	joins    atomic.Int64
	leaves   atomic.Int64
	messages atomic.Int64
	unknown  atomic.Int64
}

// ActivitySnapshot is a copy of AgentActivity counters.
type ActivitySnapshot struct {
	Joins    int64 `json:"room_joins"`
	Leaves   int64 `json:"room_leaves"`
	Messages int64 `json:"chat_messages"`
	Unknown  int64 `json:"unknown_events"`
}

// Snapshot returns the current counts.
func (a *AgentActivity) Snapshot() ActivitySnapshot {
	return ActivitySnapshot{
		Joins:    a.joins.Load(),
		Leaves:   a.leaves.Load(),
		Messages: a.messages.Load(),
		Unknown:  a.unknown.Load(),
	}
}

type chatData struct {
	Message string `json:"message"`
	Role    string `json:"role"`
}

// ChatMessage is a non-empty chat.push message handed to chat listeners.
type ChatMessage struct {
	EventID string
	AgentID string
	Role    string
	Text    string
}

// ChatListener observes pushed chat messages. A listener error fails the
// event and sends it through the retry policy.
type ChatListener interface {
	OnChat(ctx context.Context, msg ChatMessage) error
}

// ChatListenerFunc adapts a function to ChatListener.
type ChatListenerFunc func(ctx context.Context, msg ChatMessage) error

func (f ChatListenerFunc) OnChat(ctx context.Context, msg ChatMessage) error {
	return f(ctx, msg)
}

// NewDefaultRegistry returns a registry with logging handlers for the
// platform's room and chat events. Listeners see every chat.push with a
// message.
func NewDefaultRegistry(activity *AgentActivity, log zerolog.Logger, listeners ...ChatListener) *Registry {
	log = log.With().Str("component", "webhook-handlers").Logger()

	reg := NewRegistry(HandlerFunc(func(_ context.Context, e *Event) error {
		activity.unknown.Add(1)
		log.Warn().Str("event", e.Type).Str("event_id", e.ID).Msg("unhandled webhook event")
		return nil
	}))

	reg.Register(EventRoomJoin, HandlerFunc(func(_ context.Context, e *Event) error {
		activity.joins.Add(1)
		log.Info().Str("agent_id", e.AgentID).Str("event_id", e.ID).Msg("user joined avatar room")
		return nil
	}))
	reg.Register(EventRoomLeave, HandlerFunc(func(_ context.Context, e *Event) error {
		activity.leaves.Add(1)
		log.Info().Str("agent_id", e.AgentID).Str("event_id", e.ID).Msg("user left avatar room")
		return nil
	}))
	reg.Register(EventChatPush, HandlerFunc(func(ctx context.Context, e *Event) error {
		activity.messages.Add(1)
		var msg chatData
		if len(e.Data) > 0 {
			if err := json.Unmarshal(e.Data, &msg); err != nil {
				log.Warn().Err(err).Str("event_id", e.ID).Msg("chat.push data is not an object")
			}
		}
		log.Info().
			Str("agent_id", e.AgentID).
			Str("role", msg.Role).
			Int("message_len", len(msg.Message)).
			Msg("chat message pushed")
		if msg.Message == "" {
			return nil
		}
		chat := ChatMessage{EventID: e.ID, AgentID: e.AgentID, Role: msg.Role, Text: msg.Message}
		for _, l := range listeners {
			if err := l.OnChat(ctx, chat); err != nil {
				return err
			}
		}
		return nil
	}))
	return reg
}
