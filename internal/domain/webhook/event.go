// Package webhook receives avatar platform webhooks: it authenticates and
// de-duplicates them, acknowledges quickly and processes them on a worker
// pool with retries and a dead-letter store.
package webhook

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event types sent by the avatar platform.
const (
	EventRoomJoin  = "room.join"
	EventRoomLeave = "room.leave"
	EventChatPush  = "chat.push"
)

// ErrInvalidPayload is returned for bodies that are not a webhook event.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// Event is a decoded inbound webhook.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"event"`
	AgentID    string          `json:"agent_id,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
	Body       []byte          `json:"-"`
	ReceivedAt time.Time       `json:"received_at"`
}

type wirePayload struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	EventType string          `json:"event_type"`
	AgentID   string          `json:"agentId"`
	AgentIDSn string          `json:"agent_id"`
	Timestamp json.RawMessage `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// ParseEvent decodes body. The event name comes from "event" or, failing
// that, "event_type". Events without an id get one derived from the body
// hash, so identical redeliveries de-duplicate.
func ParseEvent(body []byte, receivedAt time.Time) (*Event, error) {
	var p wirePayload
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	eventType := strings.TrimSpace(p.Event)
	if eventType == "" {
		eventType = strings.TrimSpace(p.EventType)
	}
	if eventType == "" {
		return nil, fmt.Errorf("%w: missing event or event_type", ErrInvalidPayload)
	}

	ts, err := parseTimestamp(p.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	id := strings.TrimSpace(p.ID)
	if id == "" {
		sum := sha256.Sum256(body)
		id = "evt_" + hex.EncodeToString(sum[:12])
	}

	agentID := p.AgentID
	if agentID == "" {
		agentID = p.AgentIDSn
	}

	return &Event{
		ID:         id,
		Type:       eventType,
		AgentID:    agentID,
		Timestamp:  ts,
		Data:       p.Data,
		Body:       append([]byte(nil), body...),
		ReceivedAt: receivedAt,
	}, nil
}

// parseTimestamp accepts unix seconds, unix milliseconds (numbers or
// numeric strings) and RFC 3339. A missing timestamp yields the zero time.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return time.Time{}, err
		}
		s = strings.TrimSpace(str)
		if s == "" {
			return time.Time{}, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t, nil
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
	}
	// anything past year 33658 in seconds is really milliseconds
	if f > 1e12 {
		return time.UnixMilli(int64(f)), nil
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec), nil
}
