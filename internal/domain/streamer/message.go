package streamer

import (
	"encoding/json"
	"fmt"
)

// MessageType is the type field of a JSON control message.
type MessageType string

const (
	// MessageInterrupt stops the avatar mid-utterance.
	MessageInterrupt MessageType = "interrupt"
	// MessageEnd marks the end of the current utterance.
	MessageEnd MessageType = "end"
	// MessageGesture plays the dynamics clip named by Action.
	MessageGesture MessageType = "gesture"
)

// ControlMessage is a text message sent by audio clients.
type ControlMessage struct {
	Type   MessageType `json:"type"`
	Action string      `json:"action,omitempty"`
}

// ParseControl decodes a control message.
func ParseControl(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("invalid control message: %w", err)
	}
	return msg, nil
}

// Encode returns the JSON form of m.
func (m ControlMessage) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}
