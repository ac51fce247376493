package wsclient

import (
	"context"

	"github.com/rs/zerolog"
)

// GestureRelay forwards gesture triggers to a remote streamer, dialing a
// short-lived connection per gesture.
type GestureRelay struct {
	url string
	log zerolog.Logger
}

// NewGestureRelay returns a relay for the streamer at url.
func NewGestureRelay(url string, log zerolog.Logger) *GestureRelay {
	return &GestureRelay{url: url, log: log}
}

// TriggerGesture sends action to the streamer.
func (r *GestureRelay) TriggerGesture(ctx context.Context, action string) error {
	c, err := Dial(ctx, r.url, r.log)
	if err != nil {
		return err
	}
	defer c.Close()
	return c.SendGesture(action)
}
