// Package wsclient streams PCM audio to an avatar streamer over WebSocket.
package wsclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/audio"
	"avatar-bridge/internal/domain/streamer"
)

// DefaultChunk is the audio duration carried by one binary message.
const DefaultChunk = 100 * time.Millisecond

// Client is a connected audio client.
type Client struct {
	conn   *websocket.Conn
	format audio.Format
	chunk  time.Duration
	log    zerolog.Logger

	mu sync.Mutex
}

// Option customizes a Client.
type Option func(*Client)

// WithChunk sets the duration of each audio message.
func WithChunk(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.chunk = d
		}
	}
}

// WithFormat sets the PCM format sent to the server. Unknown formats are
// ignored.
func WithFormat(f audio.Format) Option {
	return func(c *Client) {
		if f.Valid() {
			c.format = f
		}
	}
}

// Dial connects to a streamer WebSocket endpoint such as ws://localhost:8765/ws.
func Dial(ctx context.Context, url string, log zerolog.Logger, opts ...Option) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	c := &Client{
		conn:   conn,
		format: audio.L16Mono16K,
		chunk:  DefaultChunk,
		log:    log.With().Str("component", "ws-client").Str("url", url).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log.Info().Msg("connected to streamer")
	return c, nil
}

// ChunkBytes returns the size of one binary audio message.
func (c *Client) ChunkBytes() int {
	return c.format.BytesInDuration(c.chunk)
}

// StreamPCM sends pcm in chunks followed by an end marker. When realtime is
// set, chunks are paced at playback speed.
func (c *Client) StreamPCM(ctx context.Context, pcm []byte, realtime bool) error {
	size := c.ChunkBytes()
	var ticker *time.Ticker
	if realtime {
		ticker = time.NewTicker(c.chunk)
		defer ticker.Stop()
	}

	sent := 0
	for off := 0; off < len(pcm); off += size {
		end := min(off+size, len(pcm))
		if err := c.write(websocket.BinaryMessage, pcm[off:end]); err != nil {
			return fmt.Errorf("send audio chunk: %w", err)
		}
		sent++

		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}

	if err := c.write(websocket.TextMessage, streamer.ControlMessage{Type: streamer.MessageEnd}.Encode()); err != nil {
		return fmt.Errorf("send end marker: %w", err)
	}
	c.log.Info().
		Int("chunks", sent).
		Dur("duration", c.format.Duration(len(pcm))).
		Msg("audio streamed")
	return nil
}

// SendInterrupt asks the avatar to stop speaking.
func (c *Client) SendInterrupt() error {
	if err := c.write(websocket.TextMessage, streamer.ControlMessage{Type: streamer.MessageInterrupt}.Encode()); err != nil {
		return fmt.Errorf("send interrupt: %w", err)
	}
	c.log.Info().Msg("interrupt sent")
	return nil
}

// SendGesture asks the avatar to play a dynamics clip.
func (c *Client) SendGesture(action string) error {
	msg := streamer.ControlMessage{Type: streamer.MessageGesture, Action: action}
	if err := c.write(websocket.TextMessage, msg.Encode()); err != nil {
		return fmt.Errorf("send gesture: %w", err)
	}
	c.log.Info().Str("action", action).Msg("gesture sent")
	return nil
}

// Close performs a close handshake and releases the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.conn.Close()
}

func (c *Client) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}
