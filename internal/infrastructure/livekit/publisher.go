package livekit

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/avatar"
)

// Data packet topics used by the avatar publisher.
const (
	TopicAudio  = "avatar.audio"
	TopicEvents = "avatar.events"
)

// PublisherConfig configures a room data publisher.
type PublisherConfig struct {
	URL       string
	APIKey    string
	APISecret string
	Room      string
	Identity  string
}

// DataPublisher joins a LiveKit room as the avatar participant and forwards
// frames as data packets: audio on TopicAudio, speech events on
// TopicEvents. Media tracks are left to the vendor runtime.
type DataPublisher struct {
	room *lksdk.Room
	log  zerolog.Logger

	mu     sync.Mutex
	closed bool
}

type speechEvent struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
}

// ConnectDataPublisher joins cfg.Room.
func ConnectDataPublisher(cfg PublisherConfig, log zerolog.Logger) (*DataPublisher, error) {
	log = log.With().Str("component", "livekit-publisher").Str("room", cfg.Room).Logger()

	cb := lksdk.NewRoomCallback()
	cb.OnDisconnected = func() {
		log.Warn().Msg("disconnected from LiveKit room")
	}

	room, err := lksdk.ConnectToRoom(cfg.URL, lksdk.ConnectInfo{
		APIKey:              cfg.APIKey,
		APISecret:           cfg.APISecret,
		RoomName:            cfg.Room,
		ParticipantIdentity: cfg.Identity,
	}, cb)
	if err != nil {
		return nil, fmt.Errorf("connect to livekit room %s: %w", cfg.Room, err)
	}

	log.Info().Str("identity", cfg.Identity).Msg("joined LiveKit room")
	return &DataPublisher{room: room, log: log}, nil
}

// PublishFrame implements streamer.Publisher.
func (p *DataPublisher) PublishFrame(_ context.Context, frame avatar.Frame) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return fmt.Errorf("livekit publisher closed")
	}

	if frame.HasAudio() {
		if err := p.room.LocalParticipant.PublishDataPacket(
			lksdk.UserData(encodeAudioPacket(frame)),
			lksdk.WithDataPublishTopic(TopicAudio),
			lksdk.WithDataPublishReliable(false),
		); err != nil {
			return err
		}
	}

	if frame.EndOfSpeech {
		payload, err := json.Marshal(speechEvent{Type: "end_of_speech", Seq: frame.Seq})
		if err != nil {
			return err
		}
		return p.room.LocalParticipant.PublishDataPacket(
			lksdk.UserData(payload),
			lksdk.WithDataPublishTopic(TopicEvents),
			lksdk.WithDataPublishReliable(true),
		)
	}
	return nil
}

// encodeAudioPacket prefixes the PCM payload with the big-endian sequence
// number.
func encodeAudioPacket(frame avatar.Frame) []byte {
	buf := make([]byte, 8+len(frame.Audio))
	binary.BigEndian.PutUint64(buf, frame.Seq)
	copy(buf[8:], frame.Audio)
	return buf
}

// Close leaves the room.
func (p *DataPublisher) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.room.Disconnect()
	p.log.Info().Msg("left LiveKit room")
	return nil
}
