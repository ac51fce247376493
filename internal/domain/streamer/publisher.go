package streamer

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/avatar"
)

// Publisher delivers avatar frames to viewers.
type Publisher interface {
	PublishFrame(ctx context.Context, frame avatar.Frame) error
	Close(ctx context.Context) error
}

// ConsolePublisher logs frames instead of sending them anywhere. It is
// used in console mode.
type ConsolePublisher struct {
	log       zerolog.Logger
	every     uint64
	published atomic.Uint64
	speeches  atomic.Uint64
}

// NewConsolePublisher logs one line per every frames and on each end of
// speech.
func NewConsolePublisher(log zerolog.Logger, every int) *ConsolePublisher {
	if every <= 0 {
		every = 25
	}
	return &ConsolePublisher{
		log:   log.With().Str("component", "console-publisher").Logger(),
		every: uint64(every),
	}
}

// PublishFrame implements Publisher.
func (p *ConsolePublisher) PublishFrame(_ context.Context, frame avatar.Frame) error {
	n := p.published.Add(1)
	if frame.EndOfSpeech {
		p.speeches.Add(1)
		p.log.Info().Uint64("seq", frame.Seq).Uint64("frames", n).Msg("end of speech")
		return nil
	}
	if n%p.every == 0 {
		p.log.Info().
			Uint64("seq", frame.Seq).
			Uint64("frames", n).
			Int("audio_bytes", len(frame.Audio)).
			Bool("image", frame.HasImage()).
			Msg("frames published")
	}
	return nil
}

// Published returns the number of frames seen.
func (p *ConsolePublisher) Published() uint64 {
	return p.published.Load()
}

// Utterances returns the number of end-of-speech frames seen.
func (p *ConsolePublisher) Utterances() uint64 {
	return p.speeches.Load()
}

// Close implements Publisher.
func (p *ConsolePublisher) Close(context.Context) error {
	p.log.Info().Uint64("frames", p.published.Load()).Msg("console publisher closed")
	return nil
}
