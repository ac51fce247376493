package avatar

import (
	"context"
	"errors"
)

// Sample rate the avatar runtime consumes and emits audio at.
const SampleRate = 16000

var (
	// ErrRuntimeClosed is returned by operations on a closed runtime.
	ErrRuntimeClosed = errors.New("avatar: runtime closed")
	// ErrNotStarted is returned when audio is pushed before Start.
	ErrNotStarted = errors.New("avatar: runtime not started")
	// ErrEmptyAction is returned for a gesture without an action name.
	ErrEmptyAction = errors.New("avatar: empty gesture action")
)

// Runtime is the avatar inference engine. Implementations wrap the vendor
// SDK; the renderer itself is never part of this module.
type Runtime interface {
	// Start prepares the runtime and begins producing frames.
	Start(ctx context.Context) error
	// PushAudio queues a PCM chunk (int16 LE mono). last marks the end of
	// an utterance.
	PushAudio(ctx context.Context, pcm []byte, sampleRate int, last bool) error
	// Flush marks the end of the current utterance.
	Flush(ctx context.Context) error
	// Interrupt drops all pending audio so the avatar stops speaking.
	Interrupt()
	// TriggerGesture plays a named dynamics clip such as "mini_wave_hello".
	TriggerGesture(ctx context.Context, action string) error
	// Frames streams rendered output. The channel is closed by Close.
	Frames() <-chan Frame
	// FrameSize reports the video frame dimensions.
	FrameSize() (width, height int)
	// Close releases all runtime resources.
	Close(ctx context.Context) error
}

// Frame is one unit of runtime output.
type Frame struct {
	Seq         uint64
	Image       []byte // RGBA, nil when no image was produced
	Width       int
	Height      int
	Audio       []byte // int16 LE mono at SampleRate
	EndOfSpeech bool
}

// HasImage reports whether the frame carries video.
func (f Frame) HasImage() bool {
	return len(f.Image) > 0
}

// HasAudio reports whether the frame carries audio.
func (f Frame) HasAudio() bool {
	return len(f.Audio) > 0
}
