package avatar

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/audio"
)

// LoopbackConfig configures a Loopback runtime.
type LoopbackConfig struct {
	FPS       int
	Width     int
	Height    int
	QueueSize int
}

// Loopback is a Runtime that renders nothing: pushed audio comes back out
// as frames of one video interval each (40 ms at 25 fps). It backs console
// mode and tests where the vendor SDK is unavailable.
type Loopback struct {
	cfg     LoopbackConfig
	log     zerolog.Logger
	format  audio.Format
	pending *audio.FrameQueue[Frame]
	frames  chan Frame

	mu       sync.Mutex
	chunker  *audio.Chunker
	resamp   *audio.Resampler
	inRate   int
	gestures []string
	seq      uint64
	started  bool
	closed   bool

	cancel context.CancelFunc
	done   chan struct{}
}

var _ Runtime = (*Loopback)(nil)

// NewLoopback returns a stopped Loopback runtime.
func NewLoopback(cfg LoopbackConfig, log zerolog.Logger) *Loopback {
	if cfg.FPS <= 0 {
		cfg.FPS = 25
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 512, 512
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	return &Loopback{
		cfg:     cfg,
		log:     log.With().Str("component", "loopback-runtime").Logger(),
		format:  audio.L16Mono16K,
		pending: audio.NewFrameQueue[Frame](cfg.QueueSize),
		frames:  make(chan Frame),
		chunker: audio.NewChunker(audio.L16Mono16K, frameDuration(cfg.FPS)),
		done:    make(chan struct{}),
	}
}

func frameDuration(fps int) time.Duration {
	return time.Second / time.Duration(fps)
}

// Start begins emitting frames. Calling Start twice is a no-op.
func (l *Loopback) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrRuntimeClosed
	}
	if l.started {
		return nil
	}
	l.started = true

	runCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	go l.run(runCtx)

	l.log.Info().
		Int("fps", l.cfg.FPS).
		Int("chunk_bytes", l.chunker.FrameBytes()).
		Msg("loopback runtime started")
	return nil
}

func (l *Loopback) run(ctx context.Context) {
	defer close(l.done)
	defer close(l.frames)
	for {
		frame, err := l.pending.Pop(ctx)
		if err != nil {
			return
		}
		select {
		case l.frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// PushAudio slices pcm into per-frame chunks, resampling to 16 kHz first.
func (l *Loopback) PushAudio(ctx context.Context, pcm []byte, sampleRate int, last bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrRuntimeClosed
	}
	if !l.started {
		return ErrNotStarted
	}

	if sampleRate != 0 && sampleRate != SampleRate {
		samples, err := l.resampleLocked(pcm, sampleRate)
		if err != nil {
			return err
		}
		pcm = audio.Encode(samples)
	}
	for _, chunk := range l.chunker.Push(pcm) {
		l.enqueueLocked(Frame{Audio: chunk})
	}
	if last {
		l.flushLocked()
	}
	return nil
}

// Flush emits any buffered tail followed by an end-of-speech frame.
func (l *Loopback) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrRuntimeClosed
	}
	l.flushLocked()
	return nil
}

// resampleLocked keeps one resampler per input rate so filter state spans
// consecutive pushes.
func (l *Loopback) resampleLocked(pcm []byte, sampleRate int) ([]int16, error) {
	if l.resamp == nil || l.inRate != sampleRate {
		r, err := audio.NewResampler(sampleRate, SampleRate, 1)
		if err != nil {
			return nil, err
		}
		l.resamp, l.inRate = r, sampleRate
	}
	return l.resamp.Process(audio.Samples(pcm))
}

func (l *Loopback) flushLocked() {
	if l.resamp != nil {
		if tail, err := l.resamp.Flush(); err != nil {
			l.log.Warn().Err(err).Msg("resampler flush failed")
		} else if len(tail) > 0 {
			for _, chunk := range l.chunker.Push(audio.Encode(tail)) {
				l.enqueueLocked(Frame{Audio: chunk})
			}
		}
		l.resamp = nil
	}
	if tail := l.chunker.Flush(); tail != nil {
		l.enqueueLocked(Frame{Audio: tail})
	}
	l.enqueueLocked(Frame{EndOfSpeech: true})
}

func (l *Loopback) enqueueLocked(f Frame) {
	l.seq++
	f.Seq = l.seq
	if l.pending.Push(f) {
		l.log.Warn().Uint64("seq", f.Seq).Msg("loopback queue full, dropped oldest frame")
	}
}

// Interrupt drops everything not yet emitted.
func (l *Loopback) Interrupt() {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.pending.Clear()
	l.chunker = audio.NewChunker(l.format, frameDuration(l.cfg.FPS))
	l.resamp = nil
	l.log.Debug().Int("dropped", n).Msg("interrupted")
}

// TriggerGesture records action; the loopback has no clips to play.
func (l *Loopback) TriggerGesture(ctx context.Context, action string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrEmptyAction
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrRuntimeClosed
	}
	l.gestures = append(l.gestures, action)
	l.log.Info().Str("action", action).Msg("gesture triggered")
	return nil
}

// Gestures returns the actions triggered so far, oldest first.
func (l *Loopback) Gestures() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.gestures...)
}

// Frames returns the output channel.
func (l *Loopback) Frames() <-chan Frame {
	return l.frames
}

// FrameSize returns the configured dimensions.
func (l *Loopback) FrameSize() (int, int) {
	return l.cfg.Width, l.cfg.Height
}

// Pending returns the number of frames waiting to be emitted.
func (l *Loopback) Pending() int {
	return l.pending.Len()
}

// Close stops the runtime and closes the frame channel.
func (l *Loopback) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	started := l.started
	cancel := l.cancel
	l.mu.Unlock()

	l.pending.Close()
	if !started {
		close(l.frames)
		return nil
	}
	cancel()

	select {
	case <-l.done:
		l.log.Info().Msg("loopback runtime closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
