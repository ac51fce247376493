// Package streamer moves client audio into an avatar runtime and runtime
// frames out to a publisher.
package streamer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/audio"
	"avatar-bridge/internal/domain/avatar"
	"avatar-bridge/internal/infrastructure/metrics"
)

// pushBackoff is how long the consumer waits after a failed runtime push.
const pushBackoff = 100 * time.Millisecond

const gestureTimeout = 5 * time.Second

// Config configures a Streamer.
type Config struct {
	SampleRate int
	FPS        int
	QueueSize  int
	Volume     float64
	// VAD enables voice gating when non-nil.
	VAD *audio.GateConfig
	// Pace publishes at FPS; otherwise frames go out as fast as the
	// runtime emits them.
	Pace bool
}

// Stats is a snapshot of streamer counters.
type Stats struct {
	ReceivedChunks  uint64  `json:"received_chunks"`
	DroppedChunks   uint64  `json:"dropped_chunks"`
	ForwardedFrames uint64  `json:"forwarded_frames"`
	PushErrors      uint64  `json:"push_errors"`
	PublishErrors   uint64  `json:"publish_errors"`
	Gestures        uint64  `json:"gestures"`
	QueueDepth      int     `json:"queue_depth"`
	Clients         int64   `json:"clients"`
	AverageFPS      float64 `json:"average_fps"`
	Speaking        bool    `json:"speaking"`
}

type chunk struct {
	pcm []byte
	end bool
}

// Streamer owns the audio queue and the two loops around a Runtime.
type Streamer struct {
	cfg       Config
	runtime   avatar.Runtime
	publisher Publisher
	log       zerolog.Logger

	queue   *audio.FrameQueue[chunk]
	fps     *avatar.FPSController
	gate    *audio.Gate
	chunker *audio.Chunker
	inMu    sync.Mutex

	received   atomic.Uint64
	forwarded  atomic.Uint64
	pushErrs   atomic.Uint64
	publishErr atomic.Uint64
	gestures   atomic.Uint64
	clients    atomic.Int64

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New returns a Streamer. The runtime and publisher are owned by the
// streamer from here on and closed by Stop.
func New(cfg Config, rt avatar.Runtime, pub Publisher, log zerolog.Logger) *Streamer {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = avatar.SampleRate
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 25
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 500
	}
	if cfg.Volume <= 0 {
		cfg.Volume = 1
	}

	s := &Streamer{
		cfg:       cfg,
		runtime:   rt,
		publisher: pub,
		log:       log.With().Str("component", "streamer").Logger(),
		queue:     audio.NewFrameQueue[chunk](cfg.QueueSize),
		fps:       avatar.NewFPSController(cfg.FPS),
	}
	// an evicted end marker would leave the utterance open forever
	s.queue.Pin(func(c chunk) bool { return c.end })
	if cfg.VAD != nil {
		format, err := audio.FormatForRate(cfg.SampleRate)
		if err != nil {
			format = audio.L16Mono16K
		}
		s.gate = audio.NewGate(*cfg.VAD)
		s.chunker = audio.NewChunker(format, 10*time.Millisecond)
	}
	return s
}

// Start starts the runtime and the consumer and frame loops.
func (s *Streamer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return errors.New("streamer: stopped")
	}
	if s.started {
		return nil
	}

	if err := s.runtime.Start(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.started = true

	s.wg.Add(2)
	go s.consume(loopCtx)
	go s.pump(loopCtx)

	s.log.Info().
		Int("sample_rate", s.cfg.SampleRate).
		Int("fps", s.cfg.FPS).
		Int("queue_size", s.cfg.QueueSize).
		Bool("vad", s.gate != nil).
		Msg("streamer started")
	return nil
}

// Run starts the streamer and blocks until ctx is done, then stops it
// within shutdownTimeout.
func (s *Streamer) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}

// HandleMessage routes a transport message: binary frames carry PCM audio,
// text frames carry JSON control messages.
func (s *Streamer) HandleMessage(binary bool, data []byte) {
	if binary {
		s.HandleAudio(data)
		return
	}
	msg, err := ParseControl(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("ignoring malformed control message")
		return
	}
	s.HandleControl(msg)
}

// HandleAudio enqueues PCM audio at the configured sample rate.
func (s *Streamer) HandleAudio(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	if s.gate == nil {
		s.enqueue(chunk{pcm: audio.ApplyGain(pcm, s.cfg.Volume)})
		return
	}

	s.inMu.Lock()
	defer s.inMu.Unlock()
	now := time.Now()
	for _, frame := range s.chunker.Push(pcm) {
		speaking := s.gate.Observe(frame, now)
		if speaking {
			frame = audio.ApplyGain(frame, s.cfg.Volume)
		}
		s.enqueue(chunk{pcm: frame})
		if !speaking {
			if n := s.queue.Trim(s.gate.Config().BacklogLimit); n > 0 {
				metrics.StreamerChunksDropped.Add(float64(n))
			}
		}
	}
}

func (s *Streamer) enqueue(c chunk) {
	if !c.end {
		s.received.Add(1)
		metrics.StreamerChunksReceived.Inc()
	}
	if s.queue.Push(c) {
		metrics.StreamerChunksDropped.Inc()
		s.log.Warn().Int("queue_size", s.cfg.QueueSize).Msg("audio queue full, dropped oldest chunk")
	}
}

// HandleControl applies a control message.
func (s *Streamer) HandleControl(msg ControlMessage) {
	switch msg.Type {
	case MessageInterrupt:
		s.Interrupt()
	case MessageEnd:
		s.endOfSpeech()
	case MessageGesture:
		ctx, cancel := context.WithTimeout(context.Background(), gestureTimeout)
		defer cancel()
		if err := s.Gesture(ctx, msg.Action); err != nil {
			s.log.Warn().Err(err).Str("action", msg.Action).Msg("gesture failed")
		}
	default:
		s.log.Warn().Str("type", string(msg.Type)).Msg("unknown control message type")
	}
}

// Interrupt discards queued audio and stops the avatar.
func (s *Streamer) Interrupt() {
	n := s.queue.Clear()
	if s.chunker != nil {
		s.inMu.Lock()
		s.chunker.Flush()
		s.inMu.Unlock()
	}
	s.runtime.Interrupt()
	s.fps.Reset()
	s.log.Info().Int("discarded", n).Msg("interrupted")
}

// Gesture asks the runtime to play action. It does not touch queued audio.
func (s *Streamer) Gesture(ctx context.Context, action string) error {
	if err := s.runtime.TriggerGesture(ctx, action); err != nil {
		metrics.GestureTriggers.WithLabelValues(action, "failed").Inc()
		return err
	}
	s.gestures.Add(1)
	metrics.GestureTriggers.WithLabelValues(action, "played").Inc()
	return nil
}

func (s *Streamer) endOfSpeech() {
	if s.chunker != nil {
		s.inMu.Lock()
		if tail := s.chunker.Flush(); tail != nil {
			s.enqueue(chunk{pcm: tail})
		}
		s.inMu.Unlock()
	}
	s.enqueue(chunk{end: true})
}

// consume drains the queue in arrival order into the runtime.
func (s *Streamer) consume(ctx context.Context) {
	defer s.wg.Done()
	for {
		c, err := s.queue.Pop(ctx)
		if err != nil {
			return
		}

		if c.end {
			err = s.runtime.Flush(ctx)
		} else {
			err = s.runtime.PushAudio(ctx, c.pcm, s.cfg.SampleRate, false)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		s.pushErrs.Add(1)
		s.log.Error().Err(err).Bool("end", c.end).Msg("failed to push audio to runtime")
		select {
		case <-ctx.Done():
			return
		case <-time.After(pushBackoff):
		}
	}
}

// pump forwards runtime frames to the publisher.
func (s *Streamer) pump(ctx context.Context) {
	defer s.wg.Done()
	frames := s.runtime.Frames()
	for {
		var (
			frame avatar.Frame
			ok    bool
		)
		select {
		case <-ctx.Done():
			return
		case frame, ok = <-frames:
			if !ok {
				return
			}
		}

		if s.cfg.Pace {
			s.fps.Tick()
		} else {
			s.fps.Wait()
		}

		if err := s.publisher.PublishFrame(ctx, frame); err != nil {
			s.publishErr.Add(1)
			s.log.Error().Err(err).Uint64("seq", frame.Seq).Msg("failed to publish frame")
			continue
		}
		s.forwarded.Add(1)
		metrics.StreamerFramesPublished.Inc()
	}
}

// ClientConnected records a new audio client.
func (s *Streamer) ClientConnected() {
	metrics.StreamerClients.Inc()
	n := s.clients.Add(1)
	s.log.Info().Int64("clients", n).Msg("client connected")
}

// ClientDisconnected records a departed audio client.
func (s *Streamer) ClientDisconnected() {
	metrics.StreamerClients.Dec()
	n := s.clients.Add(-1)
	s.log.Info().Int64("clients", n).Msg("client disconnected")
}

// Stats returns current counters.
func (s *Streamer) Stats() Stats {
	st := Stats{
		ReceivedChunks:  s.received.Load(),
		DroppedChunks:   s.queue.Dropped(),
		ForwardedFrames: s.forwarded.Load(),
		PushErrors:      s.pushErrs.Load(),
		PublishErrors:   s.publishErr.Load(),
		Gestures:        s.gestures.Load(),
		QueueDepth:      s.queue.Len(),
		Clients:         s.clients.Load(),
		AverageFPS:      s.fps.AverageFPS(),
		Speaking:        true,
	}
	if s.gate != nil {
		st.Speaking = s.gate.Speaking()
	}
	return st
}

// Stop closes the queue, runtime and publisher. It is safe to call more
// than once.
func (s *Streamer) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	s.queue.Close()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn().Msg("streamer loops did not exit before shutdown deadline")
	}

	var errs []error
	if err := s.runtime.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.publisher.Close(ctx); err != nil {
		errs = append(errs, err)
	}

	st := s.Stats()
	s.log.Info().
		Uint64("received", st.ReceivedChunks).
		Uint64("dropped", st.DroppedChunks).
		Uint64("frames", st.ForwardedFrames).
		Msg("streamer stopped")
	return errors.Join(errs...)
}
