package webhook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/retry"
	"avatar-bridge/internal/infrastructure/metrics"
	"avatar-bridge/internal/utils/idgen"
	"avatar-bridge/internal/worker"
)

// ErrQueueFull is returned when the dispatcher cannot take more events.
var ErrQueueFull = errors.New("webhook queue is full")

// ErrDispatcherStopped is returned by Enqueue after Stop.
var ErrDispatcherStopped = errors.New("webhook dispatcher stopped")

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	QueueSize       int
	Workers         int
	HandlerTimeout  time.Duration
	Retry           retry.Policy
	// ShutdownTimeout bounds how long Stop waits for in-flight handlers.
	ShutdownTimeout time.Duration
}

// DefaultRetryPolicy is the in-process handler retry policy for maxAttempts
// total attempts.
func DefaultRetryPolicy(maxAttempts int) retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxRetries = maxAttempts - 1
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	p.InitialDelay = 200 * time.Millisecond
	p.MaxDelay = 5 * time.Second
	return p
}

// Dispatcher drains accepted events on a worker pool.
type Dispatcher struct {
	cfg         DispatcherConfig
	registry    *Registry
	deadLetters DeadLetterStore
	log         zerolog.Logger

	queue chan *Event
	pool  *worker.Pool[*Event]

	mu      sync.RWMutex
	stopped bool
	cancel  context.CancelFunc
}

// NewDispatcher creates a dispatcher. deadLetters may be nil, in which
// case exhausted events are only logged.
func NewDispatcher(cfg DispatcherConfig, registry *Registry, deadLetters DeadLetterStore, log zerolog.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 25 * time.Second
	}

	d := &Dispatcher{
		cfg:         cfg,
		registry:    registry,
		deadLetters: deadLetters,
		log:         log.With().Str("component", "webhook-dispatcher").Logger(),
		queue:       make(chan *Event, cfg.QueueSize),
	}
	d.pool = worker.NewPool(d.queue, d.process, worker.Config{WorkerCount: cfg.Workers, ShutdownTimeout: cfg.ShutdownTimeout}, log)
	return d
}

// Start launches the workers.
func (d *Dispatcher) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()
	d.pool.Start(runCtx)
}

// Enqueue hands event to the workers without blocking.
func (d *Dispatcher) Enqueue(event *Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	select {
	case d.queue <- event:
		metrics.WebhookQueueDepth.Set(float64(len(d.queue)))
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth returns the number of events waiting for a worker.
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

// Stop stops accepting events and waits for in-flight handlers. Events still
// queued are dead-lettered so they can be replayed after restart.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	cancel := d.cancel
	d.mu.Unlock()

	d.pool.Stop()
	if cancel != nil {
		cancel()
	}
	d.drain()
}

func (d *Dispatcher) drain() {
	pending := 0
	for {
		select {
		case event := <-d.queue:
			pending++
			d.deadLetter(context.Background(), event, ErrDispatcherStopped, 0, d.label(event))
		default:
			metrics.WebhookQueueDepth.Set(0)
			if pending > 0 {
				d.log.Warn().Int("pending", pending).Msg("dead-lettered webhook events left unprocessed at shutdown")
			}
			return
		}
	}
}

func (d *Dispatcher) label(event *Event) string {
	if _, known := d.registry.Lookup(event.Type); known {
		return event.Type
	}
	return "unknown"
}

func (d *Dispatcher) process(ctx context.Context, event *Event) {
	metrics.WebhookQueueDepth.Set(float64(len(d.queue)))
	handler, _ := d.registry.Lookup(event.Type)
	if handler == nil {
		d.log.Warn().Str("event", event.Type).Msg("no handler for webhook event")
		return
	}

	log := d.log.With().Str("event", event.Type).Str("event_id", event.ID).Logger()
	start := time.Now()
	attempts := 0

	err := retry.NewExecutor(d.cfg.Retry).
		OnRetry(func(attempt int, delay time.Duration, err error) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("webhook handler failed, retrying")
		}).
		Execute(ctx, func(ctx context.Context, _ int) error {
			attempts++
			hctx, cancel := context.WithTimeout(ctx, d.cfg.HandlerTimeout)
			defer cancel()
			return d.safeHandle(hctx, handler, event)
		})

	label := d.label(event)
	if err == nil {
		metrics.WebhookDispatchDuration.WithLabelValues(label, "ok").Observe(time.Since(start).Seconds())
		log.Debug().Int("attempts", attempts).Msg("webhook event processed")
		return
	}
	metrics.WebhookDispatchDuration.WithLabelValues(label, "failed").Observe(time.Since(start).Seconds())

	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		log.Warn().Err(err).Msg("webhook processing cancelled")
	}
	d.deadLetter(ctx, event, err, attempts, label)
}

func (d *Dispatcher) safeHandle(ctx context.Context, h Handler, event *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, event)
}

func (d *Dispatcher) deadLetter(ctx context.Context, event *Event, cause error, attempts int, label string) {
	metrics.WebhookDeadLetters.WithLabelValues(label).Inc()
	log := d.log.With().Str("event", event.Type).Str("event_id", event.ID).Logger()
	log.Error().Err(cause).Int("attempts", attempts).Msg("webhook event exhausted retries")

	if d.deadLetters == nil {
		return
	}
	id, err := idgen.GenerateSecureID("dlq", 16)
	if err != nil {
		log.Error().Err(err).Msg("failed to generate dead letter id")
		return
	}
	dl := &DeadLetter{
		ID:        id,
		EventID:   event.ID,
		EventType: event.Type,
		AgentID:   event.AgentID,
		Payload:   event.Body,
		Error:     cause.Error(),
		Attempts:  attempts,
		FailedAt:  time.Now().UTC(),
	}
	// the worker context may already be winding down
	putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.deadLetters.Put(putCtx, dl); err != nil {
		log.Error().Err(err).Msg("failed to store dead letter")
	}
}

// Replay re-enqueues a dead-lettered event and removes it from the store.
func (d *Dispatcher) Replay(ctx context.Context, id string) (*Event, error) {
	if d.deadLetters == nil {
		return nil, ErrDeadLetterNotFound
	}
	dl, err := d.deadLetters.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	event, err := ParseEvent(dl.Payload, time.Now())
	if err != nil {
		return nil, err
	}
	if err := d.Enqueue(event); err != nil {
		return nil, err
	}
	if err := d.deadLetters.Delete(ctx, id); err != nil && !errors.Is(err, ErrDeadLetterNotFound) {
		d.log.Warn().Err(err).Str("dead_letter_id", id).Msg("replayed event but could not delete dead letter")
	}
	d.log.Info().Str("dead_letter_id", id).Str("event_id", event.ID).Msg("dead letter replayed")
	return event, nil
}

// DeadLetters lists stored dead letters, newest first.
func (d *Dispatcher) DeadLetters(ctx context.Context, limit int) ([]*DeadLetter, error) {
	if d.deadLetters == nil {
		return []*DeadLetter{}, nil
	}
	return d.deadLetters.List(ctx, limit)
}
