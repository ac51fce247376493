package worker

import (
	"context"

	"github.com/rs/zerolog"
)

// ProcessFunc handles one task.
type ProcessFunc[T any] func(ctx context.Context, task T)

// Worker processes tasks from a channel until stopped.
type Worker[T any] struct {
	id       int
	tasks    <-chan T
	process  ProcessFunc[T]
	log      zerolog.Logger
	stopChan chan struct{}
}

// NewWorker creates a new background worker.
func NewWorker[T any](id int, tasks <-chan T, process ProcessFunc[T], log zerolog.Logger) *Worker[T] {
	return &Worker[T]{
		id:       id,
		tasks:    tasks,
		process:  process,
		log:      log.With().Int("worker_id", id).Str("component", "worker").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start blocks processing tasks until ctx is done, Stop is called or the
// task channel is closed.
func (w *Worker[T]) Start(ctx context.Context) {
	w.log.Debug().Msg("worker started")

	for {
		// a pending stop wins over queued tasks
		select {
		case <-w.stopChan:
			w.log.Debug().Msg("worker stopped")
			return
		default:
		}

		select {
		case <-ctx.Done():
			w.log.Debug().Msg("worker stopped by context")
			return
		case <-w.stopChan:
			w.log.Debug().Msg("worker stopped")
			return
		case task, ok := <-w.tasks:
			if !ok {
				w.log.Debug().Msg("task channel closed")
				return
			}
			w.process(ctx, task)
		}
	}
}

// Stop signals the worker to exit after its current task.
func (w *Worker[T]) Stop() {
	close(w.stopChan)
}
