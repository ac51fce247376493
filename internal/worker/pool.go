// Package worker runs a fixed set of goroutines draining a task channel.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config contains worker pool configuration.
type Config struct {
	WorkerCount     int
	ShutdownTimeout time.Duration
}

// Pool manages multiple background workers.
type Pool[T any] struct {
	workers     []*Worker[T]
	tasks       <-chan T
	process     ProcessFunc[T]
	workerCount int
	timeout     time.Duration
	log         zerolog.Logger
	wg          sync.WaitGroup
	startOnce   sync.Once
	stopOnce    sync.Once
}

// NewPool creates a new worker pool.
func NewPool[T any](tasks <-chan T, process ProcessFunc[T], cfg Config, log zerolog.Logger) *Pool[T] {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	return &Pool[T]{
		tasks:       tasks,
		process:     process,
		workerCount: cfg.WorkerCount,
		timeout:     cfg.ShutdownTimeout,
		log:         log.With().Str("component", "worker-pool").Logger(),
	}
}

// Start initializes and starts all workers.
func (p *Pool[T]) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.log.Info().Int("worker_count", p.workerCount).Msg("starting worker pool")

		p.workers = make([]*Worker[T], p.workerCount)
		for i := 0; i < p.workerCount; i++ {
			worker := NewWorker(i+1, p.tasks, p.process, p.log)
			p.workers[i] = worker

			p.wg.Add(1)
			go func(w *Worker[T]) {
				defer p.wg.Done()
				w.Start(ctx)
			}(worker)
		}
	})
}

// Stop signals every worker and waits for in-flight tasks, up to the
// shutdown timeout. It reports whether all workers exited in time.
func (p *Pool[T]) Stop() bool {
	graceful := true
	p.stopOnce.Do(func() {
		p.log.Info().Msg("stopping worker pool")

		for _, worker := range p.workers {
			worker.Stop()
		}

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			p.log.Info().Msg("all workers stopped gracefully")
		case <-time.After(p.timeout):
			graceful = false
			p.log.Warn().Msg("worker pool shutdown timed out")
		}
	})
	return graceful
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int {
	return p.workerCount
}
