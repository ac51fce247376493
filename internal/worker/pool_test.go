package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_ProcessesAllTasks(t *testing.T) {
	tasks := make(chan int, 100)
	var (
		mu   sync.Mutex
		seen = map[int]bool{}
		n    atomic.Int32
	)
	pool := NewPool(tasks, func(_ context.Context, v int) {
		mu.Lock()
		seen[v] = true
		mu.Unlock()
		n.Add(1)
	}, Config{WorkerCount: 4}, zerolog.Nop())

	pool.Start(context.Background())
	for i := 0; i < 50; i++ {
		tasks <- i
	}

	require.Eventually(t, func() bool { return n.Load() == 50 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, pool.Stop())
	assert.Len(t, seen, 50)
	assert.Equal(t, 4, pool.Size())
}

func TestPool_StopWaitsForInFlight(t *testing.T) {
	tasks := make(chan int, 1)
	started := make(chan struct{})
	var finished atomic.Bool

	pool := NewPool(tasks, func(_ context.Context, _ int) {
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
	}, Config{WorkerCount: 1}, zerolog.Nop())
	pool.Start(context.Background())

	tasks <- 1
	<-started
	assert.True(t, pool.Stop())
	assert.True(t, finished.Load())
	assert.True(t, pool.Stop(), "second stop is a no-op")
}

func TestPool_StopTimeout(t *testing.T) {
	tasks := make(chan int, 1)
	release := make(chan struct{})
	started := make(chan struct{})
	defer close(release)

	pool := NewPool(tasks, func(_ context.Context, _ int) {
		close(started)
		<-release
	}, Config{WorkerCount: 1, ShutdownTimeout: 20 * time.Millisecond}, zerolog.Nop())
	pool.Start(context.Background())

	tasks <- 1
	<-started
	assert.False(t, pool.Stop())
}

func TestWorker_ExitsWhenChannelClosed(t *testing.T) {
	tasks := make(chan string)
	w := NewWorker(1, tasks, func(context.Context, string) {}, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()
	close(tasks)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not exit")
	}
}

func TestPool_StopLeavesQueuedTasks(t *testing.T) {
	tasks := make(chan int, 4)
	release := make(chan struct{})
	started := make(chan struct{})
	var n atomic.Int32

	pool := NewPool(tasks, func(_ context.Context, _ int) {
		if n.Add(1) == 1 {
			close(started)
			<-release
		}
	}, Config{WorkerCount: 1}, zerolog.Nop())
	pool.Start(context.Background())

	for i := 0; i < 4; i++ {
		tasks <- i
	}
	<-started
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	assert.True(t, pool.Stop())
	assert.Equal(t, int32(1), n.Load())
	assert.Len(t, tasks, 3)
}
