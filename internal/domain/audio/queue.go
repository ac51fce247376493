package audio

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Pop once the queue is closed and drained.
var ErrQueueClosed = errors.New("audio: queue closed")

// FrameQueue is a bounded FIFO. When full, Push evicts the oldest item so
// producers (audio callbacks, socket readers) never block.
type FrameQueue[T any] struct {
	mu      sync.Mutex
	items   []T
	size    int
	closed  bool
	dropped uint64
	notify  chan struct{}
	pinned  func(T) bool
}

// NewFrameQueue returns a queue holding at most size items.
func NewFrameQueue[T any](size int) *FrameQueue[T] {
	if size <= 0 {
		size = 1
	}
	return &FrameQueue[T]{
		items:  make([]T, 0, size),
		size:   size,
		notify: make(chan struct{}, 1),
	}
}

// Pin marks items that Push and Trim never evict, such as end-of-utterance
// markers. Clear still removes them.
func (q *FrameQueue[T]) Pin(pinned func(T) bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pinned = pinned
}

// Push enqueues item and reports whether an older item was dropped to make
// room. The oldest unpinned item goes first; only a queue full of pinned
// items drops its head. Pushing to a closed queue is a no-op returning
// false.
func (q *FrameQueue[T]) Push(item T) (dropped bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if len(q.items) >= q.size {
		idx := q.oldestEvictableLocked()
		if idx < 0 {
			idx = 0
		}
		q.removeLocked(idx)
		q.dropped++
		dropped = true
	}
	q.items = append(q.items, item)
	q.signalLocked()
	q.mu.Unlock()
	return dropped
}

// TryPop dequeues without blocking.
func (q *FrameQueue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Pop blocks until an item is available, ctx is done or the queue is
// closed and empty.
func (q *FrameQueue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if item, ok := q.popLocked(); ok {
			if len(q.items) > 0 && !q.closed {
				q.signalLocked()
			}
			q.mu.Unlock()
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return zero, ErrQueueClosed
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-q.notify:
		}
	}
}

// Trim drops the oldest unpinned items until at most keep remain and
// returns how many were removed. Pinned items survive even when that
// leaves more than keep.
func (q *FrameQueue[T]) Trim(keep int) int {
	if keep < 0 {
		keep = 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	excess := len(q.items) - keep
	if excess <= 0 {
		return 0
	}
	kept := make([]T, 0, cap(q.items))
	removed := 0
	for _, item := range q.items {
		if removed < excess && (q.pinned == nil || !q.pinned(item)) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept
	q.dropped += uint64(removed)
	return removed
}

// Clear drops everything queued, pinned items included.
func (q *FrameQueue[T]) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = make([]T, 0, q.size)
	q.dropped += uint64(n)
	return n
}

// Len returns the number of queued items.
func (q *FrameQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the total number of items discarded by Push or Trim.
func (q *FrameQueue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Close stops accepting items and wakes blocked consumers. Items already
// queued can still be popped.
func (q *FrameQueue[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.notify)
	q.mu.Unlock()
}

func (q *FrameQueue[T]) popLocked() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

func (q *FrameQueue[T]) oldestEvictableLocked() int {
	if q.pinned == nil {
		return 0
	}
	for i, item := range q.items {
		if !q.pinned(item) {
			return i
		}
	}
	return -1
}

func (q *FrameQueue[T]) removeLocked(idx int) {
	var zero T
	if idx == 0 {
		q.items[0] = zero
		q.items = q.items[1:]
		return
	}
	copy(q.items[idx:], q.items[idx+1:])
	q.items[len(q.items)-1] = zero
	q.items = q.items[:len(q.items)-1]
}

// signalLocked wakes one waiting Pop. Callers hold q.mu, which also
// guards the close of notify.
func (q *FrameQueue[T]) signalLocked() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
