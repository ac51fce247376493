// Package deadletter stores webhook events that exhausted their retries.
package deadletter

import (
	"context"
	"sync"

	"avatar-bridge/internal/domain/webhook"
)

// MemoryStore keeps at most limit dead letters, evicting the oldest.
type MemoryStore struct {
	mu    sync.RWMutex
	limit int
	order []string // oldest first
	items map[string]*webhook.DeadLetter
}

var _ webhook.DeadLetterStore = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = 1000
	}
	return &MemoryStore{limit: limit, items: make(map[string]*webhook.DeadLetter)}
}

func clone(dl *webhook.DeadLetter) *webhook.DeadLetter {
	c := *dl
	c.Payload = append([]byte(nil), dl.Payload...)
	return &c
}

// Put stores dl.
func (s *MemoryStore) Put(_ context.Context, dl *webhook.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[dl.ID]; !exists {
		s.order = append(s.order, dl.ID)
	}
	s.items[dl.ID] = clone(dl)

	for len(s.order) > s.limit {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// Get returns the dead letter with id.
func (s *MemoryStore) Get(_ context.Context, id string) (*webhook.DeadLetter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	dl, ok := s.items[id]
	if !ok {
		return nil, webhook.ErrDeadLetterNotFound
	}
	return clone(dl), nil
}

// List returns up to limit dead letters, newest first. limit <= 0 means all.
func (s *MemoryStore) List(_ context.Context, limit int) ([]*webhook.DeadLetter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*webhook.DeadLetter, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, clone(s.items[s.order[i]]))
	}
	return out, nil
}

// Delete removes the dead letter with id.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return webhook.ErrDeadLetterNotFound
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored dead letters.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
