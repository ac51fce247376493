package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/session"
)

var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = session.ErrNotFound
	// ErrSessionAlreadyExists is returned when trying to create a session that already exists.
	ErrSessionAlreadyExists = session.ErrAlreadyExists
	// ErrRoomAlreadyExists is returned when trying to create a session with a room that already exists.
	ErrRoomAlreadyExists = session.ErrRoomAlreadyExists
)

// MemoryStore is a mutex-based in-memory session store.
// Thread-safe via sync.RWMutex.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*session.Session
	roomIndex map[string]string // room -> session ID
	log       zerolog.Logger
}

var _ session.Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore(log zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*session.Session),
		roomIndex: make(map[string]string),
		log:       log.With().Str("component", "session-store").Logger(),
	}
}

func clone(sess *session.Session) *session.Session {
	c := *sess
	if sess.ClientSecret != nil {
		secret := *sess.ClientSecret
		c.ClientSecret = &secret
	}
	return &c
}

// Create stores a new session.
func (s *MemoryStore) Create(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.ID]; exists {
		return ErrSessionAlreadyExists
	}
	if _, exists := s.roomIndex[sess.Room]; exists {
		return ErrRoomAlreadyExists
	}

	s.sessions[sess.ID] = clone(sess)
	s.roomIndex[sess.Room] = sess.ID
	s.log.Debug().Str("session_id", sess.ID).Int("total", len(s.sessions)).Msg("session stored")
	return nil
}

// Get retrieves a session by ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return clone(sess), nil
}

// GetByUser retrieves all sessions for a user, oldest first.
func (s *MemoryStore) GetByUser(ctx context.Context, userID string) ([]*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*session.Session{}
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			result = append(result, clone(sess))
		}
	}
	sortByCreated(result)
	return result, nil
}

// GetByRoom retrieves a session by LiveKit room name.
func (s *MemoryStore) GetByRoom(ctx context.Context, room string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessionID, ok := s.roomIndex[room]
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return clone(sess), nil
}

// Delete removes a session by ID.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}

	delete(s.roomIndex, sess.Room)
	delete(s.sessions, id)
	return nil
}

// List returns all sessions, oldest first.
func (s *MemoryStore) List(ctx context.Context) ([]*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		result = append(result, clone(sess))
	}
	sortByCreated(result)
	return result, nil
}

// UpdateState updates the state of a session.
func (s *MemoryStore) UpdateState(ctx context.Context, id string, state session.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if state == session.StateConnected && sess.State != session.StateConnected {
		sess.ConnectedAt = time.Now()
	}
	sess.State = state
	return nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func sortByCreated(sessions []*session.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
}
