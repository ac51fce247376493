package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/session"
	"avatar-bridge/internal/infrastructure/livekit"
	"avatar-bridge/internal/infrastructure/metrics"
)

// RoomLister lists active LiveKit rooms.
type RoomLister interface {
	ListActiveRooms(ctx context.Context) (map[string]livekit.RoomInfo, error)
}

// RoomTagger is implemented by listers that can record the owning avatar
// session in room metadata.
type RoomTagger interface {
	TagAvatarRoom(ctx context.Context, room string, meta livekit.AvatarRoomMetadata) error
}

// Syncer handles session synchronization with LiveKit.
// It polls LiveKit for active rooms and updates session state:
// - created → connected when room has participants
// - tag occupied rooms with their avatar session
// - delete session when room is empty or removed
// - delete stale sessions that never connected (after staleTTL)
type Syncer struct {
	store     session.Store
	sessions  session.Service
	rooms     RoomLister
	staleTTL  time.Duration
	interval  time.Duration
	now       func() time.Time
	log       zerolog.Logger
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSyncer creates a new session syncer.
func NewSyncer(
	store session.Store,
	sessions session.Service,
	rooms RoomLister,
	staleTTL time.Duration,
	interval time.Duration,
	log zerolog.Logger,
) *Syncer {
	return &Syncer{
		store:    store,
		sessions: sessions,
		rooms:    rooms,
		staleTTL: staleTTL,
		interval: interval,
		now:      time.Now,
		log:      log.With().Str("component", "session-syncer").Logger(),
		done:     make(chan struct{}),
	}
}

// Start begins the sync loop in background.
// Safe to call multiple times - only the first call starts the syncer.
func (s *Syncer) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.run(ctx)
		s.log.Info().Dur("interval", s.interval).Msg("session syncer started")
	})
}

// Stop gracefully shuts down the syncer.
// Safe to call multiple times - only the first call stops the syncer.
func (s *Syncer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.log.Info().Msg("session syncer stopped")
	})
}

func (s *Syncer) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug().Msg("context cancelled, shutting down syncer")
			return
		case <-s.done:
			s.log.Debug().Msg("done signal received, shutting down syncer")
			return
		case <-ticker.C:
			s.Sync(ctx)
		}
	}
}

// Sync runs one reconciliation pass against LiveKit.
func (s *Syncer) Sync(ctx context.Context) {
	start := time.Now()
	defer func() {
		metrics.LiveKitSyncDuration.Observe(time.Since(start).Seconds())
	}()

	activeRooms, err := s.rooms.ListActiveRooms(ctx)
	if err != nil {
		metrics.LiveKitSyncErrors.Inc()
		s.log.Warn().Err(err).Msg("failed to list rooms from LiveKit, falling back to TTL cleanup")
		s.cleanupByTTL(ctx)
		return
	}

	sessions, err := s.store.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list sessions from store")
		return
	}

	if s.log.GetLevel() <= zerolog.DebugLevel {
		livekitRooms := make([]string, 0, len(activeRooms))
		for name, info := range activeRooms {
			livekitRooms = append(livekitRooms, fmt.Sprintf("%s(%d)", name, info.NumParticipants))
		}
		ourRooms := make([]string, 0, len(sessions))
		for _, sess := range sessions {
			ourRooms = append(ourRooms, fmt.Sprintf("%s(%s)", sess.Room, sess.State))
		}
		s.log.Debug().
			Strs("livekit_rooms", livekitRooms).
			Strs("our_sessions", ourRooms).
			Msg("sync cycle")
	}

	now := s.now()
	for _, sess := range sessions {
		roomInfo, roomExists := activeRooms[sess.Room]

		switch {
		case !roomExists || roomInfo.NumParticipants == 0:
			if sess.State == session.StateConnected {
				s.end(ctx, sess, session.EndReasonRoomEmpty)
			} else if sess.State == session.StateCreated && now.Sub(sess.CreatedAt) > s.staleTTL {
				s.end(ctx, sess, session.EndReasonStale)
			}

		case sess.State == session.StateCreated:
			if err := s.sessions.MarkConnected(ctx, sess.ID); err != nil {
				s.log.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to mark session connected")
				continue
			}
			s.tag(ctx, sess, roomInfo)

		default:
			s.tag(ctx, sess, roomInfo)
		}
	}
}

func (s *Syncer) tag(ctx context.Context, sess *session.Session, room livekit.RoomInfo) {
	tagger, ok := s.rooms.(RoomTagger)
	if !ok || (room.Avatar != nil && room.Avatar.SessionID == sess.ID) {
		return
	}
	meta := livekit.AvatarRoomMetadata{SessionID: sess.ID, AvatarID: sess.AvatarID}
	if err := tagger.TagAvatarRoom(ctx, sess.Room, meta); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID).Str("room", sess.Room).Msg("failed to tag avatar room")
	}
}

func (s *Syncer) end(ctx context.Context, sess *session.Session, reason string) {
	if err := s.sessions.EndSession(ctx, sess.ID, reason); err != nil {
		s.log.Warn().Err(err).Str("session_id", sess.ID).Str("reason", reason).Msg("session cleanup failed")
	}
}

// cleanupByTTL is a fallback when LiveKit is unreachable.
// Only cleans up stale sessions that never connected.
func (s *Syncer) cleanupByTTL(ctx context.Context) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list sessions for TTL cleanup")
		return
	}

	now := s.now()
	stale := 0
	for _, sess := range sessions {
		if sess.State == session.StateCreated && now.Sub(sess.CreatedAt) > s.staleTTL {
			if err := s.sessions.EndSession(ctx, sess.ID, session.EndReasonStale); err == nil {
				stale++
			}
		}
	}

	if stale > 0 {
		s.log.Info().
			Int("stale_deleted", stale).
			Msg("TTL fallback cleanup completed")
	}
}
