package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"numrush/pkg/realtime"
)

// Session is one player's browser session and its engine.
type Session struct {
	ID        string
	CreatedAt time.Time
	Engine    *Engine
	lastSeen  atomic.Int64

	// loopMu orders restarts with the round loop installs that follow them.
	loopMu sync.Mutex
}

// LastSeen returns when the session was last looked up.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load()).UTC()
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

// Store holds sessions and delegates to realtime.RoomStore for broadcast and round loops.
type Store struct {
	r        *realtime.RoomStore[*Session]
	clock    clockwork.Clock
	settings Settings
}

// NewStore creates an in-memory session store. A nil clock means the real clock.
func NewStore(settings Settings, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		r:        realtime.NewRoomStore[*Session](clock),
		clock:    clock,
		settings: settings.Normalize(),
	}
}

// Settings returns the settings new sessions are created with.
func (s *Store) Settings() Settings {
	return s.settings
}

// CreateSession creates a session in the Ready state. pointCount <= 0 keeps the default.
func (s *Store) CreateSession(pointCount int) *Session {
	now := s.clock.Now().UTC()
	engine := NewEngine(s.settings, s.clock)
	if pointCount > 0 {
		engine.SetPointCount(pointCount)
	}
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Engine:    engine,
	}
	sess.touch(now)
	s.r.Create(sess.ID, sess)
	engine.OnChange(func(events ...string) {
		s.r.Publish(sess.ID, events...)
	})
	log.Info().Str("session", sess.ID).Msg("session created")
	return sess
}

// GetSession returns a session by ID if it exists and marks it as seen.
func (s *Store) GetSession(id string) (*Session, bool) {
	room, ok := s.r.Get(id)
	if !ok {
		return nil, false
	}
	room.State.touch(s.clock.Now())
	return room.State, true
}

// Broadcaster returns the stream broadcaster for a session.
func (s *Store) Broadcaster(id string) (*realtime.Broadcaster, bool) {
	return s.r.Broadcaster(id)
}

// Restart starts a new round for the session and its round loop.
func (s *Store) Restart(id string) (uint64, bool) {
	sess, ok := s.GetSession(id)
	if !ok {
		return 0, false
	}
	sess.loopMu.Lock()
	defer sess.loopMu.Unlock()
	gen := sess.Engine.Restart()
	s.installRoundLoop(id, gen)
	return gen, true
}

// EnsureRoundLoop replaces the session's round loop with one bound to
// generation gen. The loop drives the round clock and auto-play and ends when
// the round leaves Playing or a newer round replaces it. A stale gen leaves
// the current loop alone.
func (s *Store) EnsureRoundLoop(id string, gen uint64) {
	room, ok := s.r.Get(id)
	if !ok {
		return
	}
	sess := room.State
	sess.loopMu.Lock()
	defer sess.loopMu.Unlock()
	if sess.Engine.Generation() != gen {
		log.Debug().Str("session", id).Uint64("generation", gen).Msg("stale round loop skipped")
		return
	}
	s.installRoundLoop(id, gen)
}

func (s *Store) installRoundLoop(id string, gen uint64) {
	getState := func() *Session {
		room, ok := s.r.Get(id)
		if !ok {
			return nil
		}
		return room.State
	}
	tick := func(state *Session, now time.Time) (time.Time, []string, bool) {
		if state == nil {
			return time.Time{}, nil, true
		}
		return state.Engine.Tick(gen, now)
	}
	s.r.StopLoop(id)
	s.r.RunLoop(id, getState, tick)
}

// Looping reports whether a round loop is running for the session.
func (s *Store) Looping(id string) bool {
	return s.r.Looping(id)
}

// WakeRoundLoop unblocks the round loop so it recomputes immediately.
func (s *Store) WakeRoundLoop(id string) {
	s.r.Wake(id)
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	return len(s.r.IDs())
}

// Sweep removes sessions not seen for longer than ttl that have no live
// stream subscribers. It returns the number of sessions removed.
func (s *Store) Sweep(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	now := s.clock.Now()
	removed := 0
	for _, id := range s.r.IDs() {
		room, ok := s.r.Get(id)
		if !ok {
			continue
		}
		if now.Sub(room.State.LastSeen()) <= ttl {
			continue
		}
		if hub, ok := s.r.Broadcaster(id); ok && hub.Subscribers() > 0 {
			continue
		}
		room.State.Engine.Close()
		if s.r.Delete(id) {
			removed++
			log.Info().Str("session", id).Msg("session expired")
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 || ttl <= 0 {
		return
	}
	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := s.Sweep(ttl); n > 0 {
				log.Debug().Int("removed", n).Int("remaining", s.Len()).Msg("session sweep")
			}
		}
	}
}
