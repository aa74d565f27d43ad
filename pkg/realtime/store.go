package realtime

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Room holds state and a broadcaster for one room.
type Room[T any] struct {
	ID    string
	State T
	hub   *Broadcaster
}

type loop struct {
	cancel context.CancelFunc
	wake   chan struct{}
}

// RoomStore manages rooms, their broadcasters and at most one timing loop per room.
type RoomStore[T any] struct {
	clock clockwork.Clock

	mu    sync.RWMutex
	rooms map[string]*Room[T]
	loops map[string]*loop
}

// NewRoomStore creates an empty room store. A nil clock means the real clock.
func NewRoomStore[T any](clock clockwork.Clock) *RoomStore[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RoomStore[T]{
		clock: clock,
		rooms: make(map[string]*Room[T]),
		loops: make(map[string]*loop),
	}
}

// Create adds a room with the given id and state, and a new Broadcaster.
func (s *RoomStore[T]) Create(id string, state T) *Room[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := &Room[T]{ID: id, State: state, hub: NewBroadcaster()}
	s.rooms[id] = r
	return r
}

// Get returns the room by ID if it exists.
func (s *RoomStore[T]) Get(id string) (*Room[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	return r, ok
}

// IDs returns the ids of all rooms, sorted.
func (s *RoomStore[T]) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Delete removes the room, stops its loop and closes its broadcaster.
func (s *RoomStore[T]) Delete(id string) bool {
	s.mu.Lock()
	r, ok := s.rooms[id]
	if ok {
		delete(s.rooms, id)
	}
	if l, running := s.loops[id]; running {
		delete(s.loops, id)
		l.cancel()
	}
	s.mu.Unlock()
	if ok && r.hub != nil {
		r.hub.Close()
	}
	return ok
}

// Publish notifies subscribers of the room's broadcaster.
func (s *RoomStore[T]) Publish(id string, events ...string) {
	s.mu.RLock()
	r, ok := s.rooms[id]
	s.mu.RUnlock()
	if !ok || r.hub == nil {
		return
	}
	r.hub.Publish(events...)
}

// Broadcaster returns the broadcaster for an existing room.
func (s *RoomStore[T]) Broadcaster(id string) (*Broadcaster, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, false
	}
	if r.hub == nil {
		r.hub = NewBroadcaster()
	}
	return r.hub, true
}

// TickFunc is called by RunLoop to determine the next wake time and events to publish.
// stop true means exit the loop.
type TickFunc[T any] func(state T, now time.Time) (next time.Time, events []string, stop bool)

// RunLoop starts a timing loop for the room. If a loop already exists for id it
// is not started again and RunLoop returns false.
func (s *RoomStore[T]) RunLoop(id string, getState func() T, tick TickFunc[T]) bool {
	s.mu.Lock()
	if _, ok := s.loops[id]; ok {
		s.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &loop{cancel: cancel, wake: make(chan struct{}, 1)}
	s.loops[id] = l
	s.mu.Unlock()

	go func() {
		defer s.release(id, l)

		for {
			next, events, stop := tick(getState(), s.clock.Now())
			if stop {
				return
			}
			// Publish right away so the UI follows the state, not the next timer.
			s.Publish(id, events...)

			wait := next.Sub(s.clock.Now())
			if wait < 0 {
				wait = 0
			}
			timer := s.clock.NewTimer(wait)
			select {
			case <-ctx.Done():
				stopAndDrain(timer)
				return
			case <-timer.Chan():
			case <-l.wake:
				stopAndDrain(timer)
			}
		}
	}()
	return true
}

// StopLoop cancels the room's loop, if any. A new loop can be started for the
// same id as soon as StopLoop returns.
func (s *RoomStore[T]) StopLoop(id string) {
	s.mu.Lock()
	l, ok := s.loops[id]
	if ok {
		delete(s.loops, id)
	}
	s.mu.Unlock()
	if ok {
		l.cancel()
	}
}

// Looping reports whether a loop is registered for id.
func (s *RoomStore[T]) Looping(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.loops[id]
	return ok
}

// Wake unblocks the room's loop so it recomputes immediately.
func (s *RoomStore[T]) Wake(id string) {
	s.mu.RLock()
	l, ok := s.loops[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// release drops the loop entry unless it was already replaced by a newer loop.
func (s *RoomStore[T]) release(id string, l *loop) {
	s.mu.Lock()
	if cur, ok := s.loops[id]; ok && cur == l {
		delete(s.loops, id)
	}
	s.mu.Unlock()
	l.cancel()
}

func stopAndDrain(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
