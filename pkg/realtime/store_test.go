package realtime

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestNewRoomStore(t *testing.T) {
	s := NewRoomStore[string](nil)
	if s == nil {
		t.Fatal("NewRoomStore returned nil")
	}
	if s.clock == nil {
		t.Error("nil clock should default to the real clock")
	}
}

func TestRoomStore_Create_Get(t *testing.T) {
	s := NewRoomStore[string](nil)
	s.Create("room1", "state1")
	room, ok := s.Get("room1")
	if !ok {
		t.Fatal("Get returned false for existing room")
	}
	if room.ID != "room1" {
		t.Errorf("room ID %q, want room1", room.ID)
	}
	if room.State != "state1" {
		t.Errorf("room State %q, want state1", room.State)
	}

	_, ok = s.Get("nonexistent")
	if ok {
		t.Error("Get should return false for missing ID")
	}
}

func TestRoomStore_IDs(t *testing.T) {
	s := NewRoomStore[int](nil)
	s.Create("b", 2)
	s.Create("a", 1)
	ids := s.IDs()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("IDs %v, want [a b]", ids)
	}
}

func TestRoomStore_Publish(t *testing.T) {
	s := NewRoomStore[string](nil)
	s.Create("r1", "x")
	hub, ok := s.Broadcaster("r1")
	if !ok {
		t.Fatal("Broadcaster returned false for existing room")
	}
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	s.Publish("r1", "event1")
	if got := <-ch; got != "event1" {
		t.Errorf("got %q, want event1", got)
	}

	// Unknown rooms are ignored.
	s.Publish("missing", "event2")
	if _, ok := s.Broadcaster("missing"); ok {
		t.Error("Broadcaster should return false for a missing room")
	}
}

func TestRoomStore_Delete(t *testing.T) {
	s := NewRoomStore[string](nil)
	s.Create("r1", "x")
	hub, _ := s.Broadcaster("r1")
	ch := hub.Subscribe()

	if !s.Delete("r1") {
		t.Fatal("Delete returned false for existing room")
	}
	if _, open := <-ch; open {
		t.Error("subscriber channel should be closed after Delete")
	}
	if _, ok := s.Get("r1"); ok {
		t.Error("room should be gone after Delete")
	}
	if s.Delete("r1") {
		t.Error("second Delete should return false")
	}
}

func TestRoomStore_Wake_NoPanicWhenNoLoop(t *testing.T) {
	s := NewRoomStore[string](nil)
	s.Wake("nonexistent")
	s.StopLoop("nonexistent")
}

func TestRoomStore_RunLoop_TicksUntilStop(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := NewRoomStore[int](fc)
	s.Create("r", 7)
	hub, _ := s.Broadcaster("r")
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	var ticks atomic.Int32
	tick := func(state int, now time.Time) (time.Time, []string, bool) {
		if state != 7 {
			t.Errorf("state %d, want 7", state)
		}
		if ticks.Add(1) >= 3 {
			return time.Time{}, nil, true
		}
		return now.Add(time.Second), []string{"tick"}, false
	}
	getState := func() int {
		room, _ := s.Get("r")
		return room.State
	}
	if !s.RunLoop("r", getState, tick) {
		t.Fatal("RunLoop should start a new loop")
	}
	if s.RunLoop("r", getState, tick) {
		t.Error("second RunLoop for the same room should not start")
	}

	expectEvent(t, ch, "tick")
	advanceWhenWaiting(t, fc, time.Second)
	expectEvent(t, ch, "tick")
	advanceWhenWaiting(t, fc, time.Second)

	waitUntil(t, func() bool { return !s.Looping("r") })
	if got := ticks.Load(); got != 3 {
		t.Errorf("ticks %d, want 3", got)
	}
}

func TestRoomStore_StopLoop_AllowsRestart(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := NewRoomStore[int](fc)
	s.Create("r", 1)

	forever := func(_ int, now time.Time) (time.Time, []string, bool) {
		return now.Add(time.Hour), nil, false
	}
	getState := func() int { return 1 }

	if !s.RunLoop("r", getState, forever) {
		t.Fatal("RunLoop should start")
	}
	s.StopLoop("r")
	if s.Looping("r") {
		t.Error("Looping should be false right after StopLoop")
	}
	if !s.RunLoop("r", getState, forever) {
		t.Error("RunLoop should start again after StopLoop")
	}
	s.StopLoop("r")
}

func TestRoomStore_Wake_RerunsTick(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := NewRoomStore[int](fc)
	s.Create("r", 1)

	var ticks atomic.Int32
	tick := func(_ int, now time.Time) (time.Time, []string, bool) {
		ticks.Add(1)
		return now.Add(time.Hour), nil, false
	}
	s.RunLoop("r", func() int { return 1 }, tick)
	defer s.StopLoop("r")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("loop never armed its timer: %v", err)
	}
	s.Wake("r")
	waitUntil(t, func() bool { return ticks.Load() >= 2 })
}

func expectEvent(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("event %q, want %q", got, want)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event %q", want)
	}
}

func advanceWhenWaiting(t *testing.T, fc *clockwork.FakeClock, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("loop never armed its timer: %v", err)
	}
	fc.Advance(d)
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}
