package game

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func testSettings(count int) Settings {
	s := DefaultSettings()
	s.PointCount = count
	s.HideDelay = 3 * time.Second
	s.AutoClickDelay = time.Second
	s.TickInterval = 100 * time.Millisecond
	return s
}

func newTestEngine(t *testing.T, count int) (*Engine, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	return NewEngine(testSettings(count), fc), fc
}

func clickNumber(t *testing.T, e *Engine, n int) ClickResult {
	t.Helper()
	p, ok := e.Snapshot().PointByNumber(n)
	if !ok {
		t.Fatalf("no point numbered %d", n)
	}
	return e.Click(p.ID)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewEngine(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	snap := e.Snapshot()
	if snap.State != StateReady {
		t.Errorf("State %q, want %q", snap.State, StateReady)
	}
	if snap.NextExpected != 1 {
		t.Errorf("NextExpected %d, want 1", snap.NextExpected)
	}
	if len(snap.Points) != 0 {
		t.Errorf("len(Points) %d, want 0 before the first round", len(snap.Points))
	}
	if snap.PendingCount != 3 {
		t.Errorf("PendingCount %d, want 3", snap.PendingCount)
	}
	if got := e.Click("anything"); got != ClickIgnored {
		t.Errorf("Click in Ready %v, want ignored", got)
	}
}

func TestEngine_Restart(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	gen := e.Restart()
	if gen != 1 {
		t.Errorf("generation %d, want 1", gen)
	}
	snap := e.Snapshot()
	if snap.State != StatePlaying {
		t.Errorf("State %q, want %q", snap.State, StatePlaying)
	}
	if snap.RoundID == "" {
		t.Error("RoundID is empty")
	}
	if len(snap.Points) != 3 {
		t.Fatalf("len(Points) %d, want 3", len(snap.Points))
	}
	for i, p := range snap.Points {
		if p.Number != i+1 || p.Clicked || !p.Visible {
			t.Errorf("point %+v, want number %d unclicked and visible", p, i+1)
		}
	}
	if snap.NextExpected != 1 || snap.Elapsed != 0 {
		t.Errorf("NextExpected %d Elapsed %v, want 1 and 0", snap.NextExpected, snap.Elapsed)
	}
	if !snap.HasNext {
		t.Error("HasNext should be true at round start")
	}
}

func TestEngine_ClickInOrder_AllCleared(t *testing.T) {
	e, fc := newTestEngine(t, 3)
	e.Restart()

	for n := 1; n <= 3; n++ {
		if got := clickNumber(t, e, n); got != ClickCorrect {
			t.Fatalf("click %d: %v, want correct", n, got)
		}
		if e.State() != StatePlaying {
			t.Fatalf("State after click %d %q, want playing", n, e.State())
		}
	}
	snap := e.Snapshot()
	if snap.NextExpected != 4 {
		t.Errorf("NextExpected %d, want 4", snap.NextExpected)
	}
	if snap.HasNext {
		t.Error("HasNext should be false once every point is clicked")
	}
	if pendingHides(e) != 3 {
		t.Errorf("pending hides %d, want 3", pendingHides(e))
	}

	// Clicked but still visible: not cleared yet.
	fc.Advance(3*time.Second - time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	if e.State() != StatePlaying {
		t.Fatalf("State before hide-delay %q, want playing", e.State())
	}
	for _, p := range e.Snapshot().Points {
		if !p.Visible {
			t.Errorf("point %d hidden before the hide-delay", p.Number)
		}
	}

	fc.Advance(time.Millisecond)
	waitFor(t, "all cleared", func() bool { return e.State() == StateAllCleared })
	for _, p := range e.Snapshot().Points {
		if !p.Clicked || p.Visible {
			t.Errorf("point %d clicked=%v visible=%v, want clicked and hidden", p.Number, p.Clicked, p.Visible)
		}
	}
	if pendingHides(e) != 0 {
		t.Errorf("pending hides %d, want 0", pendingHides(e))
	}
}

func TestEngine_LastHideCountsTowardsClear(t *testing.T) {
	e, fc := newTestEngine(t, 2)
	e.Restart()

	clickNumber(t, e, 1)
	fc.Advance(time.Second)
	clickNumber(t, e, 2)

	fc.Advance(2 * time.Second)
	waitFor(t, "first point hidden", func() bool {
		p, _ := e.Snapshot().PointByNumber(1)
		return !p.Visible
	})
	if e.State() != StatePlaying {
		t.Fatalf("State %q, want playing while point 2 is still visible", e.State())
	}

	fc.Advance(time.Second)
	waitFor(t, "all cleared", func() bool { return e.State() == StateAllCleared })
}

func TestEngine_ClickOutOfOrder_GameOver(t *testing.T) {
	e, fc := newTestEngine(t, 3)
	e.Restart()

	if got := clickNumber(t, e, 1); got != ClickCorrect {
		t.Fatalf("click 1: %v, want correct", got)
	}
	three, _ := e.Snapshot().PointByNumber(3)
	if got := e.Click(three.ID); got != ClickWrong {
		t.Fatalf("click 3: %v, want wrong", got)
	}

	snap := e.Snapshot()
	if snap.State != StateGameOver {
		t.Fatalf("State %q, want %q", snap.State, StateGameOver)
	}
	if snap.MissedID != three.ID {
		t.Errorf("MissedID %q, want %q", snap.MissedID, three.ID)
	}
	two, _ := snap.PointByNumber(2)
	if two.Clicked {
		t.Error("point 2 should never be clicked")
	}
	if p, _ := pointByID(snap, three.ID); p.Clicked {
		t.Error("the wrong point should not be marked clicked")
	}
	if pendingHides(e) != 0 {
		t.Errorf("pending hides %d, want 0 after game over", pendingHides(e))
	}

	// The hide for point 1 was cancelled: nothing changes after the delay.
	fc.Advance(10 * time.Second)
	time.Sleep(20 * time.Millisecond)
	one, _ := e.Snapshot().PointByNumber(1)
	if !one.Visible {
		t.Error("point 1 was hidden after game over")
	}
	if e.State() != StateGameOver {
		t.Errorf("State %q, want game over to stick", e.State())
	}
}

func TestEngine_IgnoredClicks(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	e.Restart()

	if got := clickNumber(t, e, 1); got != ClickCorrect {
		t.Fatalf("click 1: %v, want correct", got)
	}
	before := e.Snapshot()

	if got := clickNumber(t, e, 1); got != ClickIgnored {
		t.Errorf("second click on 1: %v, want ignored", got)
	}
	if got := e.Click("no-such-point"); got != ClickIgnored {
		t.Errorf("unknown point: %v, want ignored", got)
	}
	after := e.Snapshot()
	if after.NextExpected != before.NextExpected || after.State != before.State {
		t.Errorf("ignored clicks changed state: %d/%q -> %d/%q", before.NextExpected, before.State, after.NextExpected, after.State)
	}

	clickNumber(t, e, 3) // wrong, game over
	if got := clickNumber(t, e, 2); got != ClickIgnored {
		t.Errorf("click after game over: %v, want ignored", got)
	}
	two, _ := e.Snapshot().PointByNumber(2)
	if two.Clicked {
		t.Error("click after game over must not mark the point")
	}
}

func TestEngine_NextExpectedNeverDecreases(t *testing.T) {
	e, _ := newTestEngine(t, 10)
	e.Restart()

	last := e.Snapshot().NextExpected
	for n := 1; n <= 10; n++ {
		clickNumber(t, e, n)
		clickNumber(t, e, n) // repeat is ignored
		got := e.Snapshot().NextExpected
		if got < last {
			t.Fatalf("NextExpected went from %d to %d", last, got)
		}
		last = got
	}
	if last != 11 {
		t.Errorf("NextExpected %d, want 11", last)
	}
}

func TestEngine_RestartFromGameOver(t *testing.T) {
	e, fc := newTestEngine(t, 3)
	e.Restart()
	fc.Advance(2 * time.Second)
	e.Tick(e.Generation(), fc.Now())
	clickNumber(t, e, 1)
	clickNumber(t, e, 3)
	old := e.Snapshot()
	if old.State != StateGameOver || old.Elapsed == 0 {
		t.Fatalf("State %q Elapsed %v, want game over with time on the clock", old.State, old.Elapsed)
	}

	gen := e.Restart()
	snap := e.Snapshot()
	if gen != old.Generation+1 {
		t.Errorf("generation %d, want %d", gen, old.Generation+1)
	}
	if snap.State != StatePlaying || snap.NextExpected != 1 || snap.Elapsed != 0 || snap.MissedID != "" {
		t.Errorf("State %q NextExpected %d Elapsed %v MissedID %q, want a fresh round", snap.State, snap.NextExpected, snap.Elapsed, snap.MissedID)
	}
	if snap.RoundID == old.RoundID {
		t.Error("RoundID should change on restart")
	}
	for _, p := range snap.Points {
		if _, reused := pointByID(old, p.ID); reused {
			t.Errorf("point %d reused from the previous round", p.Number)
		}
		if p.Clicked || !p.Visible {
			t.Errorf("point %d carries flags from the previous round", p.Number)
		}
	}
}

func TestEngine_RestartCancelsPendingHides(t *testing.T) {
	e, fc := newTestEngine(t, 2)
	e.Restart()
	clickNumber(t, e, 1)

	e.Restart()
	if pendingHides(e) != 0 {
		t.Errorf("pending hides %d, want 0 after restart", pendingHides(e))
	}
	fc.Advance(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	for _, p := range e.Snapshot().Points {
		if !p.Visible {
			t.Errorf("point %d hidden by a timer from the previous round", p.Number)
		}
	}
}

func TestEngine_StaleHideCallbackIsNoop(t *testing.T) {
	e, _ := newTestEngine(t, 2)
	gen := e.Restart()
	one, _ := e.Snapshot().PointByNumber(1)
	e.Click(one.ID)
	e.Restart()

	// A callback that slipped past cancellation still carries the old generation.
	e.hide(gen, one.ID)
	if e.State() != StatePlaying {
		t.Errorf("State %q, want playing", e.State())
	}
	for _, p := range e.Snapshot().Points {
		if !p.Visible {
			t.Errorf("point %d hidden by a stale callback", p.Number)
		}
	}
}

func TestEngine_SetPointCountAppliesOnNextRestart(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	e.Restart()

	if got := e.SetPointCount(5); got != 5 {
		t.Errorf("SetPointCount returned %d, want 5", got)
	}
	snap := e.Snapshot()
	if len(snap.Points) != 3 || snap.RequestedCount != 3 || snap.PendingCount != 5 {
		t.Errorf("points %d requested %d pending %d, want 3/3/5", len(snap.Points), snap.RequestedCount, snap.PendingCount)
	}

	e.Restart()
	if got := len(e.Snapshot().Points); got != 5 {
		t.Errorf("len(Points) %d, want 5 after restart", got)
	}

	if got := e.SetPointCount(0); got != 1 {
		t.Errorf("SetPointCount(0) %d, want 1", got)
	}
	if got := e.SetPointCount(1 << 30); got != e.Settings().MaxPointCount {
		t.Errorf("SetPointCount(huge) %d, want %d", got, e.Settings().MaxPointCount)
	}
}

func TestEngine_OnChange(t *testing.T) {
	e, fc := newTestEngine(t, 1)
	var mu sync.Mutex
	var events []string
	e.OnChange(func(evs ...string) {
		mu.Lock()
		events = append(events, evs...)
		mu.Unlock()
	})
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(events)
	}

	e.Restart()
	if count() != 2 {
		t.Errorf("events after restart %d, want 2", count())
	}
	e.Click("unknown")
	if count() != 2 {
		t.Errorf("ignored click should not notify, events %d", count())
	}
	clickNumber(t, e, 1)
	if count() != 4 {
		t.Errorf("events after click %d, want 4", count())
	}
	fc.Advance(3 * time.Second)
	waitFor(t, "hide notification", func() bool { return count() == 6 })
}

func TestEngine_ConcurrentClicksJudgedOnce(t *testing.T) {
	e, _ := newTestEngine(t, 3)
	e.Restart()
	one, _ := e.Snapshot().PointByNumber(1)

	var wg sync.WaitGroup
	results := make(chan ClickResult, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- e.Click(one.ID)
		}()
	}
	wg.Wait()
	close(results)

	correct := 0
	for r := range results {
		if r == ClickCorrect {
			correct++
		}
	}
	if correct != 1 {
		t.Errorf("%d clicks judged correct, want exactly 1", correct)
	}
	if got := e.Snapshot().NextExpected; got != 2 {
		t.Errorf("NextExpected %d, want 2", got)
	}
}

func TestEngine_ConcurrentClicksOnDifferentPoints(t *testing.T) {
	for i := 0; i < 20; i++ {
		e, _ := newTestEngine(t, 2)
		e.Restart()
		one, _ := e.Snapshot().PointByNumber(1)
		two, _ := e.Snapshot().PointByNumber(2)

		var wg sync.WaitGroup
		var r1, r2 ClickResult
		wg.Add(2)
		go func() { defer wg.Done(); r1 = e.Click(one.ID) }()
		go func() { defer wg.Done(); r2 = e.Click(two.ID) }()
		wg.Wait()

		// Either 1 then 2 (both correct) or 2 first (wrong, then 1 ignored).
		switch {
		case r1 == ClickCorrect && r2 == ClickCorrect:
			if e.State() != StatePlaying {
				t.Errorf("State %q, want playing", e.State())
			}
		case r2 == ClickWrong && r1 == ClickIgnored:
			if e.State() != StateGameOver {
				t.Errorf("State %q, want game over", e.State())
			}
		default:
			t.Fatalf("unexpected outcome r1=%v r2=%v", r1, r2)
		}
	}
}

func TestEngine_Close(t *testing.T) {
	e, fc := newTestEngine(t, 2)
	gen := e.Restart()
	clickNumber(t, e, 1)
	e.Close()

	if pendingHides(e) != 0 {
		t.Errorf("pending hides %d, want 0", pendingHides(e))
	}
	if _, _, stop := e.Tick(gen, fc.Now()); !stop {
		t.Error("Tick should stop after Close")
	}
	if got := clickNumber(t, e, 2); got != ClickIgnored {
		t.Errorf("click after Close %v, want ignored", got)
	}
}

func TestClickResult_String(t *testing.T) {
	cases := map[ClickResult]string{
		ClickIgnored: "ignored",
		ClickCorrect: "correct",
		ClickWrong:   "wrong",
	}
	for r, want := range cases {
		if got := r.String(); got != want {
			t.Errorf("%d.String() %q, want %q", r, got, want)
		}
	}
}

func pendingHides(e *Engine) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.hides)
}

func pointByID(snap Snapshot, id string) (Point, bool) {
	for _, p := range snap.Points {
		if p.ID == id {
			return p, true
		}
	}
	return Point{}, false
}
