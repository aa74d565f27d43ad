package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"numrush/pkg/realtime"
)

// Engine owns one player's rounds. Every transition (click, delayed hide,
// clock tick, auto-play tick) takes the same lock, so they apply one at a time
// in arrival order.
type Engine struct {
	clock    clockwork.Clock
	settings Settings

	mu         sync.Mutex
	rng        *rand.Rand
	requested  int
	listener   func(events ...string)
	generation uint64
	roundID    string
	roundCount int
	points     []Point
	index      map[string]int
	next       int
	state      State
	missedID   string
	watch      realtime.Stopwatch
	auto       AutoPlayer
	hides      map[string]clockwork.Timer
}

// NewEngine creates an engine in the Ready state. A nil clock means the real clock.
func NewEngine(settings Settings, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	settings = settings.Normalize()
	return &Engine{
		clock:     clock,
		settings:  settings,
		rng:       rand.New(rand.NewSource(clock.Now().UnixNano())),
		requested: settings.PointCount,
		state:     StateReady,
		next:      1,
		watch:     realtime.Stopwatch{Interval: settings.TickInterval},
		auto:      AutoPlayer{Interval: settings.AutoClickDelay},
		hides:     make(map[string]clockwork.Timer),
		index:     make(map[string]int),
	}
}

// OnChange registers fn to be called, outside the engine lock, after clicks,
// hides and auto-play toggles change the state.
func (e *Engine) OnChange(fn func(events ...string)) {
	e.mu.Lock()
	e.listener = fn
	e.mu.Unlock()
}

// Settings returns the settings the engine was created with.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Generation returns the current round generation; it changes on every Restart.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

// State returns the current round state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SetPointCount changes the point count used by the next Restart. The value is
// clamped to [1, MaxPointCount]; the current round is not touched.
func (e *Engine) SetPointCount(n int) int {
	e.mu.Lock()
	e.requested = clampCount(n, 1, e.settings.MaxPointCount)
	n = e.requested
	e.mu.Unlock()
	e.notify(EventStatus)
	return n
}

// Restart discards the current round and starts a fresh one. It is allowed
// from every state and returns the new round generation.
func (e *Engine) Restart() uint64 {
	e.mu.Lock()
	now := e.clock.Now()
	e.generation++
	e.cancelHidesLocked()
	e.roundID = uuid.NewString()
	e.roundCount = e.requested
	e.points = GeneratePoints(e.rng, e.requested, e.settings.layout())
	e.index = make(map[string]int, len(e.points))
	for i, p := range e.points {
		e.index[p.ID] = i
	}
	e.next = 1
	e.missedID = ""
	e.state = StatePlaying
	e.watch.Start(now)
	e.auto.Reset()
	gen, roundID, requested, placed := e.generation, e.roundID, e.roundCount, len(e.points)
	e.mu.Unlock()

	log.Debug().
		Str("round", roundID).
		Uint64("generation", gen).
		Int("requested", requested).
		Int("placed", placed).
		Msg("round started")
	e.notify(EventBoard, EventStatus)
	return gen
}

// Click applies a click on pointID. Clicks outside Playing, on unknown points
// or on points already clicked are ignored.
func (e *Engine) Click(pointID string) ClickResult {
	e.mu.Lock()
	result := e.clickLocked(pointID, e.clock.Now())
	e.mu.Unlock()
	if result != ClickIgnored {
		e.notify(EventBoard, EventStatus)
	}
	return result
}

func (e *Engine) clickLocked(pointID string, now time.Time) ClickResult {
	if e.state != StatePlaying {
		return ClickIgnored
	}
	i, ok := e.index[pointID]
	if !ok {
		return ClickIgnored
	}
	p := &e.points[i]
	if p.Clicked {
		return ClickIgnored
	}
	if p.Number != e.next {
		e.missedID = pointID
		e.finishLocked(StateGameOver, now)
		log.Debug().
			Str("round", e.roundID).
			Int("number", p.Number).
			Int("expected", e.next).
			Msg("wrong click, game over")
		return ClickWrong
	}
	p.Clicked = true
	p.ClickedAt = now
	e.next++
	e.scheduleHideLocked(pointID)
	return ClickCorrect
}

// scheduleHideLocked arms the hide timer for a correctly clicked point. The
// callback carries the generation so a timer that outlives its round is a no-op.
func (e *Engine) scheduleHideLocked(pointID string) {
	gen := e.generation
	e.hides[pointID] = e.clock.AfterFunc(e.settings.HideDelay, func() {
		e.hide(gen, pointID)
	})
}

func (e *Engine) hide(gen uint64, pointID string) {
	e.mu.Lock()
	if gen != e.generation || e.state != StatePlaying {
		e.mu.Unlock()
		return
	}
	delete(e.hides, pointID)
	i, ok := e.index[pointID]
	if !ok || !e.points[i].Clicked {
		e.mu.Unlock()
		return
	}
	e.points[i].Visible = false
	if e.clearedLocked() {
		e.finishLocked(StateAllCleared, e.clock.Now())
		log.Debug().
			Str("round", e.roundID).
			Dur("elapsed", e.watch.Elapsed).
			Msg("all cleared")
	}
	e.mu.Unlock()
	e.notify(EventBoard, EventStatus)
}

// clearedLocked reports whether every point is clicked and hidden.
func (e *Engine) clearedLocked() bool {
	for _, p := range e.points {
		if !p.Clicked || p.Visible {
			return false
		}
	}
	return true
}

// finishLocked moves the round to a terminal state. Pending hides are cancelled
// before the lock is released, so none of them can land after the transition.
func (e *Engine) finishLocked(state State, now time.Time) {
	e.state = state
	e.cancelHidesLocked()
	e.watch.Stop(now)
	e.auto.Disable()
}

func (e *Engine) cancelHidesLocked() {
	for id, timer := range e.hides {
		timer.Stop()
		delete(e.hides, id)
	}
}

// Close cancels all pending work; the engine ignores its timers afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	e.generation++
	e.cancelHidesLocked()
	if !e.state.Terminal() {
		e.state = StateReady
	}
	e.watch.Stop(e.clock.Now())
	e.auto.Disable()
	e.mu.Unlock()
}

func (e *Engine) notify(events ...string) {
	e.mu.Lock()
	fn := e.listener
	e.mu.Unlock()
	if fn != nil {
		fn(events...)
	}
}
