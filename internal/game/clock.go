package game

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Tick is the periodic step for round gen: it samples the elapsed clock and
// lets the auto-player act. It returns when it wants to run next and the
// events to publish. stop is true once the round left Playing or was replaced,
// so a loop started for an old round ends without touching the new one.
func (e *Engine) Tick(gen uint64, now time.Time) (next time.Time, events []string, stop bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation || e.state != StatePlaying {
		return time.Time{}, nil, true
	}

	e.watch.Sample(now)
	events = []string{EventStatus}
	board := e.countingDownLocked()

	switch e.autoStepLocked(now) {
	case autoClicked:
		board = true
	case autoStopped:
		log.Debug().Str("round", e.roundID).Int("expected", e.next).Msg("auto-play found no point to click, disabled")
	}
	if board {
		events = append(events, EventBoard)
	}

	next, _ = e.watch.NextWake(now)
	return next, events, false
}

// countingDownLocked reports whether any clicked point is still visible, i.e.
// a hide countdown is on screen.
func (e *Engine) countingDownLocked() bool {
	for _, p := range e.points {
		if p.Clicked && p.Visible {
			return true
		}
	}
	return false
}
