package game

import "time"

// AutoPlayer clicks the expected point on the player's behalf, no more often
// than once per Interval.
type AutoPlayer struct {
	Interval  time.Duration
	Enabled   bool
	LastClick time.Time
}

// Enable turns auto-play on. The first click waits a full interval from the
// moment auto-play was first enabled in the round.
func (a *AutoPlayer) Enable(now time.Time) {
	a.Enabled = true
	if a.LastClick.IsZero() {
		a.LastClick = now
	}
}

// Disable turns auto-play off and keeps the last click time.
func (a *AutoPlayer) Disable() {
	a.Enabled = false
}

// Reset turns auto-play off and forgets the last click, as for a new round.
func (a *AutoPlayer) Reset() {
	a.Enabled = false
	a.LastClick = time.Time{}
}

// Due reports whether an enabled auto-player may click at now.
func (a *AutoPlayer) Due(now time.Time) bool {
	return a.Enabled && now.Sub(a.LastClick) >= a.Interval
}

type autoStep int

const (
	autoIdle autoStep = iota
	autoClicked
	autoStopped
)

// ToggleAutoPlay flips auto-play and returns the new setting. Auto-play can
// only be switched on while a round is Playing.
func (e *Engine) ToggleAutoPlay() bool {
	e.mu.Lock()
	changed := true
	switch {
	case e.auto.Enabled:
		e.auto.Disable()
	case e.state == StatePlaying:
		e.auto.Enable(e.clock.Now())
	default:
		changed = false
	}
	enabled := e.auto.Enabled
	e.mu.Unlock()
	if changed {
		e.notify(EventStatus, EventBoard)
	}
	return enabled
}

// AutoPlay reports whether auto-play is on.
func (e *Engine) AutoPlay() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.auto.Enabled
}

// autoStepLocked clicks the expected point if the auto-player is due. When the
// expected point does not exist (never placed, or already gone) the
// auto-player switches itself off instead of waiting forever.
func (e *Engine) autoStepLocked(now time.Time) autoStep {
	if e.state != StatePlaying || !e.auto.Due(now) {
		return autoIdle
	}
	id, ok := e.expectedPointLocked()
	if !ok {
		e.auto.Disable()
		return autoStopped
	}
	if e.clickLocked(id, now) != ClickCorrect {
		e.auto.Disable()
		return autoStopped
	}
	e.auto.LastClick = now
	return autoClicked
}

// expectedPointLocked finds the unclicked, visible point carrying the expected number.
func (e *Engine) expectedPointLocked() (string, bool) {
	for _, p := range e.points {
		if p.Number == e.next && !p.Clicked && p.Visible {
			return p.ID, true
		}
	}
	return "", false
}
