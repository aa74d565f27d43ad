package realtime

import "time"

// Stopwatch holds the timing state of one round: when it started, when it was
// frozen, and the last sampled elapsed time. It does not hold game-specific
// state; the game composes it, samples it on every tick and stops it when the
// round leaves play.
type Stopwatch struct {
	Interval  time.Duration
	StartedAt time.Time
	StoppedAt time.Time
	Elapsed   time.Duration
}

// DefaultInterval is the usual sampling cadence, fine enough for a 0.1s display.
const DefaultInterval = 100 * time.Millisecond

// Start begins timing at now and clears any previous reading.
func (s *Stopwatch) Start(now time.Time) {
	s.StartedAt = now
	s.StoppedAt = time.Time{}
	s.Elapsed = 0
}

// Running reports whether the stopwatch was started and not yet stopped.
func (s *Stopwatch) Running() bool {
	return !s.StartedAt.IsZero() && s.StoppedAt.IsZero()
}

// Sample updates Elapsed from now while running and returns it. A stopped
// stopwatch keeps its last reading. Elapsed never moves backwards.
func (s *Stopwatch) Sample(now time.Time) time.Duration {
	if !s.Running() {
		return s.Elapsed
	}
	if d := now.Sub(s.StartedAt); d > s.Elapsed {
		s.Elapsed = d
	}
	return s.Elapsed
}

// Stop takes a final sample at now and freezes the reading.
func (s *Stopwatch) Stop(now time.Time) {
	if !s.Running() {
		return
	}
	s.Sample(now)
	s.StoppedAt = now
}

// NextWake returns the next time the stopwatch should be sampled, and whether
// it is running at all. A stopped stopwatch returns (zero, false).
func (s *Stopwatch) NextWake(now time.Time) (time.Time, bool) {
	if !s.Running() {
		return time.Time{}, false
	}
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return now.Add(interval), true
}
