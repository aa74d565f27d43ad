package game

import "time"

// Snapshot captures the state needed for rendering.
type Snapshot struct {
	RoundID        string
	Generation     uint64
	State          State
	Points         []Point
	NextExpected   int
	HasNext        bool
	Elapsed        time.Duration
	AutoPlay       bool
	MissedID       string
	RequestedCount int
	PendingCount   int
	HideDelay      time.Duration
	Settings       Settings
	TakenAt        time.Time
}

// Snapshot returns a consistent copy of the current round.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	points := make([]Point, len(e.points))
	copy(points, e.points)
	_, hasNext := e.expectedPointLocked()
	return Snapshot{
		RoundID:        e.roundID,
		Generation:     e.generation,
		State:          e.state,
		Points:         points,
		NextExpected:   e.next,
		HasNext:        e.state == StatePlaying && hasNext,
		Elapsed:        e.watch.Elapsed,
		AutoPlay:       e.auto.Enabled,
		MissedID:       e.missedID,
		RequestedCount: e.roundCount,
		PendingCount:   e.requested,
		HideDelay:      e.settings.HideDelay,
		Settings:       e.settings,
		TakenAt:        e.clock.Now(),
	}
}

// Placed returns how many points made it onto the board.
func (s Snapshot) Placed() int {
	return len(s.Points)
}

// HideRemaining returns how long a clicked, still visible point has left
// before it disappears, as of the snapshot time.
func (s Snapshot) HideRemaining(p Point) time.Duration {
	if !p.Clicked || !p.Visible {
		return 0
	}
	left := p.ClickedAt.Add(s.HideDelay).Sub(s.TakenAt)
	if left < 0 {
		return 0
	}
	return left
}

// PointByNumber looks up a point by its number.
func (s Snapshot) PointByNumber(n int) (Point, bool) {
	for _, p := range s.Points {
		if p.Number == n {
			return p, true
		}
	}
	return Point{}, false
}
