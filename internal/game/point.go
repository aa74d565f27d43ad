package game

import "time"

// State is the lifecycle state of a round.
type State string

const (
	StateReady      State = "ready"
	StatePlaying    State = "playing"
	StateGameOver   State = "game_over"
	StateAllCleared State = "all_cleared"
)

// Terminal reports whether the round has ended.
func (s State) Terminal() bool {
	return s == StateGameOver || s == StateAllCleared
}

// Events published to stream subscribers after a transition.
const (
	EventBoard  = "board"
	EventStatus = "status"
)

// Point is one numbered target.
type Point struct {
	ID        string
	X         float64
	Y         float64
	Number    int
	Clicked   bool
	Visible   bool
	ClickedAt time.Time
}

// ClickResult is the outcome of a click.
type ClickResult int

const (
	ClickIgnored ClickResult = iota
	ClickCorrect
	ClickWrong
)

func (r ClickResult) String() string {
	switch r {
	case ClickCorrect:
		return "correct"
	case ClickWrong:
		return "wrong"
	default:
		return "ignored"
	}
}
