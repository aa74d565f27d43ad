package viewmodel

// HomePage holds data for the landing page form.
type HomePage struct {
	Title         string
	PointCount    int
	MaxPointCount int
}

// GamePage holds data for the play page template.
type GamePage struct {
	Title     string
	SessionID string
	ShareURL  string
	Board     BoardFragment
	Status    StatusFragment
}

// BoardFragment holds data for the play area.
type BoardFragment struct {
	SessionID string
	RoundKey  string
	Width     float64
	Height    float64
	PointSize float64
	Disabled  bool
	Points    []PointView
}

// PointView is one point as drawn on the board. Countdown is empty unless the
// point is clicked and still fading out.
type PointView struct {
	ID        string
	Number    int
	X         float64
	Y         float64
	Clicked   bool
	Missed    bool
	Countdown string
	Opacity   float64
	Layer     int
}

// StatusFragment holds data for the header: title, timer, next number and controls.
type StatusFragment struct {
	SessionID    string
	State        string
	Title        string
	TitleClass   string
	Elapsed      string
	Next         int
	ShowNext     bool
	AutoPlay     bool
	ShowAutoPlay bool
	ButtonLabel  string
	PointCount   int
	MaxPoints    int
	Placed       int
	Requested    int
}

// State is the JSON form of a snapshot for the websocket and /state endpoints.
type State struct {
	SessionID    string       `json:"sessionId"`
	RoundID      string       `json:"roundId,omitempty"`
	Generation   uint64       `json:"generation"`
	State        string       `json:"state"`
	ElapsedMs    int64        `json:"elapsedMs"`
	NextExpected int          `json:"nextExpected"`
	HasNext      bool         `json:"hasNext"`
	AutoPlay     bool         `json:"autoPlay"`
	Requested    int          `json:"requested"`
	Placed       int          `json:"placed"`
	PointCount   int          `json:"pointCount"`
	Points       []PointState `json:"points"`
}

// PointState is the JSON form of one point.
type PointState struct {
	ID              string  `json:"id"`
	Number          int     `json:"number"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Clicked         bool    `json:"clicked"`
	Visible         bool    `json:"visible"`
	HideRemainingMs int64   `json:"hideRemainingMs,omitempty"`
}
