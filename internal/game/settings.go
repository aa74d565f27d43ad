package game

import "time"

// Settings are the host-supplied constants an engine runs with.
type Settings struct {
	PointCount     int
	MaxPointCount  int
	AreaWidth      float64
	AreaHeight     float64
	PointSize      float64
	Margin         float64
	OverlapGuard   int
	HideDelay      time.Duration
	AutoClickDelay time.Duration
	TickInterval   time.Duration
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		PointCount:     5,
		MaxPointCount:  2000,
		AreaWidth:      600,
		AreaHeight:     500,
		PointSize:      40,
		Margin:         10,
		OverlapGuard:   50,
		HideDelay:      3 * time.Second,
		AutoClickDelay: time.Second,
		TickInterval:   100 * time.Millisecond,
	}
}

// Normalize fills zero or out-of-range values from the defaults. Nothing here
// fails; odd but usable values are kept.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	if s.MaxPointCount < 1 {
		s.MaxPointCount = def.MaxPointCount
	}
	s.PointCount = clampCount(s.PointCount, def.PointCount, s.MaxPointCount)
	if s.AreaWidth <= 0 {
		s.AreaWidth = def.AreaWidth
	}
	if s.AreaHeight <= 0 {
		s.AreaHeight = def.AreaHeight
	}
	if s.PointSize <= 0 {
		s.PointSize = def.PointSize
	}
	if s.Margin < 0 {
		s.Margin = 0
	}
	if s.OverlapGuard < 0 {
		s.OverlapGuard = 0
	}
	if s.HideDelay < 0 {
		s.HideDelay = 0
	}
	if s.AutoClickDelay < 0 {
		s.AutoClickDelay = 0
	}
	if s.TickInterval <= 0 {
		s.TickInterval = def.TickInterval
	}
	return s
}

func (s Settings) layout() Layout {
	return Layout{
		Width:        s.AreaWidth,
		Height:       s.AreaHeight,
		PointSize:    s.PointSize,
		Margin:       s.Margin,
		OverlapGuard: s.OverlapGuard,
	}
}

func clampCount(n, fallback, max int) int {
	if n < 1 {
		n = fallback
	}
	if n < 1 {
		n = 1
	}
	if n > max {
		n = max
	}
	return n
}
