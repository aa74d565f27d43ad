package game

import (
	"math"
	"math/rand"

	"github.com/google/uuid"
)

const (
	maxPlacementAttempts = 100
	separationPadding    = 10
)

// Layout describes the play area points are placed in.
type Layout struct {
	Width        float64
	Height       float64
	PointSize    float64
	Margin       float64
	OverlapGuard int // above this many points, overlap is allowed
}

// GeneratePoints places points numbered 1..count uniformly inside the layout.
// Up to OverlapGuard points are kept at least PointSize+10 apart; a number that
// finds no free spot within 100 draws is dropped, so the result can hold fewer
// than count points.
func GeneratePoints(rng *rand.Rand, count int, l Layout) []Point {
	if count < 1 {
		return nil
	}
	spanX := math.Max(l.Width-l.PointSize-2*l.Margin, 0)
	spanY := math.Max(l.Height-l.PointSize-2*l.Margin, 0)
	separate := count <= l.OverlapGuard
	minDistance := l.PointSize + separationPadding

	points := make([]Point, 0, count)
	for n := 1; n <= count; n++ {
		for attempt := 0; attempt < maxPlacementAttempts; attempt++ {
			x := rng.Float64()*spanX + l.Margin
			y := rng.Float64()*spanY + l.Margin
			if separate && !clearOf(points, x, y, minDistance) {
				continue
			}
			points = append(points, Point{
				ID:      uuid.NewString(),
				X:       x,
				Y:       y,
				Number:  n,
				Visible: true,
			})
			break
		}
	}
	return points
}

func clearOf(points []Point, x, y, minDistance float64) bool {
	for _, p := range points {
		if math.Hypot(p.X-x, p.Y-y) <= minDistance {
			return false
		}
	}
	return true
}
