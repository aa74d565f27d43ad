package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"numrush/internal/game"
	"numrush/internal/viewmodel"
)

func buildBoardFragment(sessionID string, snap game.Snapshot) viewmodel.BoardFragment {
	points := make([]viewmodel.PointView, 0, len(snap.Points))
	for i, p := range snap.Points {
		if !p.Visible {
			continue
		}
		view := viewmodel.PointView{
			ID:      p.ID,
			Number:  p.Number,
			X:       p.X,
			Y:       p.Y,
			Clicked: p.Clicked,
			Missed:  p.ID == snap.MissedID,
			Opacity: 1,
			// Points are in number order; lower numbers stay on top where
			// they overlap. Layers count down to 1 so none drops behind the board.
			Layer: len(snap.Points) - i,
		}
		if p.Clicked && snap.State == game.StatePlaying {
			left := snap.HideRemaining(p)
			view.Countdown = formatSeconds(left)
			if snap.HideDelay > 0 {
				view.Opacity = float64(left) / float64(snap.HideDelay)
			}
		}
		points = append(points, view)
	}
	return viewmodel.BoardFragment{
		SessionID: sessionID,
		RoundKey:  buildRoundKey(snap),
		Width:     snap.Settings.AreaWidth,
		Height:    snap.Settings.AreaHeight,
		PointSize: snap.Settings.PointSize,
		Disabled:  snap.AutoPlay || snap.State != game.StatePlaying,
		Points:    points,
	}
}

func buildStatusFragment(sessionID string, snap game.Snapshot) viewmodel.StatusFragment {
	title, class := titleFor(snap.State)
	label := "Restart"
	if snap.State == game.StateReady {
		label = "Play"
	}
	return viewmodel.StatusFragment{
		SessionID:    sessionID,
		State:        string(snap.State),
		Title:        title,
		TitleClass:   class,
		Elapsed:      formatSeconds(snap.Elapsed),
		Next:         snap.NextExpected,
		ShowNext:     snap.HasNext,
		AutoPlay:     snap.AutoPlay,
		ShowAutoPlay: snap.State == game.StatePlaying,
		ButtonLabel:  label,
		PointCount:   snap.PendingCount,
		MaxPoints:    snap.Settings.MaxPointCount,
		Placed:       snap.Placed(),
		Requested:    snap.RequestedCount,
	}
}

func buildState(sessionID string, snap game.Snapshot) viewmodel.State {
	points := make([]viewmodel.PointState, 0, len(snap.Points))
	for _, p := range snap.Points {
		points = append(points, viewmodel.PointState{
			ID:              p.ID,
			Number:          p.Number,
			X:               p.X,
			Y:               p.Y,
			Clicked:         p.Clicked,
			Visible:         p.Visible,
			HideRemainingMs: snap.HideRemaining(p).Milliseconds(),
		})
	}
	return viewmodel.State{
		SessionID:    sessionID,
		RoundID:      snap.RoundID,
		Generation:   snap.Generation,
		State:        string(snap.State),
		ElapsedMs:    snap.Elapsed.Milliseconds(),
		NextExpected: snap.NextExpected,
		HasNext:      snap.HasNext,
		AutoPlay:     snap.AutoPlay,
		Requested:    snap.RequestedCount,
		Placed:       snap.Placed(),
		PointCount:   snap.PendingCount,
		Points:       points,
	}
}

func titleFor(state game.State) (string, string) {
	switch state {
	case game.StateGameOver:
		return "Game Over", "status__title--over"
	case game.StateAllCleared:
		return "All Cleared", "status__title--cleared"
	default:
		return "Let's Play", "status__title--ready"
	}
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func buildRoundKey(snap game.Snapshot) string {
	return strings.Join([]string{
		string(snap.State),
		snap.RoundID,
		strconv.FormatUint(snap.Generation, 10),
	}, "|")
}
