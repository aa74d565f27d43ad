package handlers

import (
	"testing"
	"time"

	"numrush/internal/game"
)

func testSnapshot(state game.State) game.Snapshot {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return game.Snapshot{
		RoundID:        "round",
		Generation:     2,
		State:          state,
		NextExpected:   2,
		HasNext:        state == game.StatePlaying,
		Elapsed:        1234 * time.Millisecond,
		RequestedCount: 4,
		PendingCount:   4,
		HideDelay:      3 * time.Second,
		Settings:       game.DefaultSettings(),
		TakenAt:        now,
		Points: []game.Point{
			{ID: "a", Number: 1, Clicked: true, Visible: true, ClickedAt: now.Add(-time.Second)},
			{ID: "b", Number: 2, Visible: true},
			{ID: "c", Number: 3, Clicked: true, Visible: false},
		},
	}
}

func TestBuildBoardFragment(t *testing.T) {
	board := buildBoardFragment("s1", testSnapshot(game.StatePlaying))
	if board.Disabled {
		t.Error("board should be enabled while playing")
	}
	if len(board.Points) != 2 {
		t.Fatalf("len(Points) %d, want hidden points left out", len(board.Points))
	}
	one, two := board.Points[0], board.Points[1]
	if one.Countdown != "2.0s" {
		t.Errorf("Countdown %q, want 2.0s", one.Countdown)
	}
	if one.Opacity < 0.66 || one.Opacity > 0.67 {
		t.Errorf("Opacity %.3f, want about 2/3", one.Opacity)
	}
	if two.Countdown != "" || two.Opacity != 1 {
		t.Errorf("unclicked point countdown %q opacity %v", two.Countdown, two.Opacity)
	}
	if one.Layer <= two.Layer {
		t.Errorf("layers %d and %d: lower numbers should sit on top", one.Layer, two.Layer)
	}
}

func TestBuildBoardFragment_LayersStayPositive(t *testing.T) {
	snap := testSnapshot(game.StatePlaying)
	snap.Points = []game.Point{
		{ID: "a", Number: 1, Visible: true},
		{ID: "b", Number: 2, Visible: true},
		{ID: "e", Number: 5, Visible: true},
	}
	board := buildBoardFragment("s1", snap)
	want := []int{3, 2, 1}
	for i, p := range board.Points {
		if p.Layer != want[i] {
			t.Errorf("point %d Layer %d, want %d", p.Number, p.Layer, want[i])
		}
	}
}

func TestBuildBoardFragment_Disabled(t *testing.T) {
	snap := testSnapshot(game.StatePlaying)
	snap.AutoPlay = true
	if !buildBoardFragment("s1", snap).Disabled {
		t.Error("board should be disabled during auto-play")
	}

	snap = testSnapshot(game.StateGameOver)
	snap.MissedID = "b"
	board := buildBoardFragment("s1", snap)
	if !board.Disabled {
		t.Error("board should be disabled after game over")
	}
	if board.Points[0].Countdown != "" {
		t.Error("countdowns only run while playing")
	}
	if !board.Points[1].Missed {
		t.Error("the wrongly clicked point should be marked")
	}
}

func TestBuildStatusFragment(t *testing.T) {
	cases := []struct {
		state  game.State
		title  string
		button string
		auto   bool
	}{
		{game.StateReady, "Let's Play", "Play", false},
		{game.StatePlaying, "Let's Play", "Restart", true},
		{game.StateGameOver, "Game Over", "Restart", false},
		{game.StateAllCleared, "All Cleared", "Restart", false},
	}
	for _, tc := range cases {
		status := buildStatusFragment("s1", testSnapshot(tc.state))
		if status.Title != tc.title || status.ButtonLabel != tc.button || status.ShowAutoPlay != tc.auto {
			t.Errorf("%s: title %q button %q auto %v", tc.state, status.Title, status.ButtonLabel, status.ShowAutoPlay)
		}
		if status.Elapsed != "1.2s" {
			t.Errorf("%s: Elapsed %q, want 1.2s", tc.state, status.Elapsed)
		}
	}
}

func TestBuildState(t *testing.T) {
	st := buildState("s1", testSnapshot(game.StatePlaying))
	if st.ElapsedMs != 1234 || st.Placed != 3 || st.Requested != 4 {
		t.Errorf("state %+v", st)
	}
	if got := st.Points[0].HideRemainingMs; got != 2000 {
		t.Errorf("HideRemainingMs %d, want 2000", got)
	}
	if got := st.Points[2].HideRemainingMs; got != 0 {
		t.Errorf("hidden point HideRemainingMs %d, want 0", got)
	}
}
