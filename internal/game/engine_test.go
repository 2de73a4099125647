package game

import (
	"errors"
	"testing"
)

func twoPlayerRoster() []PlayerSetup {
	return []PlayerSetup{
		{ID: 1, Name: "A", Color: "#F00"},
		{ID: 2, Name: "B", Color: "#00F"},
	}
}

func TestReset_FreshState(t *testing.T) {
	e := NewEngine()
	e.Reset(twoPlayerRoster(), 100)

	snap := e.Snapshot()
	if !snap.GameStarted {
		t.Error("Game should be started after reset")
	}
	if snap.CurrentPlayer != 1 {
		t.Errorf("Current player should be lowest id 1, got %d", snap.CurrentPlayer)
	}
	if snap.TurnNumber != 0 {
		t.Errorf("Turn number should be 0, got %d", snap.TurnNumber)
	}
	if snap.Winner != nil {
		t.Errorf("Winner should be unset, got %d", *snap.Winner)
	}
	if len(snap.Players) != 2 {
		t.Fatalf("Expected 2 players, got %d", len(snap.Players))
	}
	if snap.Players[1].Position != 0 || snap.Players[1].Moves != 0 {
		t.Error("Players should start at position 0 with 0 moves")
	}
}

func TestReset_ReplacesPreviousGame(t *testing.T) {
	e := NewEngine()
	e.Reset(twoPlayerRoster(), 100)

	if _, err := e.MovePlayer(1, 3); err != nil {
		t.Fatalf("MovePlayer failed: %v", err)
	}
	if _, err := e.NextTurn(); err != nil {
		t.Fatalf("NextTurn failed: %v", err)
	}

	// Starting again wipes positions, turn counter and roster
	e.Reset([]PlayerSetup{{ID: 5, Name: "C", Color: "#0F0"}}, 100)

	snap := e.Snapshot()
	if snap.TurnNumber != 0 {
		t.Errorf("Turn number should reset to 0, got %d", snap.TurnNumber)
	}
	if snap.CurrentPlayer != 5 {
		t.Errorf("Current player should be 5, got %d", snap.CurrentPlayer)
	}
	if _, ok := snap.Players[1]; ok {
		t.Error("Old roster should be gone after reset")
	}
}

func TestMovePlayer_UnknownPlayer(t *testing.T) {
	e := NewEngine()
	e.Reset(twoPlayerRoster(), 100)

	_, err := e.MovePlayer(99, 4)
	if !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("Expected ErrUnknownPlayer, got %v", err)
	}
}

func TestMovePlayer_SnakeScenario(t *testing.T) {
	// Player 1 at position 0 rolls 16, lands on the snake head at 16 and
	// slides down to 6.
	e := NewEngine()
	e.Reset(twoPlayerRoster(), 100)

	result, err := e.MovePlayer(1, 16)
	if err != nil {
		t.Fatalf("MovePlayer failed: %v", err)
	}

	if result.OldPosition != 0 {
		t.Errorf("Old position should be 0, got %d", result.OldPosition)
	}
	if result.NewPosition != 6 {
		t.Errorf("New position should be 6, got %d", result.NewPosition)
	}
	if result.EventKind != EventSnake {
		t.Errorf("Expected snake event, got %s", result.EventKind)
	}
	if result.TotalMoves != 1 {
		t.Errorf("Total moves should be 1, got %d", result.TotalMoves)
	}
	if result.PlayerName != "A" {
		t.Errorf("Player name should be A, got %s", result.PlayerName)
	}
}

func TestMovePlayer_RecordsDiceValue(t *testing.T) {
	e := NewEngine()
	e.Reset(twoPlayerRoster(), 100)

	if _, err := e.MovePlayer(1, 5); err != nil {
		t.Fatalf("MovePlayer failed: %v", err)
	}

	if snap := e.Snapshot(); snap.DiceValue != 5 {
		t.Errorf("Snapshot should carry last dice value 5, got %d", snap.DiceValue)
	}
}

func TestMovePlayer_WinOnLastSquare(t *testing.T) {
	e := NewEngine()
	e.Reset(twoPlayerRoster(), 100)

	// Walk player 1 to 95, then roll 5 to land exactly on 100
	if _, err := e.MovePlayer(1, 95); err != nil {
		t.Fatalf("MovePlayer failed: %v", err)
	}
	result, err := e.MovePlayer(1, 5)
	if err != nil {
		t.Fatalf("MovePlayer failed: %v", err)
	}

	if result.NewPosition != 100 {
		t.Errorf("Expected position 100, got %d", result.NewPosition)
	}
	winner, ok := e.Winner()
	if !ok {
		t.Fatal("Winner should be set")
	}
	if winner != 1 {
		t.Errorf("Winner should be player 1, got %d", winner)
	}
}

func TestMovePlayer_WinnerNotOverwritten(t *testing.T) {
	e := NewEngine()
	e.Reset(twoPlayerRoster(), 100)

	if _, err := e.MovePlayer(1, 100); err != nil {
		t.Fatalf("MovePlayer failed: %v", err)
	}
	// Player 2 reaching the end later must not steal the win
	if _, err := e.MovePlayer(2, 100); err != nil {
		t.Fatalf("MovePlayer failed: %v", err)
	}

	winner, ok := e.Winner()
	if !ok {
		t.Fatal("Winner should be set")
	}
	if winner != 1 {
		t.Errorf("First player to finish keeps the win, got %d", winner)
	}
}

func TestNextTurn_AscendingWithWrap(t *testing.T) {
	e := NewEngine()
	e.Reset([]PlayerSetup{
		{ID: 1, Name: "A", Color: "#F00"},
		{ID: 2, Name: "B", Color: "#0F0"},
		{ID: 3, Name: "C", Color: "#00F"},
	}, 100)

	// Starts at 1; sequence should be 2, 3, 1, 2
	expected := []int{2, 3, 1, 2}
	for i, want := range expected {
		got, err := e.NextTurn()
		if err != nil {
			t.Fatalf("NextTurn failed: %v", err)
		}
		if got != want {
			t.Errorf("Call %d: expected player %d, got %d", i+1, want, got)
		}
	}

	if e.TurnNumber() != 4 {
		t.Errorf("Turn number should be 4, got %d", e.TurnNumber())
	}
}

func TestNextTurn_EmptyRoster(t *testing.T) {
	e := NewEngine()

	_, err := e.NextTurn()
	if !errors.Is(err, ErrNoPlayers) {
		t.Errorf("Expected ErrNoPlayers, got %v", err)
	}
}

func TestPlayerColor(t *testing.T) {
	e := NewEngine()
	e.Reset(twoPlayerRoster(), 100)

	color, err := e.PlayerColor(2)
	if err != nil {
		t.Fatalf("PlayerColor failed: %v", err)
	}
	if color != "#00F" {
		t.Errorf("Expected #00F, got %s", color)
	}

	if _, err := e.PlayerColor(42); !errors.Is(err, ErrUnknownPlayer) {
		t.Errorf("Expected ErrUnknownPlayer, got %v", err)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	e := NewEngine()
	e.Reset(twoPlayerRoster(), 100)

	snap := e.Snapshot()
	player := snap.Players[1]
	player.Position = 50
	snap.Players[1] = player

	if fresh := e.Snapshot(); fresh.Players[1].Position != 0 {
		t.Error("Mutating a snapshot must not affect engine state")
	}
}
