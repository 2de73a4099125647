package history

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"snakes-server/internal/game"
)

// setupTestRecorder starts a throwaway Postgres container and opens a
// recorder against it with migrations applied.
func setupTestRecorder(t *testing.T) *Recorder {
	t.Helper()

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("history_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	if err != nil {
		t.Skipf("Skipping: could not start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	recorder, err := Open(connString, "../../db/migrations")
	if err != nil {
		t.Fatalf("Failed to open recorder: %v", err)
	}
	t.Cleanup(func() { recorder.Close() })

	return recorder
}

func testRoster() []game.PlayerSetup {
	return []game.PlayerSetup{
		{ID: 1, Name: "A", Color: "#F00"},
		{ID: 2, Name: "B", Color: "#00F"},
	}
}

func TestRecorder_FullGameTrail(t *testing.T) {
	r := setupTestRecorder(t)
	ctx := context.Background()

	if err := r.RecordGameStart(ctx, testRoster(), 100); err != nil {
		t.Fatalf("RecordGameStart failed: %v", err)
	}

	moves := []game.MoveResult{
		{PlayerID: 1, PlayerName: "A", OldPosition: 0, NewPosition: 6, DiceValue: 16, EventKind: game.EventSnake, TotalMoves: 1},
		{PlayerID: 2, PlayerName: "B", OldPosition: 0, NewPosition: 14, DiceValue: 4, EventKind: game.EventLadder, TotalMoves: 1},
	}
	for _, m := range moves {
		if err := r.RecordMove(ctx, m); err != nil {
			t.Fatalf("RecordMove failed: %v", err)
		}
	}

	if err := r.RecordWinner(ctx, 2); err != nil {
		t.Fatalf("RecordWinner failed: %v", err)
	}

	var moveCount int
	if err := r.db.QueryRow(`SELECT count(*) FROM moves`).Scan(&moveCount); err != nil {
		t.Fatalf("Failed to count moves: %v", err)
	}
	if moveCount != 2 {
		t.Errorf("Expected 2 recorded moves, got %d", moveCount)
	}

	var eventType string
	var toPosition int
	err := r.db.QueryRow(`
		SELECT event_type, to_position FROM moves WHERE player_id = 1
	`).Scan(&eventType, &toPosition)
	if err != nil {
		t.Fatalf("Failed to load move: %v", err)
	}
	if eventType != "snake" {
		t.Errorf("Expected event_type snake, got %s", eventType)
	}
	if toPosition != 6 {
		t.Errorf("Expected to_position 6, got %d", toPosition)
	}

	var winnerID int
	err = r.db.QueryRow(`SELECT winner_id FROM games WHERE winner_id IS NOT NULL`).Scan(&winnerID)
	if err != nil {
		t.Fatalf("Failed to load winner: %v", err)
	}
	if winnerID != 2 {
		t.Errorf("Expected winner 2, got %d", winnerID)
	}
}

func TestRecorder_NewGameStartsFreshTrail(t *testing.T) {
	r := setupTestRecorder(t)
	ctx := context.Background()

	if err := r.RecordGameStart(ctx, testRoster(), 100); err != nil {
		t.Fatalf("RecordGameStart failed: %v", err)
	}
	if err := r.RecordMove(ctx, game.MoveResult{PlayerID: 1, PlayerName: "A", DiceValue: 3, NewPosition: 3, EventKind: game.EventNormal, TotalMoves: 1}); err != nil {
		t.Fatalf("RecordMove failed: %v", err)
	}

	// A second start_game opens a new game row; moves attach to it
	if err := r.RecordGameStart(ctx, testRoster(), 50); err != nil {
		t.Fatalf("RecordGameStart failed: %v", err)
	}
	if err := r.RecordMove(ctx, game.MoveResult{PlayerID: 2, PlayerName: "B", DiceValue: 5, NewPosition: 5, EventKind: game.EventNormal, TotalMoves: 1}); err != nil {
		t.Fatalf("RecordMove failed: %v", err)
	}

	var gameCount int
	if err := r.db.QueryRow(`SELECT count(*) FROM games`).Scan(&gameCount); err != nil {
		t.Fatalf("Failed to count games: %v", err)
	}
	if gameCount != 2 {
		t.Errorf("Expected 2 games, got %d", gameCount)
	}

	var movesInSecond int
	err := r.db.QueryRow(`
		SELECT count(*) FROM moves m JOIN games g ON m.game_id = g.id WHERE g.board_size = 50
	`).Scan(&movesInSecond)
	if err != nil {
		t.Fatalf("Failed to count moves: %v", err)
	}
	if movesInSecond != 1 {
		t.Errorf("Expected 1 move in second game, got %d", movesInSecond)
	}
}

func TestRecorder_NilRecorderIsNoOp(t *testing.T) {
	var r *Recorder
	ctx := context.Background()

	// All calls must be safe without a database
	if err := r.RecordGameStart(ctx, testRoster(), 100); err != nil {
		t.Errorf("RecordGameStart on nil recorder: %v", err)
	}
	if err := r.RecordMove(ctx, game.MoveResult{}); err != nil {
		t.Errorf("RecordMove on nil recorder: %v", err)
	}
	if err := r.RecordWinner(ctx, 1); err != nil {
		t.Errorf("RecordWinner on nil recorder: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil recorder: %v", err)
	}
}

func TestRecorder_MovesBeforeGameStartAreDropped(t *testing.T) {
	r := setupTestRecorder(t)
	ctx := context.Background()

	// No game started yet: the move is unattributable and skipped
	if err := r.RecordMove(ctx, game.MoveResult{PlayerID: 1, PlayerName: "A"}); err != nil {
		t.Fatalf("RecordMove failed: %v", err)
	}

	var moveCount int
	if err := r.db.QueryRow(`SELECT count(*) FROM moves`).Scan(&moveCount); err != nil {
		t.Fatalf("Failed to count moves: %v", err)
	}
	if moveCount != 0 {
		t.Errorf("Expected 0 moves, got %d", moveCount)
	}
}
