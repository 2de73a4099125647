// Package history keeps a write-only audit trail of games and moves in
// Postgres. Recording is best-effort: the server never reads the trail
// back, and a nil *Recorder silently records nothing, so the game runs
// identically with or without a database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"snakes-server/internal/game"
)

type Recorder struct {
	db *sql.DB

	mu            sync.Mutex
	currentGameID int64
}

// Open connects to Postgres and applies migrations from migrationsDir.
func Open(databaseURL, migrationsDir string) (*Recorder, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &Recorder{db: db}, nil
}

// RecordGameStart inserts a new game row and makes it the current game
// for subsequent move records.
func (r *Recorder) RecordGameStart(ctx context.Context, roster []game.PlayerSetup, boardSize int) error {
	if r == nil {
		return nil
	}

	players, err := json.Marshal(roster)
	if err != nil {
		return fmt.Errorf("failed to serialize roster: %w", err)
	}

	var gameID int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO games (board_size, players)
		VALUES ($1, $2)
		RETURNING id
	`, boardSize, players).Scan(&gameID)
	if err != nil {
		return fmt.Errorf("failed to record game start: %w", err)
	}

	r.mu.Lock()
	r.currentGameID = gameID
	r.mu.Unlock()
	return nil
}

// RecordMove appends a resolved move to the current game's trail.
func (r *Recorder) RecordMove(ctx context.Context, result game.MoveResult) error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	gameID := r.currentGameID
	r.mu.Unlock()
	if gameID == 0 {
		// Moves before the first recorded game start are not attributable.
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO moves (game_id, player_id, player_name, dice_value, from_position, to_position, event_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, gameID, result.PlayerID, result.PlayerName, result.DiceValue,
		result.OldPosition, result.NewPosition, string(result.EventKind))
	if err != nil {
		return fmt.Errorf("failed to record move: %w", err)
	}
	return nil
}

// RecordWinner marks the current game as finished.
func (r *Recorder) RecordWinner(ctx context.Context, playerID int) error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	gameID := r.currentGameID
	r.mu.Unlock()
	if gameID == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE games SET winner_id = $1, finished_at = now() WHERE id = $2
	`, playerID, gameID)
	if err != nil {
		return fmt.Errorf("failed to record winner: %w", err)
	}
	return nil
}

func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	return r.db.Close()
}
