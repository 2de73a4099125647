package server

import "snakes-server/internal/game"

// ============================================================================
// START GAME (start_game)
// ============================================================================
type StartGameRequest struct {
	Players   []game.PlayerSetup `json:"players"`
	BoardSize int                `json:"board_size"`
}

// ============================================================================
// DICE ROLLED (dice_rolled)
// ============================================================================
type DiceRolledRequest struct {
	PlayerID int `json:"player_id"`
	Value    int `json:"value"`
}

// ============================================================================
// END TURN (end_turn)
// ============================================================================
type EndTurnRequest struct {
	PlayerID int `json:"player_id"`
}

// ============================================================================
// BUTTON PRESSED (button_pressed, from the hardware controller)
// ============================================================================
type ButtonPressedRequest struct {
	ButtonID string `json:"button_id"`
	PlayerID int    `json:"player_id"`
}

// ============================================================================
// CONTROLLER STATUS (esp32_status)
// ============================================================================
type ControllerStatusRequest struct {
	ClientType   string   `json:"client_type,omitempty"`
	WifiStrength int      `json:"wifi_strength"`
	Errors       []string `json:"errors"`
}

// ============================================================================
// TURN CHANGED (turn_changed broadcast)
// ============================================================================
type TurnChangedNotification struct {
	CurrentPlayer int `json:"current_player"`
	TurnNumber    int `json:"turn_number"`
}

// ============================================================================
// PLAYER WON (player_won broadcast)
// ============================================================================
type PlayerWonNotification struct {
	PlayerID   int    `json:"player_id"`
	PlayerName string `json:"player_name"`
	TotalMoves int    `json:"total_moves"`
}

// ============================================================================
// CONTROLLER COMMANDS
// ============================================================================
// Commands use a flat {command, ...} shape, not the event envelope: the
// controller firmware parses them as plain objects.

type MovePieceCommand struct {
	Command      string `json:"command"`
	PlayerID     int    `json:"player_id"`
	FromPosition int    `json:"from_position"`
	ToPosition   int    `json:"to_position"`
}

type HighlightPlayerCommand struct {
	Command  string `json:"command"`
	PlayerID int    `json:"player_id"`
	Color    string `json:"color"`
}

const (
	CommandMovePiece       = "move_piece"
	CommandHighlightPlayer = "highlight_player"
)
