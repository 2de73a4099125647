package game

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrUnknownPlayer = errors.New("PLAYER_NOT_FOUND: player is not part of the game")
	ErrNoPlayers     = errors.New("NO_PLAYERS: game has no players")
)

// Player is one piece on the board.
type Player struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Position int    `json:"position"`
	Moves    int    `json:"moves"`
}

// PlayerSetup is the roster entry supplied when a game starts.
type PlayerSetup struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// MoveResult describes one resolved move, in the shape broadcast to
// clients as the player_moved payload.
type MoveResult struct {
	PlayerID    int       `json:"player_id"`
	PlayerName  string    `json:"player_name"`
	OldPosition int       `json:"old_position"`
	NewPosition int       `json:"new_position"`
	DiceValue   int       `json:"dice_value"`
	EventKind   EventKind `json:"event_type"`
	TotalMoves  int       `json:"total_moves"`

	// Won is true only for the move that decided the game. Not part of
	// the player_moved payload; player_won carries its own shape.
	Won bool `json:"-"`
}

// Snapshot is the read-only projection of the full game state sent to
// clients as the game_state / game_started payload.
type Snapshot struct {
	Players       map[int]Player `json:"players"`
	CurrentPlayer int            `json:"current_player"`
	DiceValue     int            `json:"dice_value"`
	TurnNumber    int            `json:"turn_number"`
	GameStarted   bool           `json:"game_started"`
	Winner        *int           `json:"winner"`
	BoardSize     int            `json:"board_size"`
}

// Engine owns the authoritative state of a single game session. All
// methods are safe for concurrent use; handlers on separate connections
// may touch the engine from separate goroutines.
type Engine struct {
	mu            sync.Mutex
	board         Board
	players       map[int]*Player
	currentPlayer int
	diceValue     int
	turnNumber    int
	started       bool
	winner        *int
}

// NewEngine creates an engine with the default board and no players. A
// game must be started via Reset before moves are accepted.
func NewEngine() *Engine {
	return NewEngineWithBoard(DefaultBoard())
}

func NewEngineWithBoard(board Board) *Engine {
	return &Engine{
		board:   board,
		players: make(map[int]*Player),
	}
}

// Reset replaces the entire game state: the roster is rebuilt from
// scratch, positions and counters return to zero, and any winner is
// cleared. This is a full reconstruction, not an incremental update.
func (e *Engine) Reset(roster []PlayerSetup, boardSize int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.players = make(map[int]*Player, len(roster))
	for _, p := range roster {
		e.players[p.ID] = &Player{
			ID:    p.ID,
			Name:  p.Name,
			Color: p.Color,
		}
	}

	if boardSize > 0 {
		e.board.Size = boardSize
	}

	e.currentPlayer = 0
	for id := range e.players {
		if e.currentPlayer == 0 || id < e.currentPlayer {
			e.currentPlayer = id
		}
	}

	e.diceValue = 0
	e.turnNumber = 0
	e.winner = nil
	e.started = true
}

// MovePlayer applies a dice roll to the given player, resolving snakes,
// ladders and bounce-back through the board rules. The first player
// whose resolved position reaches the last square becomes the winner;
// once set, the winner is never overwritten by later moves.
func (e *Engine) MovePlayer(playerID, diceValue int) (MoveResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	player, ok := e.players[playerID]
	if !ok {
		return MoveResult{}, ErrUnknownPlayer
	}

	oldPosition := player.Position
	newPosition, kind := e.board.Resolve(oldPosition, diceValue)

	player.Position = newPosition
	player.Moves++
	e.diceValue = diceValue

	won := false
	if newPosition >= e.board.Size && e.winner == nil {
		id := playerID
		e.winner = &id
		won = true
	}

	return MoveResult{
		PlayerID:    playerID,
		PlayerName:  player.Name,
		OldPosition: oldPosition,
		NewPosition: newPosition,
		DiceValue:   diceValue,
		EventKind:   kind,
		TotalMoves:  player.Moves,
		Won:         won,
	}, nil
}

// NextTurn advances the turn pointer to the next player id in ascending
// order, wrapping from the largest id back to the smallest, and bumps
// the turn counter.
func (e *Engine) NextTurn() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.players) == 0 {
		return 0, ErrNoPlayers
	}

	ids := make([]int, 0, len(e.players))
	for id := range e.players {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	next := ids[0]
	for _, id := range ids {
		if id > e.currentPlayer {
			next = id
			break
		}
	}

	e.currentPlayer = next
	e.turnNumber++
	return next, nil
}

// CurrentPlayer returns the id of the player whose turn it is.
func (e *Engine) CurrentPlayer() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentPlayer
}

// TurnNumber returns the monotonic turn counter.
func (e *Engine) TurnNumber() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.turnNumber
}

// Winner returns the winning player id, if a player has won.
func (e *Engine) Winner() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.winner == nil {
		return 0, false
	}
	return *e.winner, true
}

// PlayerColor returns the display color of a player.
func (e *Engine) PlayerColor(playerID int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	player, ok := e.players[playerID]
	if !ok {
		return "", ErrUnknownPlayer
	}
	return player.Color, nil
}

// Snapshot returns a copy of the complete game state for transmission.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	players := make(map[int]Player, len(e.players))
	for id, p := range e.players {
		players[id] = *p
	}

	var winner *int
	if e.winner != nil {
		id := *e.winner
		winner = &id
	}

	return Snapshot{
		Players:       players,
		CurrentPlayer: e.currentPlayer,
		DiceValue:     e.diceValue,
		TurnNumber:    e.turnNumber,
		GameStarted:   e.started,
		Winner:        winner,
		BoardSize:     e.board.Size,
	}
}
