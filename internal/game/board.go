package game

import (
	"errors"
	"fmt"
)

// EventKind classifies what happened to a piece during move resolution.
// The values are wire-level strings consumed by the frontend and the
// hardware controller.
type EventKind string

const (
	EventNormal EventKind = "normal"
	EventBounce EventKind = "bounce_back"
	EventSnake  EventKind = "snake"
	EventLadder EventKind = "ladder"
)

// Board holds the static layout: size plus the snake and ladder jumps.
// Snakes map a head square to a lower tail square, ladders map a foot
// square to a higher top square.
type Board struct {
	Size    int
	Snakes  map[int]int
	Ladders map[int]int
}

// DefaultBoard returns the classic 100-square layout with 10 snakes and
// 9 ladders.
func DefaultBoard() Board {
	return Board{
		Size: 100,
		Snakes: map[int]int{
			16: 6, 47: 26, 49: 11, 56: 53,
			62: 19, 64: 60, 87: 24, 93: 73, 95: 75, 98: 78,
		},
		Ladders: map[int]int{
			1: 38, 4: 14, 9: 31, 21: 42,
			28: 84, 36: 44, 51: 67, 71: 91, 80: 100,
		},
	}
}

// Validate checks the board invariants: positive size, every snake goes
// strictly down, every ladder goes strictly up, and no square is both a
// snake head and a ladder foot.
func (b Board) Validate() error {
	if b.Size <= 0 {
		return errors.New("BOARD_INVALID: board size must be positive")
	}
	for head, tail := range b.Snakes {
		if tail >= head {
			return fmt.Errorf("BOARD_INVALID: snake at %d must go down, got %d", head, tail)
		}
		if _, ok := b.Ladders[head]; ok {
			return fmt.Errorf("BOARD_INVALID: square %d is both snake head and ladder foot", head)
		}
	}
	for foot, top := range b.Ladders {
		if top <= foot {
			return fmt.Errorf("BOARD_INVALID: ladder at %d must go up, got %d", foot, top)
		}
	}
	return nil
}

// Resolve applies a dice roll to a position and returns the final square
// plus the kind of transition that occurred. Resolution order: bounce
// reflection off the last square, then snake, then ladder. Snake and
// ladder lookups apply only to the post-bounce candidate and are never
// chained, so one roll triggers at most one jump.
func (b Board) Resolve(position, steps int) (int, EventKind) {
	candidate := position + steps
	kind := EventNormal

	if candidate > b.Size {
		candidate = b.Size - (candidate - b.Size)
		kind = EventBounce
		if candidate < 0 {
			// Overshoot larger than the board itself. Cannot happen with
			// a six-sided die on the default board, but clamp instead of
			// sending a negative square to clients.
			candidate = 0
		}
	}

	if tail, ok := b.Snakes[candidate]; ok {
		return tail, EventSnake
	}
	if top, ok := b.Ladders[candidate]; ok {
		return top, EventLadder
	}
	return candidate, kind
}
