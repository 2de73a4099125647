package server

import (
	"encoding/json"
	"time"
)

// EventType enumerates every message kind on the wire. Inbound events
// are routed through an exhaustive switch; anything that does not parse
// to one of these is dropped.
type EventType string

// Inbound events.
const (
	EventStartGame        EventType = "start_game"
	EventDiceRolled       EventType = "dice_rolled"
	EventEndTurn          EventType = "end_turn"
	EventButtonPressed    EventType = "button_pressed"
	EventControllerStatus EventType = "esp32_status"
	EventGetState         EventType = "get_state"
)

// Outbound events.
const (
	EventGameStarted EventType = "game_started"
	EventPlayerMoved EventType = "player_moved"
	EventPlayerWon   EventType = "player_won"
	EventTurnChanged EventType = "turn_changed"
	EventGameState   EventType = "game_state"
)

// ClientMessage is the inbound envelope: {event, data}.
type ClientMessage struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEvent is the outbound envelope: {event, data, timestamp}.
type ServerEvent struct {
	Event     EventType   `json:"event"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

func newServerEvent(event EventType, data interface{}) ServerEvent {
	return ServerEvent{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}
