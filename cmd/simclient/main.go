// Command simclient exercises the game server without a browser or the
// board hardware. It can drive a scripted two-player game or impersonate
// the ESP32 controller and print the commands it receives.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand/v2"
	"time"

	"github.com/coder/websocket"
)

type clientEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type serverEnvelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

type moveBroadcast struct {
	PlayerName  string `json:"player_name"`
	OldPosition int    `json:"old_position"`
	NewPosition int    `json:"new_position"`
	EventType   string `json:"event_type"`
}

func main() {
	addr := flag.String("addr", "ws://localhost:5001/websocket", "server websocket URL")
	mode := flag.String("mode", "game", "simulation mode: game or controller")
	turns := flag.Int("turns", 5, "number of turns to play in game mode")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", *addr, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "simulation finished")

	log.Printf("Connected to %s", *addr)

	switch *mode {
	case "game":
		runGameFlow(ctx, conn, *turns)
	case "controller":
		runControllerSim(ctx, conn)
	default:
		log.Fatalf("Unknown mode %q", *mode)
	}
}

func send(ctx context.Context, conn *websocket.Conn, event string, data any) {
	payload, err := json.Marshal(clientEnvelope{Event: event, Data: data})
	if err != nil {
		log.Fatalf("Failed to marshal %s: %v", event, err)
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		log.Fatalf("Failed to send %s: %v", event, err)
	}
}

// waitFor reads frames until the named event arrives, skipping over
// other broadcasts.
func waitFor(ctx context.Context, conn *websocket.Conn, event string) serverEnvelope {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Fatalf("Read failed waiting for %s: %v", event, err)
		}
		var env serverEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("Skipping unparseable frame: %v", err)
			continue
		}
		if env.Event == event {
			return env
		}
		log.Printf("  (skipping %s)", env.Event)
	}
}

func runGameFlow(ctx context.Context, conn *websocket.Conn, turns int) {
	// The server greets every new connection with a state push
	waitFor(ctx, conn, "game_state")

	log.Println("Starting game with 2 players")
	send(ctx, conn, "start_game", map[string]any{
		"players": []map[string]any{
			{"id": 1, "name": "Sim Player 1", "color": "#FF0000"},
			{"id": 2, "name": "Sim Player 2", "color": "#0000FF"},
		},
		"board_size": 100,
	})
	waitFor(ctx, conn, "game_started")

	for turn := 0; turn < turns; turn++ {
		currentPlayer := (turn % 2) + 1
		dice := rand.IntN(6) + 1
		log.Printf("Turn %d: player %d rolls %d", turn+1, currentPlayer, dice)

		send(ctx, conn, "dice_rolled", map[string]any{
			"player_id": currentPlayer,
			"value":     dice,
		})
		env := waitFor(ctx, conn, "player_moved")

		var move moveBroadcast
		if err := json.Unmarshal(env.Data, &move); err == nil {
			log.Printf("  %s: %d -> %d (%s)", move.PlayerName, move.OldPosition, move.NewPosition, move.EventType)
		}

		send(ctx, conn, "end_turn", map[string]any{"player_id": currentPlayer})
		waitFor(ctx, conn, "turn_changed")
	}

	send(ctx, conn, "get_state", map[string]any{})
	env := waitFor(ctx, conn, "game_state")
	log.Printf("Final state: %s", env.Data)
	log.Println("Simulation complete")
}

func runControllerSim(ctx context.Context, conn *websocket.Conn) {
	waitFor(ctx, conn, "game_state")

	// Identifying as the hardware promotes this connection to controller
	log.Println("Identifying as ESP32 controller")
	send(ctx, conn, "esp32_status", map[string]any{
		"client_type":   "esp32",
		"wifi_strength": -45,
		"errors":        []string{},
	})

	time.Sleep(time.Second)
	log.Println("Pressing roll_dice button")
	send(ctx, conn, "button_pressed", map[string]any{
		"button_id": "roll_dice",
		"player_id": 1,
	})

	// Print whatever the server sends until it goes quiet
	for {
		readCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		_, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			log.Printf("No more traffic, stopping: %v", err)
			return
		}
		log.Printf("Received: %s", data)
	}
}
