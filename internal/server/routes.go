package server

import (
	"context"
	"encoding/json"
	"log"
	"math/rand/v2"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

func (s *Server) RegisterRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/websocket", s.websocketHandler)

	return s.corsMiddleware(mux)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := s.engine.Snapshot()
	resp, err := json.Marshal(map[string]interface{}{
		"status":               "ok",
		"connections":          s.connectionManager.Count(),
		"controller_connected": s.connectionManager.HasController(),
		"game_started":         snapshot.GameStarted,
	})
	if err != nil {
		http.Error(w, "Failed to marshal health check response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// websocketHandler runs the per-connection loop: register, push the
// current game state to the new peer, then read frames until the
// connection closes. Malformed frames are logged and skipped; the
// connection stays open.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()

	connectionID := uuid.New().String()
	log.Printf("New connection: %s", connectionID)
	s.connectionManager.Add(connectionID, socket)
	defer func() {
		s.connectionManager.Remove(connectionID)
		s.rateLimiter.RemoveConnection(connectionID)
		s.health.RemoveConnection(connectionID)
		log.Printf("Connection closed: %s", connectionID)
	}()

	// New peers immediately get the full state, targeted, not broadcast
	if err := s.connectionManager.SendTo(ctx, socket, EventGameState, s.engine.Snapshot()); err != nil {
		log.Printf("Failed to send initial state to %s: %v", connectionID, err)
		return
	}

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			log.Printf("Connection %s read error: %v", connectionID, err)
			return
		}

		if msgType != websocket.MessageText {
			log.Printf("Non-text input from %s", connectionID)
			continue
		}

		s.health.UpdateActivity(connectionID)

		if !s.rateLimiter.Allow(connectionID) {
			log.Printf("Rate limit exceeded for %s, dropping message", connectionID)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Invalid JSON from %s: %v", connectionID, err)
			continue
		}

		// A peer declaring itself as the board hardware becomes the
		// controller for the rest of its lifetime.
		if len(msg.Data) > 0 {
			var probe struct {
				ClientType string `json:"client_type"`
			}
			if err := json.Unmarshal(msg.Data, &probe); err == nil && probe.ClientType == string(KindController) {
				s.connectionManager.Promote(connectionID)
			}
		}

		s.route(ctx, connectionID, socket, msg)
	}
}

// route dispatches one inbound message to its handler. Handlers run
// under the server-wide mutex: each mutate-then-broadcast sequence
// completes before the next message from any connection is processed.
func (s *Server) route(ctx context.Context, connectionID string, socket Conn, msg ClientMessage) {
	log.Printf("Event '%s' from %s", msg.Event, connectionID)

	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()

	switch msg.Event {
	case EventStartGame:
		s.handleStartGame(msg.Data)
	case EventDiceRolled:
		s.handleDiceRolled(msg.Data)
	case EventEndTurn:
		s.handleEndTurn(msg.Data)
	case EventButtonPressed:
		s.handleButtonPressed(msg.Data)
	case EventControllerStatus:
		s.handleControllerStatus(msg.Data)
	case EventGetState:
		s.handleGetState(ctx, connectionID, socket)
	default:
		log.Printf("Unknown event '%s' from %s, dropping", msg.Event, connectionID)
	}
}

// handleStartGame resets the session to a fresh game with the supplied
// roster and broadcasts the new state.
func (s *Server) handleStartGame(payload json.RawMessage) {
	var req StartGameRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Printf("Invalid start_game payload: %v", err)
		return
	}

	s.engine.Reset(req.Players, req.BoardSize)
	log.Printf("Game started with %d players", len(req.Players))

	if err := s.recorder.RecordGameStart(context.Background(), req.Players, req.BoardSize); err != nil {
		log.Printf("Failed to record game start: %v", err)
	}

	s.connectionManager.Broadcast(EventGameStarted, s.engine.Snapshot())
}

// handleDiceRolled applies a roll for the current player. Rolls from
// anyone else are dropped with a warning: clients infer rejection from
// the absence of a player_moved broadcast.
func (s *Server) handleDiceRolled(payload json.RawMessage) {
	var req DiceRolledRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Printf("Invalid dice_rolled payload: %v", err)
		return
	}

	s.applyDiceRoll(req)
}

func (s *Server) applyDiceRoll(req DiceRolledRequest) {
	if req.PlayerID != s.engine.CurrentPlayer() {
		log.Printf("Ignoring roll from player %d, not their turn", req.PlayerID)
		return
	}

	result, err := s.engine.MovePlayer(req.PlayerID, req.Value)
	if err != nil {
		log.Printf("Ignoring roll: %v", err)
		return
	}

	if err := s.recorder.RecordMove(context.Background(), result); err != nil {
		log.Printf("Failed to record move: %v", err)
	}

	s.connectionManager.Broadcast(EventPlayerMoved, result)

	s.connectionManager.SendToController(MovePieceCommand{
		Command:      CommandMovePiece,
		PlayerID:     result.PlayerID,
		FromPosition: result.OldPosition,
		ToPosition:   result.NewPosition,
	})

	if result.Won {
		log.Printf("Player %d (%s) won after %d moves", result.PlayerID, result.PlayerName, result.TotalMoves)
		if err := s.recorder.RecordWinner(context.Background(), result.PlayerID); err != nil {
			log.Printf("Failed to record winner: %v", err)
		}
		s.connectionManager.Broadcast(EventPlayerWon, PlayerWonNotification{
			PlayerID:   result.PlayerID,
			PlayerName: result.PlayerName,
			TotalMoves: result.TotalMoves,
		})
	}
}

// handleEndTurn rotates the turn to the next player and tells the
// controller to highlight them.
func (s *Server) handleEndTurn(payload json.RawMessage) {
	var req EndTurnRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Printf("Invalid end_turn payload: %v", err)
		return
	}

	if req.PlayerID != s.engine.CurrentPlayer() {
		log.Printf("Ignoring end_turn from player %d, not their turn", req.PlayerID)
		return
	}

	next, err := s.engine.NextTurn()
	if err != nil {
		log.Printf("Cannot advance turn: %v", err)
		return
	}

	s.connectionManager.Broadcast(EventTurnChanged, TurnChangedNotification{
		CurrentPlayer: next,
		TurnNumber:    s.engine.TurnNumber(),
	})

	color, err := s.engine.PlayerColor(next)
	if err != nil {
		log.Printf("Cannot highlight player %d: %v", next, err)
		return
	}
	s.connectionManager.SendToController(HighlightPlayerCommand{
		Command:  CommandHighlightPlayer,
		PlayerID: next,
		Color:    color,
	})
}

// handleButtonPressed turns a physical roll_dice press into a dice roll
// for the pressing player.
func (s *Server) handleButtonPressed(payload json.RawMessage) {
	var req ButtonPressedRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Printf("Invalid button_pressed payload: %v", err)
		return
	}

	log.Printf("Button '%s' pressed by player %d", req.ButtonID, req.PlayerID)

	if req.ButtonID == "roll_dice" {
		s.applyDiceRoll(DiceRolledRequest{
			PlayerID: req.PlayerID,
			Value:    rand.IntN(6) + 1,
		})
	}
}

// handleControllerStatus logs hardware telemetry. No state changes.
func (s *Server) handleControllerStatus(payload json.RawMessage) {
	var req ControllerStatusRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Printf("Invalid esp32_status payload: %v", err)
		return
	}

	log.Printf("Controller status: WiFi %d dBm", req.WifiStrength)
	if len(req.Errors) > 0 {
		log.Printf("Controller reported errors: %v", req.Errors)
	}
}

// handleGetState pushes the current snapshot to the requesting
// connection only.
func (s *Server) handleGetState(ctx context.Context, connectionID string, socket Conn) {
	if err := s.connectionManager.SendTo(ctx, socket, EventGameState, s.engine.Snapshot()); err != nil {
		log.Printf("Failed to send state to %s: %v", connectionID, err)
	}
}
