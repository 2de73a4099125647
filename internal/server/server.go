package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"snakes-server/internal/game"
	"snakes-server/internal/history"
)

const defaultPort = 5001

// How many messages a single connection may send per second. The game
// is turn-based; even the controller's status stream stays far below
// this.
const (
	rateLimitMessages = 20
	rateLimitWindow   = time.Second
)

// Server wires the game engine, the connection registry and the
// optional move recorder together. One Server owns exactly one game
// session for the lifetime of the process.
type Server struct {
	port              int
	engine            *game.Engine
	connectionManager *ConnectionManager
	rateLimiter       *RateLimiter
	health            *ConnectionHealth
	recorder          *history.Recorder

	// Serializes handler execution so each mutate-then-broadcast sequence
	// runs to completion before the next inbound message is processed.
	handlerMu sync.Mutex
}

func NewServer() (*Server, *http.Server) {
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = defaultPort
	}

	// Move history is optional: without DATABASE_URL the recorder stays
	// nil and every record call is a no-op.
	var recorder *history.Recorder
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		var err error
		recorder, err = history.Open(databaseURL, "./db/migrations")
		if err != nil {
			log.Printf("Warning: move history disabled: %v", err)
		} else {
			log.Println("Move history recording enabled")
		}
	}

	s := &Server{
		port:              port,
		engine:            game.NewEngine(),
		connectionManager: NewConnectionManager(),
		rateLimiter:       NewRateLimiter(rateLimitMessages, rateLimitWindow),
		health:            NewConnectionHealth(),
		recorder:          recorder,
	}

	go s.connectionMonitor()

	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.port),
		Handler:     s.RegisterRoutes(),
		IdleTimeout: time.Minute,
		ReadTimeout: 10 * time.Second,
	}

	return s, httpServer
}

// connectionMonitor periodically reports peers that have gone silent.
// The transport defines no heartbeat, so this is observability only;
// silent web clients are legitimate and are never force-closed.
func (s *Server) connectionMonitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		for _, id := range s.health.InactiveConnections(5 * time.Minute) {
			kind, _ := s.connectionManager.Kind(id)
			log.Printf("Connection %s (%s) silent for over 5 minutes", id, kind)
		}
	}
}

// Shutdown closes all peer connections and the history database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.connectionManager.CloseAll("Server shutting down")

	if err := s.recorder.Close(); err != nil {
		return fmt.Errorf("failed to close history recorder: %w", err)
	}
	return nil
}
