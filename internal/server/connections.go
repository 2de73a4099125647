package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/coder/websocket"
)

// Conn is the slice of a websocket connection the registry needs.
// *websocket.Conn satisfies it; tests substitute fakes.
type Conn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// ClientKind classifies a connection. Every connection starts as a web
// client; the only allowed transition is web → controller, when a peer
// identifies itself as the board hardware.
type ClientKind string

const (
	KindWeb        ClientKind = "web"
	KindController ClientKind = "esp32"
)

// ConnectionManager tracks all live connections plus the single
// distinguished controller connection. At most one controller exists at
// a time; a newly promoted controller displaces the previous reference
// without closing the old connection.
type ConnectionManager struct {
	connections  map[string]Conn
	kinds        map[string]ClientKind
	controllerID string
	mu           sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]Conn),
		kinds:       make(map[string]ClientKind),
	}
}

// Add registers a connection as a web client.
func (cm *ConnectionManager) Add(id string, conn Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[id] = conn
	cm.kinds[id] = KindWeb
	log.Printf("Connection %s registered (%d active)", id, len(cm.connections))
}

// Promote reclassifies a web connection as the controller. The previous
// controller, if any, stays registered as a plain connection but is no
// longer addressed by SendToController.
func (cm *ConnectionManager) Promote(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.connections[id]; !ok {
		log.Printf("Cannot promote unknown connection %s", id)
		return
	}
	if cm.kinds[id] == KindController {
		return
	}

	if cm.controllerID != "" && cm.controllerID != id {
		log.Printf("Controller %s displaced by %s", cm.controllerID, id)
		cm.kinds[cm.controllerID] = KindWeb
	}

	cm.kinds[id] = KindController
	cm.controllerID = id
	log.Printf("Connection %s promoted to controller", id)
}

// Remove drops a connection from the registry. If it was the
// controller, the controller reference is cleared.
func (cm *ConnectionManager) Remove(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.removeLocked(id)
}

func (cm *ConnectionManager) removeLocked(id string) {
	if _, ok := cm.connections[id]; !ok {
		return
	}
	delete(cm.connections, id)
	delete(cm.kinds, id)
	if cm.controllerID == id {
		cm.controllerID = ""
		log.Printf("Controller %s disconnected", id)
	}
	log.Printf("Connection %s removed (%d active)", id, len(cm.connections))
}

// Kind returns the classification of a connection.
func (cm *ConnectionManager) Kind(id string) (ClientKind, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	kind, ok := cm.kinds[id]
	return kind, ok
}

// Count returns the number of live connections.
func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// HasController reports whether a controller is currently connected.
func (cm *ConnectionManager) HasController() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.controllerID != ""
}

// Broadcast serializes the event once and sends it to every live
// connection. Peers whose send fails are pruned after the sweep, so one
// bad peer never blocks delivery to the rest. Broadcasting with no
// connections is a logged no-op.
func (cm *ConnectionManager) Broadcast(event EventType, data interface{}) {
	payload, err := json.Marshal(newServerEvent(event, data))
	if err != nil {
		log.Printf("Failed to marshal %s broadcast: %v", event, err)
		return
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if len(cm.connections) == 0 {
		log.Printf("No active connections for %s broadcast", event)
		return
	}

	var failed []string
	for id, conn := range cm.connections {
		if err := conn.Write(context.Background(), websocket.MessageText, payload); err != nil {
			log.Printf("Broadcast to %s failed: %v", id, err)
			failed = append(failed, id)
		}
	}

	for _, id := range failed {
		cm.removeLocked(id)
	}
}

// SendToController sends a command to the controller connection. With
// no controller present this is a logged no-op. On a failed send only
// the controller reference is cleared; the connection itself stays
// registered until its read loop notices the closure.
func (cm *ConnectionManager) SendToController(command interface{}) {
	payload, err := json.Marshal(command)
	if err != nil {
		log.Printf("Failed to marshal controller command: %v", err)
		return
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.controllerID == "" {
		log.Println("No controller connected, dropping command")
		return
	}

	conn := cm.connections[cm.controllerID]
	if err := conn.Write(context.Background(), websocket.MessageText, payload); err != nil {
		log.Printf("Send to controller %s failed: %v", cm.controllerID, err)
		cm.kinds[cm.controllerID] = KindWeb
		cm.controllerID = ""
	}
}

// SendTo delivers an event to a single connection, outside of any
// broadcast. Used for the targeted game_state push.
func (cm *ConnectionManager) SendTo(ctx context.Context, conn Conn, event EventType, data interface{}) error {
	payload, err := json.Marshal(newServerEvent(event, data))
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, payload)
}

// CloseAll closes every connection, used during shutdown.
func (cm *ConnectionManager) CloseAll(reason string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for id, conn := range cm.connections {
		if err := conn.Close(websocket.StatusGoingAway, reason); err != nil {
			log.Printf("Failed to close connection %s: %v", id, err)
		}
	}
	cm.connections = make(map[string]Conn)
	cm.kinds = make(map[string]ClientKind)
	cm.controllerID = ""
}
