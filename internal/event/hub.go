package event

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientConn is the connection surface the hub needs from a client.
type ClientConn interface {
	ID() string
	WorkspaceID() int32
	Send(data []byte) error
	Close() error
}

// Publisher is what services see: fire-and-forget workspace broadcast.
type Publisher interface {
	Publish(workspaceID int32, event Event)
}

// NoOpPublisher is a publisher that does nothing (tests, WebSocket disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (NoOpPublisher) Publish(workspaceID int32, event Event) {}

// Hub manages WebSocket connections organized by workspace.
// It is safe for concurrent use.
type Hub struct {
	workspaces map[int32]map[string]ClientConn
	mu         sync.RWMutex
}

var _ Publisher = (*Hub)(nil)

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{workspaces: make(map[int32]map[string]ClientConn)}
}

// Register adds a client to the hub under its workspace
func (h *Hub) Register(client ClientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	workspaceID := client.WorkspaceID()
	if h.workspaces[workspaceID] == nil {
		h.workspaces[workspaceID] = make(map[string]ClientConn)
	}
	h.workspaces[workspaceID][client.ID()] = client

	log.Debug().
		Int32("workspace_id", workspaceID).
		Str("client_id", client.ID()).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	workspaceID := client.WorkspaceID()
	clients, ok := h.workspaces[workspaceID]
	if !ok {
		return
	}
	if _, exists := clients[client.ID()]; !exists {
		return
	}
	delete(clients, client.ID())
	if len(clients) == 0 {
		delete(h.workspaces, workspaceID)
	}

	log.Debug().
		Int32("workspace_id", workspaceID).
		Str("client_id", client.ID()).
		Msg("WebSocket client unregistered")
}

// Publish implements Publisher by broadcasting to the workspace's clients.
func (h *Hub) Publish(workspaceID int32, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Int32("workspace_id", workspaceID).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	clients, ok := h.workspaces[workspaceID]
	if !ok || len(clients) == 0 {
		h.mu.RUnlock()
		return
	}
	// Copy clients to avoid holding the lock during sends.
	clientsCopy := make([]ClientConn, 0, len(clients))
	for _, client := range clients {
		clientsCopy = append(clientsCopy, client)
	}
	h.mu.RUnlock()

	for _, client := range clientsCopy {
		go func(c ClientConn) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Int32("workspace_id", workspaceID).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}
}

// ClientCount returns the number of clients connected to a workspace
func (h *Hub) ClientCount(workspaceID int32) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.workspaces[workspaceID])
}
