// Package events fans session changes out to the SSE connections of the
// affected identity, locally or across API instances through redis.
package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dimitrije/jobboard-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Publisher accepts session changes for delivery.
type Publisher interface {
	Publish(ctx context.Context, change models.SessionChange) error
}

type Client struct {
	ID         string
	IdentityID uuid.UUID
	Send       chan []byte
}

func NewClient(identityID uuid.UUID) *Client {
	return &Client{
		ID:         uuid.New().String(),
		IdentityID: identityID,
		Send:       make(chan []byte, 64),
	}
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan models.SessionChange
	done       chan struct{}
	mu         sync.RWMutex
	logger     zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.SessionChange, 256),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "events").Logger(),
	}
}

// Run processes registrations and broadcasts until ctx is done. Remaining
// clients have their Send channel closed on exit.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.mu.Lock()
		for id, client := range h.clients {
			delete(h.clients, id)
			close(client.Send)
		}
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case change := <-h.broadcast:
			h.deliver(change)
		}
	}
}

func (h *Hub) deliver(change models.SessionChange) {
	data, err := json.Marshal(change)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode session change")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.IdentityID != change.IdentityID {
			continue
		}
		select {
		case client.Send <- data:
		default:
			h.logger.Warn().Str("client_id", client.ID).Str("type", change.Type).Msg("client buffer full, dropping session change")
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues change for the local clients of change.IdentityID.
func (h *Hub) Publish(ctx context.Context, change models.SessionChange) error {
	select {
	case h.broadcast <- change:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) ClientCount(identityID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, client := range h.clients {
		if client.IdentityID == identityID {
			n++
		}
	}
	return n
}
