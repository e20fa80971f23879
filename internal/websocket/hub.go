package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/comprai/comprai/internal/model"
)

// Message is a realtime sync event scoped to one list. Item events carry the
// full row so subscribers can apply it to their local mirror without a
// refetch.
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ListID int64          `json:"list_id"`
	ID     int64          `json:"id,omitempty"`
	Item   *model.Item    `json:"item,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a Message with the Type field derived from entity and action.
func NewMessage(entity, action string, listID, id int64, item *model.Item) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ListID: listID,
		ID:     id,
		Item:   item,
	}
}

// Listener receives every published message in-process, regardless of list.
// The sync mirror registers as one.
type Listener interface {
	OnEvent(msg Message)
}

// Hub maintains the set of active WebSocket clients and routes each message
// to the clients subscribed to the message's list.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*Client]struct{}
	listeners []Listener
	logger    *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// AddListener registers an in-process listener.
func (h *Hub) AddListener(l Listener) {
	h.mu.Lock()
	h.listeners = append(h.listeners, l)
	h.mu.Unlock()
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish delivers a message to every client subscribed to its list, and to
// all in-process listeners.
func (h *Hub) Publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal publish", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, l := range h.listeners {
		l.OnEvent(msg)
	}

	for c := range h.clients {
		if !c.subscribed(msg.ListID) {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop the message instead of blocking
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
