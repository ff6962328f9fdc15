// internal/realtime/hub.go
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
)

// Event is the envelope every websocket frame uses.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	EventNewMessage   = "new_message"
	EventOrderCreated = "order_created"
	EventOrderUpdated = "order_status_update"
	EventRoleChanged  = "role_changed"
)

type Client struct {
	ID     string
	UserID uuid.UUID
	Conn   *WebSocketConn
	Send   chan []byte
}

func NewClient(userID uuid.UUID, conn *WebSocketConn) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}
}

// Hub fans events out to every open socket of a user.
type Hub struct {
	clients    map[uuid.UUID]map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// Online reports whether userID holds at least one socket on this process.
func (h *Hub) Online(userID uuid.UUID) bool {
	if h == nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// SendToUser never blocks; a full client buffer drops the frame.
func (h *Hub) SendToUser(userID uuid.UUID, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("realtime: marshal %s: %v", ev.Type, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients[userID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[string]*Client)
			}
			h.clients[client.UserID][client.ID] = client
			h.mu.Unlock()
			log.Debugf("realtime: client %s registered for %s", client.ID, client.UserID)

		case client := <-h.unregister:
			h.mu.Lock()
			if conns, ok := h.clients[client.UserID]; ok {
				if old, ok := conns[client.ID]; ok {
					delete(conns, client.ID)
					close(old.Send)
				}
				if len(conns) == 0 {
					delete(h.clients, client.UserID)
				}
			}
			h.mu.Unlock()
			log.Debugf("realtime: client %s unregistered", client.ID)
		}
	}
}
