package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Client struct {
	ID     string
	UserID uuid.UUID
	Role   string
	Conn   *WebSocketConn
	Send   chan []byte
}

type Hub struct {
	clients    map[string]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan []byte, 256),
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

// BroadcastJSON sends a payload to every connected socket regardless
// of user or role.
func (h *Hub) BroadcastJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Error("marshal broadcast payload")
		return
	}
	h.broadcast <- payload
}

// SendToUser delivers to every open socket of one user.
func (h *Hub) SendToUser(userID uuid.UUID, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		logrus.WithError(err).Error("marshal notification payload")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.UserID == userID {
			select {
			case client.Send <- payload:
			default:
				// full buffer, skip rather than block
			}
		}
	}
}

// SendToRole delivers to every connected user holding the role, e.g.
// all mechanics watching the pending pool.
func (h *Hub) SendToRole(role string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		logrus.WithError(err).Error("marshal notification payload")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		if client.Role == role {
			select {
			case client.Send <- payload:
			default:
			}
		}
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			logrus.WithFields(logrus.Fields{"client": client.ID, "user": client.UserID}).Debug("ws client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			if old, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(old.Send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			// write lock: slow consumers get dropped here
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.Send <- message:
				default:
					close(client.Send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}
