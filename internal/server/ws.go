package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/livecheck/internal/liveness"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	clientBuffer = 16
	writeWait    = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Message is one websocket frame sent to clients.
type Message struct {
	Kind   string           `json:"kind"` // "event" or "status"
	Event  *liveness.Event  `json:"event,omitempty"`
	Status *liveness.Status `json:"status,omitempty"`
}

// Hub pushes liveness events to websocket clients. It implements
// liveness.Listener; HandleEvent never blocks on a slow client.
type Hub struct {
	clients  map[*client]struct{}
	mu       sync.RWMutex
	snapshot func() liveness.Status
	logger   *zap.Logger
	closed   bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub. snapshot, if set, is sent to each client on
// connect so it starts from the current state.
func NewHub(snapshot func() liveness.Status, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:  make(map[*client]struct{}),
		snapshot: snapshot,
		logger:   logger.Named("ws"),
	}
}

// HandleEvent broadcasts e to every connected client.
func (h *Hub) HandleEvent(e liveness.Event) {
	h.Broadcast(Message{Kind: "event", Event: &e})
}

// Broadcast sends msg to every connected client. Clients whose buffer is
// full miss the message.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("marshal message", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("client too slow, dropping message")
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	if h.snapshot != nil {
		st := h.snapshot()
		if data, err := json.Marshal(Message{Kind: "status", Status: &st}); err == nil {
			c.send <- data
		}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)

	// Reads only detect disconnects; clients have nothing to say.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("websocket write", zap.Error(err))
			h.remove(c)
			// Drain until remove closes the channel.
			for range c.send {
			}
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
