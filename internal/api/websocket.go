package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/versoproject/verso/internal/logging"
)

// maxControlMessageSize bounds inbound control frames; they are tiny.
const maxControlMessageSize = 4096

// Control message types understood by the hub.
const (
	// ControlDeck announces which deck is being presented.
	ControlDeck = "deck"
	// ControlGoto moves every follower to a slide index.
	ControlGoto = "goto"
	// ControlBlank blanks follower screens.
	ControlBlank = "blank"
)

// ControlMessage is one presentation-sync frame. The operator's player
// publishes them; the hub fans them out to every follower screen.
type ControlMessage struct {
	Type       string `json:"type"`
	DeckKind   string `json:"deck_kind,omitempty"` // "song" or "session"
	DeckID     string `json:"deck_id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
	Index      int    `json:"index,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
}

// validType reports whether a frame type is one the hub relays.
func (m *ControlMessage) validType() bool {
	switch m.Type {
	case ControlDeck, ControlGoto, ControlBlank:
		return true
	}
	return false
}

// Client is one websocket connection registered with the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub relays presentation control frames between connected screens. It
// remembers the most recent frame so a follower that connects mid-song
// lands on the right slide immediately.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
	last       []byte
}

// NewHub creates a presentation hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run handles registration and broadcasting until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			last := h.last
			h.mu.Unlock()
			if last != nil {
				// Catch the new screen up to the current slide.
				select {
				case client.send <- last:
				default:
				}
			}
			logging.WebSocketEvent("client_connected", h.clientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logging.WebSocketEvent("client_disconnected", h.clientCount())

		case message := <-h.broadcast:
			h.mu.Lock()
			h.last = message
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// clientCount returns the number of connected screens.
func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish broadcasts a control frame to every connected screen.
func (h *Hub) Publish(msg ControlMessage) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error("failed to marshal control message", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		logging.Warn("control broadcast channel full, dropping message")
	}
}

// readPump reads control frames from one connection and republishes
// them. Malformed or unknown frames are dropped, not fatal.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxControlMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Error("websocket unexpected close", "error", err)
			}
			return
		}

		var msg ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Warn("dropping malformed control frame", "error", err)
			continue
		}
		if !msg.validType() {
			logging.Warn("dropping unknown control frame", "type", msg.Type)
			continue
		}
		c.hub.Publish(msg)
	}
}

// writePump writes queued frames and keeps the connection alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// upgrader accepts cross-origin connections; follower screens often run
// on other devices, and the API's key auth already gates the endpoint.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades a connection and registers it with the hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 64),
	}
	s.hub.register <- client

	go client.writePump()
	go client.readPump()
}
