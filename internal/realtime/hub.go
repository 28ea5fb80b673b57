// Package realtime pushes changelog entries to connected browsers over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"inventar-backend/internal/models"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 32
)

// Event is the message sent to clients
type Event struct {
	Type  string                 `json:"type"`
	Entry *models.ChangelogEntry `json:"entry"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans changelog entries out to websocket clients. A client whose buffer
// is full is disconnected instead of slowing down the others.
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[*client]bool
	clientsMux sync.Mutex
	broadcast  chan []byte
}

func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		clients:   make(map[*client]bool),
		broadcast: make(chan []byte, 256),
	}
}

// Run delivers broadcasts until ctx is done, then closes all clients
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.clientsMux.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.clientsMux.Unlock()
			return
		case msg := <-h.broadcast:
			h.clientsMux.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.clientsMux.Unlock()
		}
	}
}

// ChangelogAppended queues the entry for all clients; it never blocks the caller
func (h *Hub) ChangelogAppended(entry *models.ChangelogEntry) {
	msg, err := json.Marshal(Event{Type: "changelog", Entry: entry})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		log.WithField("component", "realtime").Warn("broadcast queue full, dropping changelog event")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and registers the connection
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithField("component", "realtime").WithError(err).Debug("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.clientsMux.Lock()
	h.clients[c] = true
	h.clientsMux.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and notices disconnects
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}
