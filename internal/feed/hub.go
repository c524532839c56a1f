// Package feed streams serialized telegrams to websocket clients and
// serves the most recent document over plain HTTP.
package feed

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	// The feed is read-only local telemetry; any origin may watch it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans serialized telegrams out to attached websocket clients and
// remembers the latest document.
type Hub struct {
	log     logrus.FieldLogger
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	latest  []byte
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Broadcast stores doc as the latest document and writes it to every
// attached client. Clients whose write fails are dropped.
func (h *Hub) Broadcast(doc []byte) {
	h.mu.Lock()
	h.latest = append([]byte(nil), doc...)
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.WriteMessage(websocket.TextMessage, doc); err != nil {
			h.log.WithError(err).Debug("dropping websocket client")
			h.remove(c)
		}
	}
}

// Latest returns a copy of the most recent document, or nil before the
// first broadcast.
func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return nil
	}
	return append([]byte(nil), h.latest...)
}

// ClientCount returns the number of attached websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches the client until it hangs up.
// A client that attaches after the first telegram is greeted with the
// latest document right away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	// The greeting goes out before the conn joins the broadcast set;
	// once attached, Broadcast is the conn's only writer.
	if latest := h.Latest(); latest != nil {
		if err := conn.WriteMessage(websocket.TextMessage, latest); err != nil {
			conn.Close()
			return
		}
	}

	h.add(conn)
	h.log.WithField("remote", conn.RemoteAddr().String()).Debug("websocket client attached")

	// Drain the client until it disconnects; the feed never reads payloads.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(conn)
			return
		}
	}
}

// ServeLatest writes the most recent document, or 404 before the first
// telegram.
func (h *Hub) ServeLatest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	latest := h.Latest()
	if latest == nil {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"no telegram received yet"}`))
		return
	}
	w.Write(latest)
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}
