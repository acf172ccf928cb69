package progress

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	shared "github.com/filiksyos/AI-pull-up-counter/pkg"
)

var upgrader = websocket.Upgrader{
	// The server only talks to its own frontend, served from the same
	// origin or localhost during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans progress updates out to every connected WebSocket client.
// It implements the progress sink consumed by Manager.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

// ServeHTTP upgrades the request and keeps the connection registered
// until the client goes away. Inbound messages are drained and ignored;
// the socket is push-only.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	h.logger.Info("WebSocket connected", "total_connections", n)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(conn)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
		h.logger.Info("WebSocket disconnected", "total_connections", len(h.conns))
	}
	h.mu.Unlock()
}

// Publish broadcasts one update to all connected clients. Clients that
// fail to receive are dropped.
func (h *Hub) Publish(ctx context.Context, u shared.ProgressUpdate) error {
	payload, err := json.Marshal(u)
	if err != nil {
		return err
	}

	h.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("Failed to send progress to client", "error", err)
			h.remove(c)
		}
	}
	return nil
}

// Close disconnects every client, typically during server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.conns {
		c.Close()
	}
	h.conns = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()
}
