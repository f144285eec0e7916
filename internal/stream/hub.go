package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"codeberg.org/mutker/labdash/internal/bench"
	"codeberg.org/mutker/labdash/internal/errors"
	"codeberg.org/mutker/labdash/internal/logger"
	"github.com/gorilla/websocket"
)

const DefaultWriteTimeout = 200 * time.Millisecond

// Hub fans snapshots out to websocket clients: JSON text messages for
// snapshots, binary float32 messages for scope frames. A client that
// cannot keep up is dropped.
type Hub struct {
	upgrader     websocket.Upgrader
	writeTimeout time.Duration
	log          logger.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		writeTimeout: DefaultWriteTimeout,
		log:          log.With("hub"),
		conns:        make(map[*websocket.Conn]struct{}),
	}
}

func (*Hub) Name() string {
	return "websocket"
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.conns)
}

func (h *Hub) Publish(_ context.Context, snap *bench.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.New().Wrap(ErrPublish, err)
	}
	h.broadcast(websocket.TextMessage, data)

	return nil
}

func (h *Hub) PublishFrame(_ context.Context, frame bench.Frame) error {
	h.broadcast(websocket.BinaryMessage, EncodeFrame(frame.Samples))
	return nil
}

// ServeHTTP upgrades the request and keeps the client until it goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	h.add(conn)
	defer h.remove(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	for _, c := range h.snapshot() {
		h.remove(c)
	}
}

func (h *Hub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()

	h.log.Info().Str("remote", c.RemoteAddr().String()).Int("clients", n).Msg("Client connected")
}

func (h *Hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.conns[c]
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()

	if !ok {
		return
	}
	_ = c.Close()
	h.log.Info().Str("remote", c.RemoteAddr().String()).Int("clients", n).Msg("Client disconnected")
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		clients = append(clients, c)
	}

	return clients
}

func (h *Hub) broadcast(kind int, data []byte) {
	for _, c := range h.snapshot() {
		_ = c.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := c.WriteMessage(kind, data); err != nil {
			h.remove(c)
		}
	}
}
