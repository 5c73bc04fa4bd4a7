package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"myhome-bridge/internal/domain/model"
)

const (
	wsSendBufferSize = 64
	wsPingInterval   = 30 * time.Second
	wsPongWait       = 10 * time.Second
)

// wsEvent is pushed to clients on every published state.
type wsEvent struct {
	Type      string            `json:"type"`
	Timestamp string            `json:"timestamp"`
	Payload   model.EntityState `json:"payload"`
}

var errHubClosed = errors.New("websocket hub closed")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type wsHub struct {
	logger zerolog.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	closed  bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newWSHub(logger zerolog.Logger) *wsHub {
	return &wsHub{logger: logger, clients: make(map[*wsClient]struct{})}
}

func (h *wsHub) register(c *wsClient) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errHubClosed
	}
	h.clients[c] = struct{}{}
	return nil
}

// unregister closes the send channel once, whoever gets here first.
func (h *wsHub) unregister(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		close(c.send)
	}
}

func (h *wsHub) broadcast(st model.EntityState) {
	data, err := json.Marshal(wsEvent{
		Type:      "state_changed",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   st,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("marshalling websocket event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn().Msg("websocket client too slow, dropping event")
		}
	}
}

func (h *wsHub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *wsHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, wsSendBufferSize)}
	if err := s.hub.register(c); err != nil {
		conn.Close()
		return
	}

	// Initial snapshot
	for _, e := range s.bridge.Entities() {
		st := e.State()
		data, _ := json.Marshal(wsEvent{Type: "state", Timestamp: time.Now().UTC().Format(time.RFC3339), Payload: st})
		select {
		case c.send <- data:
		default:
		}
	}

	go c.writePump()
	go c.readPump(s.hub)
}

// readPump only drains control frames; clients do not send commands.
func (c *wsClient) readPump(h *wsHub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPingInterval + wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsPongWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsPongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
