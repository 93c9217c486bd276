// Package realtime pushes store change events to dashboards over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-router/internal/domain"
	"github.com/spec-kit/helpdesk-router/internal/events"
)

const clientBuffer = 64

type client struct {
	send        chan []byte
	collections map[domain.Collection]bool
	// dropped is set by the hub before send is closed for a slow client.
	dropped bool
}

type messageWriter interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// pump writes queued messages until send is closed or a write fails, then
// closes the connection so the peer's read fails and it can reconnect.
func (c *client) pump(conn messageWriter) {
	defer conn.Close()
	for msg := range c.send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	if c.dropped {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "client too slow"))
	}
}

func (c *client) wants(collection domain.Collection) bool {
	return len(c.collections) == 0 || c.collections[collection]
}

// Hub tracks connected websocket clients and broadcasts de-duplicated
// change events to them. Clients that fall behind are disconnected.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	dedupe  *events.Deduper
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		dedupe:  events.NewDeduper(0),
		logger:  logger,
	}
}

// Attach subscribes the hub to every collection on feed.
func (h *Hub) Attach(feed *events.Feed) {
	feed.SubscribeAll(h.handle)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) handle(_ context.Context, event domain.ChangeEvent) error {
	if !h.dedupe.Accept(event) {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.broadcast(event.Collection, data)
	return nil
}

func (h *Hub) broadcast(collection domain.Collection, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(collection) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Warn("dropping slow websocket client")
			delete(h.clients, c)
			c.dropped = true
			close(c.send)
		}
	}
}

func (h *Hub) register(collections []string) *client {
	c := &client{send: make(chan []byte, clientBuffer)}
	for _, name := range collections {
		if name = strings.TrimSpace(name); name != "" {
			if c.collections == nil {
				c.collections = make(map[domain.Collection]bool)
			}
			c.collections[domain.Collection(name)] = true
		}
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// Upgrade rejects requests that are not websocket upgrades.
func Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler serves GET /ws/changes. The optional collections query parameter
// restricts the stream to a comma separated list of collections.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *Hub) serve(conn *websocket.Conn) {
	c := h.register(strings.Split(conn.Query("collections"), ","))
	h.logger.Debug("websocket client connected", zap.Int("clients", h.Clients()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.pump(conn)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.unregister(c)
	<-done
	h.logger.Debug("websocket client disconnected", zap.Int("clients", h.Clients()))
}
