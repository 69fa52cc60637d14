// Package stream pushes analytics findings to websocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ran-analytics/internal/metrics"
	"ran-analytics/internal/models"
)

const (
	MessageAnomaly        = "anomaly"
	MessageRecommendation = "recommendation"
)

// Message is the envelope written to subscribers.
type Message struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Hub maintains active websocket connections and broadcasts findings.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates a hub. allowedOrigins of ["*"] or empty accepts any origin.
func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
				return true
			}
			return slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Run serves register, unregister and broadcast requests until ctx is done,
// then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		h.mu.Unlock()
		metrics.StreamClients.Set(0)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.StreamClients.Set(float64(n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.StreamClients.Set(float64(n))

		case message := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// slow subscriber
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) PublishAnomaly(a models.AnomalyResult) {
	h.publish(MessageAnomaly, a.DetectedAt, a)
}

func (h *Hub) PublishRecommendation(r models.RecommendationResult) {
	h.publish(MessageRecommendation, r.GeneratedAt, r)
}

// publish never blocks the caller; messages are dropped when the hub is
// saturated or stopped.
func (h *Hub) publish(kind string, at time.Time, data any) {
	payload, err := json.Marshal(Message{Type: kind, Timestamp: at, Data: data})
	if err != nil {
		h.logger.Error("failed to encode stream message", zap.String("type", kind), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	case <-h.done:
	default:
		h.logger.Warn("stream broadcast buffer full, dropping message", zap.String("type", kind))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches a subscriber.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(h, conn, uuid.NewString())
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()

	h.logger.Debug("stream client connected", zap.String("client_id", c.id))
}
