package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/xelth-com/clamflow-labels/internal/logger"
	"github.com/xelth-com/clamflow-labels/internal/models"
)

// Hub fans label-format events out to every connected listener. All
// mutations of the client set happen on the Run goroutine; mu only guards
// readers such as ClientCount.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	joins  chan *Client
	leaves chan *Client
	events chan []byte
	done   chan struct{}

	log *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: map[string]*Client{},
		joins:   make(chan *Client),
		leaves:  make(chan *Client),
		events:  make(chan []byte, 64),
		done:    make(chan struct{}),
		log:     log,
	}
}

// Run serves the hub until ctx ends, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.joins:
			h.join(c)
		case c := <-h.leaves:
			h.leave(c)
		case msg := <-h.events:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) join(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if prev := h.clients[c.ID]; prev != nil {
		close(prev.send)
	}
	h.clients[c.ID] = c
	h.log.Debug("ws client connected", "client", c.ID)
}

func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	// a replaced connection must not evict its successor
	if h.clients[c.ID] != c {
		return
	}
	delete(h.clients, c.ID)
	close(c.send)
	h.log.Debug("ws client disconnected", "client", c.ID)
}

func (h *Hub) fanOut(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			delete(h.clients, id)
			close(c.send)
			h.log.Warn("ws client too slow, dropped", "client", id)
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
}

// Broadcast enqueues event without blocking. When the queue is full the
// event is logged and discarded.
func (h *Hub) Broadcast(event models.LabelFormatEvent) {
	msg, err := json.Marshal(event)
	if err != nil {
		h.log.Error("encode ws event", "type", event.Type, "error", err)
		return
	}
	select {
	case h.events <- msg:
	default:
		h.log.Warn("ws event queue full", "type", event.Type)
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.joins <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.leaves <- c:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
