package realtime

import (
	"sync"

	"github.com/freelance-hub/internal/metrics"
	"go.uber.org/zap"
)

// Hub tracks the sockets connected to this process and the rooms they joined.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	log   *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{}), log: log}
}

// Register adds c to rooms.
func (h *Hub) Register(c *Client, rooms ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range rooms {
		h.join(c, r)
	}
	metrics.Connections.Inc()
}

// Unregister removes c from every room and closes its send buffer.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	for r := range c.rooms {
		h.leave(c, r)
	}
	c.closed = true
	close(c.send)
	metrics.Connections.Dec()
}

func (h *Hub) join(c *Client, room string) {
	set, ok := h.rooms[room]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[room] = set
	}
	set[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) leave(c *Client, room string) {
	if set, ok := h.rooms[room]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Deliver applies a frame to the local sockets. Payloads are enqueued without
// blocking; a socket whose buffer is full misses the event.
func (h *Hub) Deliver(f Frame) {
	if f.Join != "" || f.Leave != "" {
		h.mu.Lock()
		for c := range h.rooms[f.Room] {
			if f.Join != "" {
				h.join(c, f.Join)
			}
			if f.Leave != "" {
				h.leave(c, f.Leave)
			}
		}
		h.mu.Unlock()
	}
	if len(f.Payload) == 0 {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[f.Room] {
		select {
		case c.send <- []byte(f.Payload):
			metrics.EventsDelivered.WithLabelValues(f.Event).Inc()
		default:
			metrics.EventsDropped.Inc()
			h.log.Debug("socket buffer full, dropping event",
				zap.String("user_id", c.UserID), zap.String("event", f.Event))
		}
	}
}

// RoomSize returns how many local sockets are in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
