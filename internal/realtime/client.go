package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 64

	inboundRate  = 10
	inboundBurst = 20
)

// ErrRateLimited is reported to a socket that sends faster than allowed.
var ErrRateLimited = errors.New("too many events")

// EventHandler processes one inbound envelope for a client.
type EventHandler func(ctx context.Context, c *Client, env Envelope) error

// Client is one websocket connection. The hub owns rooms and closed; both
// are guarded by the hub mutex.
type Client struct {
	UserID string
	Role   string

	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	rooms   map[string]struct{}
	closed  bool
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewClient(h *Hub, conn *websocket.Conn, userID, role string, log *zap.Logger) *Client {
	return &Client{
		UserID:  userID,
		Role:    role,
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		rooms:   make(map[string]struct{}),
		limiter: rate.NewLimiter(rate.Limit(inboundRate), inboundBurst),
		log:     log.With(zap.String("user_id", userID)),
	}
}

// Send enqueues an event for this socket only.
func (c *Client) Send(event string, data any) {
	b, err := Encode(event, data)
	if err != nil {
		c.log.Warn("encode socket event", zap.String("event", event), zap.Error(err))
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		c.log.Debug("socket buffer full, dropping event", zap.String("event", event))
	}
}

// ReadPump reads envelopes until the connection fails, passing each to handle.
// It unregisters the client on exit.
func (c *Client) ReadPump(ctx context.Context, handle EventHandler) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Info("socket read failed", zap.Error(err))
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.Send(EventError, errorPayload("", "malformed event"))
			continue
		}
		if !c.limiter.Allow() {
			c.Send(EventError, errorPayload(env.Event, ErrRateLimited.Error()))
			continue
		}
		if err := handle(ctx, c, env); err != nil {
			c.Send(EventError, errorPayload(env.Event, err.Error()))
		}
	}
}

// WritePump drains the send buffer to the connection and keeps it alive with
// pings. It returns when the buffer is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("socket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func errorPayload(event, msg string) map[string]string {
	p := map[string]string{"error": msg}
	if event != "" {
		p["event"] = event
	}
	return p
}
