package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"casepulse/internal/infrastructure"
)

const (
	writeWait = 10 * time.Second

	// Dashboards send nothing but control frames.
	maxMessageSize = 512

	sendBufferSize = 16
)

// Client is one connected dashboard. The hub owns send: it is the only
// writer and closes it when the client is dropped.
type Client struct {
	hub  *Hub
	conn Connection
	send chan []byte

	id          string
	remoteAddr  string
	connectedAt time.Time

	// carries the trace id of the upgrade request
	ctx    context.Context
	logger *slog.Logger
}

// NewClient wraps conn. Log lines of the client reuse traceID so they can be
// matched with the upgrade request.
func NewClient(hub *Hub, conn Connection, traceID string) *Client {
	c := &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          uuid.NewString(),
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		ctx:         context.Background(),
	}
	if traceID != "" {
		c.ctx = infrastructure.WithTraceID(c.ctx, traceID)
	}
	c.logger = hub.clientLogger.With(slog.String("client_id", c.id))
	return c
}

func (c *Client) ID() string { return c.id }

func (c *Client) context() context.Context { return c.ctx }

// ReadPump keeps the read side alive until the peer goes away, then
// unregisters the client. Every frame or pong pushes the deadline out.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	pongWait := c.hub.cfg.PongWait
	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) }

	c.conn.SetReadLimit(maxMessageSize)
	extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				infrastructure.WithError(c.logger, err).WarnContext(c.ctx, "unexpected websocket close")
			}
			return
		}
		extend()
	}
}

// WritePump forwards hub messages and pings the peer every PingPeriod. It
// returns when send is closed or a write fails.
func (c *Client) WritePump() {
	ping := time.NewTicker(c.hub.cfg.PingPeriod)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		var err error
		select {
		case msg, open := <-c.send:
			if !open {
				c.write(websocket.CloseMessage, []byte{})
				return
			}
			err = c.write(websocket.TextMessage, msg)
		case <-ping.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			infrastructure.WithError(c.logger, err).DebugContext(c.ctx, "websocket write failed")
			return
		}
	}
}

func (c *Client) write(kind int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, data)
}
