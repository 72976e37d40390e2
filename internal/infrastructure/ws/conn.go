// Package ws carries tracking sessions over gorilla/websocket connections.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeGrace = time.Second

// Conn is the tracking.Transport for one websocket. Send is only called from
// the session's dispatch goroutine; pings and Close use control frames, which
// gorilla allows concurrently with writes.
type Conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	once         sync.Once
	closeErr     error
}

func NewConn(ws *websocket.Conn, writeTimeout time.Duration) *Conn {
	return &Conn{ws: ws, writeTimeout: writeTimeout}
}

// Send writes one text frame. The write deadline is the earlier of ctx's
// deadline and the configured write timeout.
func (c *Conn) Send(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Ping sends a keepalive control frame.
func (c *Conn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

// Close sends a normal-closure frame and closes the socket. Repeat calls
// return the first result.
func (c *Conn) Close() error {
	c.once.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
