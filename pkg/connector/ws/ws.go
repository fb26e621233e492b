// Package ws connects the companion to a keyboard's WebSocket development transport.
package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chaz8081/gostt-kbd/internal/log"
	"github.com/chaz8081/gostt-kbd/pkg/connector"
)

var logger = log.New("ws")

const writeTimeout = 2 * time.Second

// Connection is a connector.Connector over a WebSocket.
type Connection struct {
	conn      *websocket.Conn
	inbox     chan []byte
	lock      sync.Mutex
	closeOnce sync.Once
}

var _ connector.Connector = (*Connection)(nil)

// Dial connects to a keyboard's ws:// URL.
func Dial(ctx context.Context, url string) (*Connection, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ws: failed to connect to %s: %w", url, err)
	}
	c := &Connection{conn: conn, inbox: make(chan []byte, connector.BufferSize)}
	go c.readLoop()
	logger.Info("connected to %s", url)
	return c, nil
}

func (c *Connection) readLoop() {
	defer close(c.inbox)
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			logger.Debug("read loop ended: %s", err)
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		logger.Debug("RX: %02x", data)
		select {
		case c.inbox <- data:
		default:
			logger.Warning("inbox full; dropping notification")
		}
	}
}

func (c *Connection) Receive() <-chan []byte {
	return c.inbox
}

func (c *Connection) Send(ctx context.Context, buffer []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(writeTimeout)
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	logger.Debug("TX: %02x", buffer)
	return c.conn.WriteMessage(websocket.BinaryMessage, buffer)
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.lock.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeTimeout))
		c.lock.Unlock()
		if err := c.conn.Close(); err != nil {
			logger.Debug("close: %s", err)
		}
	})
}
