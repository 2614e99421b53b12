package adapters

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/avolkov/relay/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

const writeWait = 5 * time.Second

// WSConn is an indirection over *websocket.Conn to ease testing.
type WSConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(mt int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// WSConnection is a transport endpoint. It implements core.ClientConnection.
//
// The send channel is never closed: senders race with shutdown, and a select
// on a closed channel panics. Close flips the closed flag so TrySend fails
// fast, and the done channel stops the write loop.
type WSConnection struct {
	conn       WSConn
	send       chan core.Frame
	done       chan struct{}
	pingPeriod time.Duration

	mu     sync.Mutex
	closed bool
}

func NewWSConnection(conn WSConn, buffer int, pingPeriod time.Duration) *WSConnection {
	if buffer <= 0 {
		buffer = 256
	}
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &WSConnection{
		conn:       conn,
		send:       make(chan core.Frame, buffer),
		done:       make(chan struct{}),
		pingPeriod: pingPeriod,
	}
}

func (c *WSConnection) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *WSConnection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.done)
	_ = c.conn.Close()
}

// StartWriteLoop pumps frames to the network and keeps the transport alive
// with periodic pings. Adapter owns transport resources and closes them on
// exit.
func (c *WSConnection) StartWriteLoop(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(c.pingPeriod)
		defer func() {
			ticker.Stop()
			c.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case data := <-c.send:
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			case <-ticker.C:
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()
}
