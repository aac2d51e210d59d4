package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/nexuschat/server/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// CloseAuthFailure is the private close code a client receives when the
// connect credential is missing, invalid, or names a different user.
const CloseAuthFailure = 4001

// chatConn pairs the websocket with a bounded send queue. TrySend never
// blocks: a full queue means the peer is too slow and the frame is dropped.
type chatConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newChatConn(conn *websocket.Conn, buffer int) *chatConn {
	return &chatConn{
		conn: conn,
		send: make(chan core.Frame, buffer),
	}
}

func (c *chatConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *chatConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}
