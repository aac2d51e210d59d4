package core

import (
	"errors"
	"time"

	"github.com/nexuschat/server/internal/domain"
)

// Frame is one serialized outbound event.
type Frame []byte

// ErrNotFound is returned by collaborators for absent records. The router
// treats it as a no-op, not a fault.
var ErrNotFound = errors.New("not found")

// SignalConnection abstracts the per-socket messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Session is one live socket for one user. A user may own several concurrent
// sessions (tabs, devices); the registry keys them by user id.
type Session struct {
	User        domain.User
	Conn        SignalConnection
	ConnectedAt time.Time
}

func NewSession(user domain.User, conn SignalConnection) *Session {
	return &Session{User: user, Conn: conn, ConnectedAt: time.Now().UTC()}
}
