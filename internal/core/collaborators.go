package core

import (
	"time"

	"github.com/nexuschat/server/internal/domain"
)

// Identity is the result of verifying a bearer credential.
type Identity struct {
	UserID   domain.UserID
	Username string
}

// TokenVerifier checks a connect-time credential and resolves the identity it
// names. Any error refuses the connection.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// MessageStore is the persistence collaborator for chat messages.
// Failures are logged by the caller and never abort routing.
type MessageStore interface {
	Append(msg *domain.Message) error
	Get(id domain.MessageID) (*domain.Message, error)
	MarkRead(id domain.MessageID, reader domain.UserID) error
}

// UserDirectory resolves profile fields (username, avatar) used to enrich
// outbound events.
type UserDirectory interface {
	Put(u *domain.User) error
	Get(id domain.UserID) (*domain.User, error)
}

// PresenceStore persists the last known status of a user across sessions.
type PresenceStore interface {
	UpdateStatus(id domain.UserID, status domain.UserStatus, at time.Time) error
}
