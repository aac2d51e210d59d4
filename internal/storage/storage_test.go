package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nexuschat/server/internal/core"
	"github.com/nexuschat/server/internal/domain"
)

func openTestDB(t *testing.T) *MessageRepository {
	t.Helper()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMessageRepository(db)
}

func TestMessageRoundTrip(t *testing.T) {
	req := require.New(t)
	repo := openTestDB(t)

	msg := &domain.Message{
		ID:          "m1",
		SenderID:    "alice",
		ReceiverID:  "bob",
		Content:     "this message will self destruct in 5 seconds",
		MessageType: "text",
		ReadBy:      []domain.UserID{},
		Timestamp:   time.Now().UTC().Truncate(time.Second),
	}
	req.NoError(repo.Append(msg))

	fetched, err := repo.Get("m1")
	req.NoError(err)
	req.Equal(msg, fetched)
}

func TestMessageGetNotFound(t *testing.T) {
	repo := openTestDB(t)
	_, err := repo.Get("ghost")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	req := require.New(t)
	repo := openTestDB(t)

	req.NoError(repo.Append(&domain.Message{ID: "m1", SenderID: "alice", Content: "hi", ReadBy: []domain.UserID{}}))

	req.NoError(repo.MarkRead("m1", "bob"))
	req.NoError(repo.MarkRead("m1", "bob"))
	req.NoError(repo.MarkRead("m1", "carol"))

	fetched, err := repo.Get("m1")
	req.NoError(err)
	req.ElementsMatch([]domain.UserID{"bob", "carol"}, fetched.ReadBy)
}

func TestMarkReadUnknownMessage(t *testing.T) {
	repo := openTestDB(t)
	require.ErrorIs(t, repo.MarkRead("ghost", "bob"), core.ErrNotFound)
}

func TestUserRepositoryRoundTrip(t *testing.T) {
	req := require.New(t)
	db, err := Open(t.TempDir())
	req.NoError(err)
	defer db.Close()
	repo := NewUserRepository(db)

	user := &domain.User{ID: "alice", Username: "alice", Avatar: "https://cdn/a.png"}
	req.NoError(repo.Put(user))

	fetched, err := repo.Get("alice")
	req.NoError(err)
	req.Equal(user, fetched)

	_, err = repo.Get("ghost")
	req.ErrorIs(err, core.ErrNotFound)
}

func TestPresenceRepositoryRoundTrip(t *testing.T) {
	req := require.New(t)
	db, err := Open(t.TempDir())
	req.NoError(err)
	defer db.Close()
	repo := NewPresenceRepository(db)

	at := time.Now().UTC().Truncate(time.Second)
	req.NoError(repo.UpdateStatus("alice", domain.StatusOffline, at))

	rec, err := repo.Get("alice")
	req.NoError(err)
	req.Equal(domain.StatusOffline, rec.Status)
	req.Equal(at, rec.LastSeen)

	_, err = repo.Get("ghost")
	req.ErrorIs(err, core.ErrNotFound)
}
