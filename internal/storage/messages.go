package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"github.com/nexuschat/server/internal/core"
	"github.com/nexuschat/server/internal/domain"
)

type MessageRepository struct {
	db *badger.DB
}

func NewMessageRepository(db *badger.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func msgKey(id domain.MessageID) []byte {
	return []byte(fmt.Sprintf("msg:%s", id))
}

func (m *MessageRepository) Append(msg *domain.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(msgKey(msg.ID), value)
	})
}

func (m *MessageRepository) Get(id domain.MessageID) (*domain.Message, error) {
	var msg domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(msgKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &msg)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead adds reader to the message's read-by set. Idempotent; reading an
// unknown message is not an error at this layer's callers, so the not-found
// sentinel is passed through.
func (m *MessageRepository) MarkRead(id domain.MessageID, reader domain.UserID) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(msgKey(id))
		if err != nil {
			return err
		}
		var msg domain.Message
		if err := item.Value(func(value []byte) error {
			return json.Unmarshal(value, &msg)
		}); err != nil {
			return err
		}
		if lo.Contains(msg.ReadBy, reader) {
			return nil
		}
		msg.ReadBy = append(msg.ReadBy, reader)
		value, err := json.Marshal(&msg)
		if err != nil {
			return err
		}
		return txn.Set(msgKey(id), value)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return core.ErrNotFound
	}
	return err
}
