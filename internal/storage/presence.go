package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/nexuschat/server/internal/core"
	"github.com/nexuschat/server/internal/domain"
)

// PresenceRecord is the persisted last-known status of a user. Live presence
// is derived from the in-memory registry; this record only survives restarts.
type PresenceRecord struct {
	Status   domain.UserStatus `json:"status"`
	LastSeen time.Time         `json:"last_seen"`
}

type PresenceRepository struct {
	db *badger.DB
}

func NewPresenceRepository(db *badger.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

func presenceKey(id domain.UserID) []byte {
	return []byte(fmt.Sprintf("presence:%s", id))
}

func (p *PresenceRepository) UpdateStatus(id domain.UserID, status domain.UserStatus, at time.Time) error {
	value, err := json.Marshal(PresenceRecord{Status: status, LastSeen: at})
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Set(presenceKey(id), value)
	})
}

func (p *PresenceRepository) Get(id domain.UserID) (*PresenceRecord, error) {
	var rec PresenceRecord
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(presenceKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
