package app

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/nexuschat/server/internal/domain"
)

// RoomIndex tracks which users are currently subscribed to each room's live
// broadcast traffic. This is independent of persisted room membership: a user
// appears here only between an explicit join and a leave or full disconnect.
type RoomIndex struct {
	mu       sync.RWMutex
	registry *Registry
	rooms    map[domain.RoomID]map[domain.UserID]struct{}
}

func NewRoomIndex(registry *Registry) *RoomIndex {
	return &RoomIndex{
		registry: registry,
		rooms:    make(map[domain.RoomID]map[domain.UserID]struct{}),
	}
}

// Join subscribes uid to the room. Idempotent.
func (ri *RoomIndex) Join(roomID domain.RoomID, uid domain.UserID) {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	members, ok := ri.rooms[roomID]
	if !ok {
		members = make(map[domain.UserID]struct{})
		ri.rooms[roomID] = members
	}
	members[uid] = struct{}{}
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("user", string(uid)).Msg("joined room")
}

// Leave unsubscribes uid. Idempotent; empty rooms are dropped from the index.
func (ri *RoomIndex) Leave(roomID domain.RoomID, uid domain.UserID) {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	members, ok := ri.rooms[roomID]
	if !ok {
		return
	}
	if _, member := members[uid]; !member {
		return
	}
	delete(members, uid)
	if len(members) == 0 {
		delete(ri.rooms, roomID)
	}
	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("user", string(uid)).Msg("left room")
}

func (ri *RoomIndex) Members(roomID domain.RoomID) []domain.UserID {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return lo.Keys(ri.rooms[roomID])
}

// Broadcast serializes the event once and delivers it to every current
// subscriber except exclude (zero value excludes nobody). Delivery order
// across members is unspecified; a stalled member never blocks the rest
// because per-session sends are non-blocking.
func (ri *RoomIndex) Broadcast(roomID domain.RoomID, event any, exclude domain.UserID) int {
	frame, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("module", "app.rooms").Msg("marshal broadcast event")
		return 0
	}

	targets := lo.Without(ri.Members(roomID), exclude)
	sent := 0
	for _, uid := range targets {
		if ri.registry.SendFrame(uid, frame) {
			sent++
		}
	}
	log.Debug().Str("module", "app.rooms").Str("room", string(roomID)).Int("targets", len(targets)).Int("sent", sent).Msg("room broadcast")
	return sent
}

// PurgeUser removes uid from every room's subscriber set. Must run on full
// disconnect so no room keeps a dangling broadcast target.
func (ri *RoomIndex) PurgeUser(uid domain.UserID) {
	ri.mu.Lock()
	defer ri.mu.Unlock()
	for roomID, members := range ri.rooms {
		delete(members, uid)
		if len(members) == 0 {
			delete(ri.rooms, roomID)
		}
	}
	log.Info().Str("module", "app.rooms").Str("user", string(uid)).Msg("purged from all rooms")
}
