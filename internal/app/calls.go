package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/nexuschat/server/internal/domain"
)

// callState is the live, coordinator-owned form of a call. Snapshots handed
// out to callers are domain.Call values decoupled from this struct.
type callState struct {
	id           domain.CallID
	callerID     domain.UserID
	calleeID     domain.UserID
	roomID       domain.RoomID
	kind         domain.CallKind
	status       domain.CallStatus
	startedAt    time.Time
	participants map[domain.UserID]struct{}
}

// Calls coordinates active signaling sessions and the user-to-call index.
// Ended calls are removed immediately; only the returned snapshot observes
// the terminal state.
type Calls struct {
	mu     sync.Mutex
	active map[domain.CallID]*callState
	byUser map[domain.UserID]domain.CallID
}

func NewCalls() *Calls {
	return &Calls{
		active: make(map[domain.CallID]*callState),
		byUser: make(map[domain.UserID]domain.CallID),
	}
}

// Create registers a new ringing call with the caller as sole participant.
// An empty id gets a generated one. Creating an id that is already active is
// idempotent: the existing call is returned untouched, never overwritten.
func (c *Calls) Create(id domain.CallID, caller, callee domain.UserID, roomID domain.RoomID, kind domain.CallKind) *domain.Call {
	if id == "" {
		id = domain.CallID(uuid.NewString())
	}
	if kind == "" {
		kind = domain.CallAudio
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.active[id]; ok {
		log.Warn().Str("module", "app.calls").Str("call", string(id)).Msg("create on active call id, returning existing")
		return snapshot(existing)
	}

	cs := &callState{
		id:           id,
		callerID:     caller,
		calleeID:     callee,
		roomID:       roomID,
		kind:         kind,
		status:       domain.CallRinging,
		startedAt:    time.Now().UTC(),
		participants: map[domain.UserID]struct{}{caller: {}},
	}
	c.active[id] = cs
	c.byUser[caller] = id
	log.Info().Str("module", "app.calls").Str("call", string(id)).Str("caller", string(caller)).Str("kind", string(kind)).Msg("call created")
	return snapshot(cs)
}

// Join adds uid to the call and marks it active. Safe to call for a user who
// already joined.
func (c *Calls) Join(id domain.CallID, uid domain.UserID) (*domain.Call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.active[id]
	if !ok {
		return nil, false
	}
	cs.participants[uid] = struct{}{}
	cs.status = domain.CallActive
	c.byUser[uid] = id
	log.Info().Str("module", "app.calls").Str("call", string(id)).Str("user", string(uid)).Int("participants", len(cs.participants)).Msg("joined call")
	return snapshot(cs), true
}

// Leave removes uid from the call. The call ends when it has no participants
// left, or when a direct call drops below two; the returned snapshot is then
// the only remaining observation of the terminal state.
func (c *Calls) Leave(id domain.CallID, uid domain.UserID) (*domain.Call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.active[id]
	if !ok {
		return nil, false
	}
	delete(cs.participants, uid)
	delete(c.byUser, uid)
	log.Info().Str("module", "app.calls").Str("call", string(id)).Str("user", string(uid)).Int("participants", len(cs.participants)).Msg("left call")

	snap := snapshot(cs)
	if len(snap.Participants) == 0 || (snap.IsDirect() && len(snap.Participants) < 2) {
		return c.endLocked(cs), true
	}
	return snap, true
}

// End forces the call to its terminal state and removes it.
func (c *Calls) End(id domain.CallID) (*domain.Call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.active[id]
	if !ok {
		return nil, false
	}
	return c.endLocked(cs), true
}

func (c *Calls) endLocked(cs *callState) *domain.Call {
	cs.status = domain.CallEnded
	for uid := range cs.participants {
		delete(c.byUser, uid)
	}
	delete(c.active, cs.id)
	snap := snapshot(cs)
	snap.EndedAt = time.Now().UTC()
	log.Info().Str("module", "app.calls").Str("call", string(cs.id)).Msg("call ended")
	return snap
}

func (c *Calls) Get(id domain.CallID) (*domain.Call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cs, ok := c.active[id]
	if !ok {
		return nil, false
	}
	return snapshot(cs), true
}

// UserCall resolves the single call uid currently belongs to.
func (c *Calls) UserCall(uid domain.UserID) (domain.CallID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.byUser[uid]
	return id, ok
}

func (c *Calls) IsUserInCall(uid domain.UserID) bool {
	_, ok := c.UserCall(uid)
	return ok
}

// PurgeUser tears uid out of whatever call it is in, applying the usual
// end-of-call rules. Returns the post-leave snapshot when a call was found.
func (c *Calls) PurgeUser(uid domain.UserID) (*domain.Call, bool) {
	c.mu.Lock()
	id, ok := c.byUser[uid]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	return c.Leave(id, uid)
}

func snapshot(cs *callState) *domain.Call {
	return &domain.Call{
		ID:           cs.id,
		CallerID:     cs.callerID,
		CalleeID:     cs.calleeID,
		RoomID:       cs.roomID,
		Kind:         cs.kind,
		Status:       cs.status,
		StartedAt:    cs.startedAt,
		Participants: lo.Keys(cs.participants),
	}
}
