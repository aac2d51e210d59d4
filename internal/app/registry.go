package app

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nexuschat/server/internal/core"
	"github.com/nexuschat/server/internal/domain"
)

// Registry maps a user id to its set of live sessions. Presence of a key is
// the canonical "online" signal: a user id is present iff it owns at least
// one registered session.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.UserID][]*core.Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.UserID][]*core.Session)}
}

// Register adds a session under its user id and reports whether it is the
// user's first live session. The caller owns the presence-online side effect.
func (r *Registry) Register(s *core.Session) (first bool) {
	uid := s.User.ID
	r.mu.Lock()
	defer r.mu.Unlock()
	first = len(r.sessions[uid]) == 0
	r.sessions[uid] = append(r.sessions[uid], s)
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Int("sessions", len(r.sessions[uid])).Msg("session registered")
	return first
}

// Unregister removes the session and reports whether the user has no sessions
// left, which is the signal for presence-offline and state purge.
func (r *Registry) Unregister(s *core.Session) (last bool) {
	uid := s.User.ID
	r.mu.Lock()
	defer r.mu.Unlock()
	live := r.sessions[uid]
	found := false
	for i, sess := range live {
		if sess == s {
			live = append(live[:i], live[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if len(live) == 0 {
		delete(r.sessions, uid)
		log.Info().Str("module", "app.registry").Str("user", string(uid)).Msg("last session unregistered")
		return true
	}
	r.sessions[uid] = live
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Int("sessions", len(live)).Msg("session unregistered")
	return false
}

// SendTo serializes the event once and writes it to every live session of the
// user. A failed write on one session never blocks the others; the failure is
// logged and the session is left to its own read-loop teardown.
func (r *Registry) SendTo(uid domain.UserID, event any) bool {
	frame, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("module", "app.registry").Msg("marshal outbound event")
		return false
	}
	return r.SendFrame(uid, frame)
}

// SendFrame delivers an already-serialized frame to every session of uid.
func (r *Registry) SendFrame(uid domain.UserID, frame core.Frame) bool {
	r.mu.RLock()
	live := make([]*core.Session, len(r.sessions[uid]))
	copy(live, r.sessions[uid])
	r.mu.RUnlock()

	delivered := false
	for _, sess := range live {
		if err := sess.Conn.TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.registry").Str("user", string(uid)).Msg("dropping frame for stale session")
			continue
		}
		delivered = true
	}
	return delivered
}

func (r *Registry) IsOnline(uid domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[uid]) > 0
}

func (r *Registry) OnlineUsers() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.UserID, 0, len(r.sessions))
	for uid := range r.sessions {
		out = append(out, uid)
	}
	return out
}
