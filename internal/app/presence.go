package app

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/nexuschat/server/internal/core"
	"github.com/nexuschat/server/internal/domain"
)

// Presence announces online/offline transitions to every other connected user.
// Scope note: the fan-out is global rather than contacts-only; fine at current
// scale, revisit behind a directory lookup when it is not.
type Presence struct {
	registry *Registry
	store    core.PresenceStore
}

func NewPresence(registry *Registry, store core.PresenceStore) *Presence {
	return &Presence{registry: registry, store: store}
}

// OnConnect runs after a user's first session registers.
func (p *Presence) OnConnect(uid domain.UserID) {
	p.announce(uid, domain.StatusOnline)
}

// OnDisconnect runs after a user's last session unregisters. The persisted
// status update is best-effort; a store failure never reaches the client.
func (p *Presence) OnDisconnect(uid domain.UserID) {
	p.announce(uid, domain.StatusOffline)
}

func (p *Presence) announce(uid domain.UserID, status domain.UserStatus) {
	now := time.Now().UTC()
	event := NewStatusEvent(uid, status, now)
	targets := lo.Without(p.registry.OnlineUsers(), uid)
	for _, other := range targets {
		p.registry.SendTo(other, event)
	}
	log.Info().Str("module", "app.presence").Str("user", string(uid)).Str("status", string(status)).Int("notified", len(targets)).Msg("presence change")

	if err := p.store.UpdateStatus(uid, status, now); err != nil {
		log.Error().Err(err).Str("module", "app.presence").Str("user", string(uid)).Msg("persist status")
	}
}
