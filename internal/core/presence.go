package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avolkov/relay/internal/domain"
)

// PresenceRegistry is the single source of truth for who is online.
// At most one entry per user id; Online and Session mutate under one lock so
// an online user never carries a stale session id.
type PresenceRegistry struct {
	mu      sync.RWMutex
	entries map[domain.UserID]*domain.PresenceEntry
	now     func() time.Time
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		entries: make(map[domain.UserID]*domain.PresenceEntry),
		now:     time.Now,
	}
}

// SetOnline records user as online on the given session, overwriting any prior
// entry. Last connect wins: a second device collapses presence to itself.
func (p *PresenceRegistry) SetOnline(user domain.User, sid domain.SessionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[user.ID] = &domain.PresenceEntry{
		User:     user,
		Online:   true,
		Session:  sid,
		LastSeen: p.now(),
	}
	log.Debug().Str("module", "core.presence").Str("user", string(user.ID)).Str("sid", string(sid)).Msg("set online")
}

// SetOffline flips the entry to offline but keeps it around: last-seen state
// survives until the reaper evicts it. Stale session ids are ignored so a
// late disconnect of a replaced session cannot knock the new one offline.
func (p *PresenceRegistry) SetOffline(userID domain.UserID, sid domain.SessionID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[userID]
	if !ok || !e.Online || e.Session != sid {
		return false
	}
	e.Online = false
	e.Session = ""
	e.LastSeen = p.now()
	log.Debug().Str("module", "core.presence").Str("user", string(userID)).Msg("set offline")
	return true
}

func (p *PresenceRegistry) Get(userID domain.UserID) (domain.PresenceEntry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[userID]
	if !ok {
		return domain.PresenceEntry{}, false
	}
	return *e, true
}

// SessionOf returns the live session of an online user.
func (p *PresenceRegistry) SessionOf(userID domain.UserID) (domain.SessionID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[userID]
	if !ok || !e.Online {
		return "", false
	}
	return e.Session, true
}

// Snapshot copies every entry, keyed by user id, for the presence broadcast.
func (p *PresenceRegistry) Snapshot() map[domain.UserID]domain.PresenceEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[domain.UserID]domain.PresenceEntry, len(p.entries))
	for id, e := range p.entries {
		out[id] = *e
	}
	return out
}

// Evict deletes the entry only while it is still offline. The reaper calls
// this when the grace period expires; returning false means a reconnect won
// the race and the entry must stay.
func (p *PresenceRegistry) Evict(userID domain.UserID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[userID]
	if !ok || e.Online {
		return false
	}
	delete(p.entries, userID)
	log.Debug().Str("module", "core.presence").Str("user", string(userID)).Msg("evicted")
	return true
}
