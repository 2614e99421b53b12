package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/avolkov/relay/internal/core"
	"github.com/avolkov/relay/internal/domain"
)

type sessionEntry struct {
	User   domain.User
	Conn   core.ClientConnection
	Cancel context.CancelFunc
}

// SessionRegistry tracks every live connection by session id. The presence
// registry answers "who is online"; this one answers "how do I reach them".
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*sessionEntry
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[domain.SessionID]*sessionEntry)}
}

func (r *SessionRegistry) Bind(sid domain.SessionID, user domain.User, conn core.ClientConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{User: user, Conn: conn, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(user.ID)).Msg("bound session")
}

func (r *SessionRegistry) Get(sid domain.SessionID) (domain.User, core.ClientConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return domain.User{}, nil, false
	}
	return e.User, e.Conn, true
}

func (r *SessionRegistry) Unbind(sid domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
}

func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

type connSnap struct {
	SID  domain.SessionID
	Conn core.ClientConnection
}

// Connections snapshots every live connection for a fan-out to all sessions.
func (r *SessionRegistry) Connections() []connSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]connSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		out = append(out, connSnap{SID: sid, Conn: e.Conn})
	}
	return out
}

// Cancel fires the session's context cancel; the owning adapter notices and
// runs the ordinary disconnect path.
func (r *SessionRegistry) Cancel(sid domain.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
