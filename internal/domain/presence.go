package domain

import "time"

// SessionID identifies one live transport session. A user reconnecting gets a
// fresh SessionID; the PresenceEntry tracks only the current one.
type SessionID string

// PresenceEntry is the registry's view of a single user.
// Online and SessionID always change together: an online user always carries
// the session id of its live connection.
type PresenceEntry struct {
	User     User      `json:"user"`
	Online   bool      `json:"online"`
	Session  SessionID `json:"-"`
	LastSeen time.Time `json:"lastSeen"`
}
