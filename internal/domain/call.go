package domain

import "time"

type CallType string

const (
	CallAudio CallType = "audio"
	CallVideo CallType = "video"
)

type CallState int

const (
	CallInitiated CallState = iota
	CallAccepted
)

func (s CallState) String() string {
	switch s {
	case CallInitiated:
		return "initiated"
	case CallAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// Call is one in-flight handshake between a caller and a callee. Terminal
// outcomes (rejected, ended) delete the record instead of being stored.
type Call struct {
	Caller    UserID
	Callee    UserID
	Type      CallType
	State     CallState
	StartedAt time.Time
}
