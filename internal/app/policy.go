package app

import "github.com/avolkov/relay/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickSession
	DropFrame
)

// Policy decides what happens to a session whose send buffer is full.
type Policy interface {
	OnBackPressure(sid domain.SessionID) BackpressureAction
}

// KickSlowPolicy disconnects slow consumers; their client reconnects and
// resyncs via a fetch, which the best-effort relay assumes anyway.
type KickSlowPolicy struct{}

func (KickSlowPolicy) OnBackPressure(domain.SessionID) BackpressureAction {
	return KickSession
}
