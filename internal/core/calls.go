package core

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avolkov/relay/internal/domain"
)

var (
	// ErrCallInProgress means the caller already has an unresolved call to
	// the same callee.
	ErrCallInProgress = errors.New("call already in progress")
	// ErrNoActiveCall means accept/reject/end arrived with no matching call.
	ErrNoActiveCall = errors.New("no active call for pair")
	// ErrInvalidCallTransition means the call exists but is not in a state
	// the requested transition allows.
	ErrInvalidCallTransition = errors.New("invalid call transition")
)

type callKey struct {
	caller domain.UserID
	callee domain.UserID
}

// CallLedger tracks every in-flight handshake by (caller, callee) pair and
// rejects transitions that do not match the recorded state, rather than
// forwarding blindly and trusting event order.
type CallLedger struct {
	mu    sync.Mutex
	calls map[callKey]*domain.Call
	now   func() time.Time
}

func NewCallLedger() *CallLedger {
	return &CallLedger{
		calls: make(map[callKey]*domain.Call),
		now:   time.Now,
	}
}

// Place records a new initiated call. Fails while an unresolved call between
// the same pair, in either direction, is still open.
func (l *CallLedger) Place(caller, callee domain.UserID, callType domain.CallType) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.calls[callKey{caller, callee}]; ok {
		return ErrCallInProgress
	}
	if _, ok := l.calls[callKey{callee, caller}]; ok {
		return ErrCallInProgress
	}
	l.calls[callKey{caller, callee}] = &domain.Call{
		Caller:    caller,
		Callee:    callee,
		Type:      callType,
		State:     domain.CallInitiated,
		StartedAt: l.now(),
	}
	log.Debug().Str("module", "core.calls").Str("caller", string(caller)).Str("callee", string(callee)).Str("type", string(callType)).Msg("call placed")
	return nil
}

// Accept moves initiated -> accepted. Only the callee's accept is valid.
func (l *CallLedger) Accept(caller, callee domain.UserID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	call, ok := l.calls[callKey{caller, callee}]
	if !ok {
		return ErrNoActiveCall
	}
	if call.State != domain.CallInitiated {
		return ErrInvalidCallTransition
	}
	call.State = domain.CallAccepted
	log.Debug().Str("module", "core.calls").Str("caller", string(caller)).Str("callee", string(callee)).Msg("call accepted")
	return nil
}

// Reject resolves an initiated call; the record is dropped (terminal state).
func (l *CallLedger) Reject(caller, callee domain.UserID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	call, ok := l.calls[callKey{caller, callee}]
	if !ok {
		return ErrNoActiveCall
	}
	if call.State != domain.CallInitiated {
		return ErrInvalidCallTransition
	}
	delete(l.calls, callKey{caller, callee})
	log.Debug().Str("module", "core.calls").Str("caller", string(caller)).Str("callee", string(callee)).Msg("call rejected")
	return nil
}

// End resolves a call from either side, whether it was answered or not
// (caller hanging up before the callee answers is a legal path).
func (l *CallLedger) End(from, to domain.UserID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range []callKey{{from, to}, {to, from}} {
		if _, ok := l.calls[key]; ok {
			delete(l.calls, key)
			log.Debug().Str("module", "core.calls").Str("caller", string(key.caller)).Str("callee", string(key.callee)).Msg("call ended")
			return nil
		}
	}
	return ErrNoActiveCall
}

// Active returns the recorded call between the pair, in either direction.
func (l *CallLedger) Active(a, b domain.UserID) (domain.Call, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range []callKey{{a, b}, {b, a}} {
		if call, ok := l.calls[key]; ok {
			return *call, true
		}
	}
	return domain.Call{}, false
}

// DropUser clears every call the user participates in. Used when a session
// disconnects mid-handshake so stale records cannot block new calls.
func (l *CallLedger) DropUser(userID domain.UserID) []domain.Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	var dropped []domain.Call
	for key, call := range l.calls {
		if key.caller == userID || key.callee == userID {
			dropped = append(dropped, *call)
			delete(l.calls, key)
		}
	}
	return dropped
}
