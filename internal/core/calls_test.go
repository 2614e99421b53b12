package core

import (
	"errors"
	"testing"

	"github.com/avolkov/relay/internal/domain"
)

func TestCalls_HandshakeLifecycle(t *testing.T) {
	l := NewCallLedger()

	if err := l.Place("a", "b", domain.CallVideo); err != nil {
		t.Fatalf("place: %v", err)
	}
	call, ok := l.Active("a", "b")
	if !ok || call.State != domain.CallInitiated || call.Type != domain.CallVideo {
		t.Fatalf("unexpected call record: %+v ok=%v", call, ok)
	}

	if err := l.Accept("a", "b"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	call, _ = l.Active("b", "a")
	if call.State != domain.CallAccepted {
		t.Fatalf("expected accepted state, got %v", call.State)
	}

	if err := l.End("b", "a"); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, ok := l.Active("a", "b"); ok {
		t.Fatalf("no state may survive end")
	}
}

func TestCalls_PlaceWhileUnresolved(t *testing.T) {
	l := NewCallLedger()
	if err := l.Place("a", "b", domain.CallAudio); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := l.Place("a", "b", domain.CallAudio); !errors.Is(err, ErrCallInProgress) {
		t.Fatalf("expected ErrCallInProgress, got %v", err)
	}
	// The reverse direction is the same pair on the same handshake.
	if err := l.Place("b", "a", domain.CallAudio); !errors.Is(err, ErrCallInProgress) {
		t.Fatalf("expected ErrCallInProgress for reverse pair, got %v", err)
	}
}

func TestCalls_IllegalTransitionsRejected(t *testing.T) {
	l := NewCallLedger()

	if err := l.Accept("a", "b"); !errors.Is(err, ErrNoActiveCall) {
		t.Fatalf("accept with no call: got %v", err)
	}
	if err := l.Reject("a", "b"); !errors.Is(err, ErrNoActiveCall) {
		t.Fatalf("reject with no call: got %v", err)
	}
	if err := l.End("a", "b"); !errors.Is(err, ErrNoActiveCall) {
		t.Fatalf("end with no call: got %v", err)
	}

	if err := l.Place("a", "b", domain.CallAudio); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := l.Accept("a", "b"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := l.Accept("a", "b"); !errors.Is(err, ErrInvalidCallTransition) {
		t.Fatalf("double accept: got %v", err)
	}
	if err := l.Reject("a", "b"); !errors.Is(err, ErrInvalidCallTransition) {
		t.Fatalf("reject after accept: got %v", err)
	}
}

func TestCalls_CallerHangsUpBeforeAnswer(t *testing.T) {
	l := NewCallLedger()
	if err := l.Place("a", "b", domain.CallAudio); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := l.End("a", "b"); err != nil {
		t.Fatalf("end before answer: %v", err)
	}
	// Pair is free again.
	if err := l.Place("b", "a", domain.CallVideo); err != nil {
		t.Fatalf("new call after end: %v", err)
	}
}

func TestCalls_DropUserClearsPairs(t *testing.T) {
	l := NewCallLedger()
	if err := l.Place("a", "b", domain.CallAudio); err != nil {
		t.Fatalf("place: %v", err)
	}
	if err := l.Place("a", "c", domain.CallAudio); err != nil {
		t.Fatalf("place: %v", err)
	}

	dropped := l.DropUser("a")
	if len(dropped) != 2 {
		t.Fatalf("expected 2 dropped calls, got %d", len(dropped))
	}
	if _, ok := l.Active("a", "b"); ok {
		t.Fatalf("call should be gone after drop")
	}
}
