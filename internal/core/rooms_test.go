package core

import (
	"errors"
	"testing"
)

type fakeConn struct {
	frames []Frame
	fail   bool
	closed bool
}

func (c *fakeConn) TrySend(f Frame) error {
	if c.fail {
		return errors.New("backpressure")
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() { c.closed = true }

func TestRooms_BroadcastExcludesSender(t *testing.T) {
	r := NewRoomIndex()
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}
	r.Join("c1", "s1", a)
	r.Join("c1", "s2", b)
	r.Join("c1", "s3", c)

	res := r.BroadcastExcept("c1", "s1", Frame("hi"))
	if res.SentTo != 2 {
		t.Fatalf("expected 2 deliveries, got %d", res.SentTo)
	}
	if len(a.frames) != 0 {
		t.Fatalf("sender must not receive its own broadcast")
	}
	if len(b.frames) != 1 || len(c.frames) != 1 {
		t.Fatalf("other members should each receive one frame")
	}
}

func TestRooms_JoinThenLeave(t *testing.T) {
	r := NewRoomIndex()
	a, b := &fakeConn{}, &fakeConn{}
	r.Join("c1", "s1", a)
	r.Join("c1", "s2", b)
	if r.MemberCount("c1") != 2 {
		t.Fatalf("expected 2 members, got %d", r.MemberCount("c1"))
	}
	r.Leave("c1", "s2")
	if r.MemberCount("c1") != 1 {
		t.Fatalf("expected 1 member after leave, got %d", r.MemberCount("c1"))
	}

	res := r.BroadcastExcept("c1", "s1", Frame("x"))
	if res.SentTo != 0 || len(b.frames) != 0 {
		t.Fatalf("left session must not receive broadcasts")
	}
	// Leaving an unknown room must be harmless.
	r.Leave("nope", "s1")
	if r.MemberCount("nope") != 0 {
		t.Fatalf("unknown room should report zero members")
	}
}

func TestRooms_JoinIdempotent(t *testing.T) {
	r := NewRoomIndex()
	a, b := &fakeConn{}, &fakeConn{}
	r.Join("c1", "s1", a)
	r.Join("c1", "s2", b)
	r.Join("c1", "s2", b)

	res := r.BroadcastExcept("c1", "s1", Frame("x"))
	if res.SentTo != 1 || len(b.frames) != 1 {
		t.Fatalf("double join must not cause double delivery")
	}
}

func TestRooms_DropSessionLeavesAllRooms(t *testing.T) {
	r := NewRoomIndex()
	a, b := &fakeConn{}, &fakeConn{}
	r.Join("c1", "s1", a)
	r.Join("c2", "s1", a)
	r.Join("c1", "s2", b)
	r.Join("c2", "s2", b)

	r.DropSession("s2")
	if r.BroadcastExcept("c1", "s1", Frame("x")).SentTo != 0 {
		t.Fatalf("dropped session still reachable in c1")
	}
	if r.BroadcastExcept("c2", "s1", Frame("x")).SentTo != 0 {
		t.Fatalf("dropped session still reachable in c2")
	}
}

func TestRooms_BackpressureReported(t *testing.T) {
	r := NewRoomIndex()
	slow := &fakeConn{fail: true}
	r.Join("c1", "s1", &fakeConn{})
	r.Join("c1", "s2", slow)

	res := r.BroadcastExcept("c1", "s1", Frame("x"))
	if res.SentTo != 0 {
		t.Fatalf("expected no successful deliveries")
	}
	if len(res.Dropped) != 1 || res.Dropped[0] != "s2" {
		t.Fatalf("expected s2 reported as dropped, got %v", res.Dropped)
	}
}
