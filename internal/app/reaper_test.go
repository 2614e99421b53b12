package app

import (
	"testing"
	"time"

	"github.com/avolkov/relay/internal/domain"
)

// fakeTimer lets tests drive the grace period by hand.
type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool { t.stopped = true; return true }
func (t *fakeTimer) fire()      { t.fn() }

type fakeTimers struct {
	timers []*fakeTimer
}

func (f *fakeTimers) create(d time.Duration, fn func()) reaperTimer {
	t := &fakeTimer{d: d, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeTimers) last() *fakeTimer {
	return f.timers[len(f.timers)-1]
}

func TestReaper_ScheduleAndFire(t *testing.T) {
	r := newReaper()
	ft := &fakeTimers{}
	r.newTimer = ft.create

	var expired []domain.UserID
	r.Schedule("a", time.Hour, func(id domain.UserID) { expired = append(expired, id) })
	if len(ft.timers) != 1 || ft.last().d != time.Hour {
		t.Fatalf("expected one timer armed with the grace period, got %+v", ft.timers)
	}

	ft.last().fire()
	if len(expired) != 1 || expired[0] != "a" {
		t.Fatalf("expected expiry for a, got %v", expired)
	}
	if r.pending("a") {
		t.Fatalf("fired timer should be removed")
	}
}

func TestReaper_CancelStopsTimer(t *testing.T) {
	r := newReaper()
	ft := &fakeTimers{}
	r.newTimer = ft.create

	r.Schedule("a", time.Hour, func(domain.UserID) { t.Fatalf("canceled timer must not expire") })
	r.Cancel("a")

	if !ft.last().stopped {
		t.Fatalf("cancel must stop the underlying timer")
	}
	if r.pending("a") {
		t.Fatalf("canceled timer still pending")
	}
}

func TestReaper_RescheduleReplacesTimer(t *testing.T) {
	r := newReaper()
	ft := &fakeTimers{}
	r.newTimer = ft.create

	r.Schedule("a", time.Hour, func(domain.UserID) {})
	first := ft.last()
	r.Schedule("a", time.Hour, func(domain.UserID) {})

	if !first.stopped {
		t.Fatalf("re-arming must stop the previous timer")
	}
	if len(ft.timers) != 2 || ft.last().stopped {
		t.Fatalf("replacement timer should be armed, got %+v", ft.timers)
	}
}

func TestReaper_StopCancelsAll(t *testing.T) {
	r := newReaper()
	ft := &fakeTimers{}
	r.newTimer = ft.create

	for _, id := range []domain.UserID{"a", "b", "c"} {
		r.Schedule(id, time.Hour, func(domain.UserID) {})
	}
	r.Stop()

	for _, timer := range ft.timers {
		if !timer.stopped {
			t.Fatalf("Stop must cancel every timer")
		}
	}
	if r.pending("a") || r.pending("b") || r.pending("c") {
		t.Fatalf("timers still pending after Stop")
	}
}

func TestReaper_DefaultTimerFires(t *testing.T) {
	r := newReaper()
	fired := make(chan domain.UserID, 1)
	r.Schedule("a", time.Millisecond, func(id domain.UserID) { fired <- id })

	select {
	case id := <-fired:
		if id != "a" {
			t.Fatalf("wrong user expired: %s", id)
		}
	case <-time.After(time.Second):
		t.Fatalf("timer never fired")
	}
}
