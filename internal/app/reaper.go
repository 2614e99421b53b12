package app

import (
	"sync"
	"time"

	"github.com/avolkov/relay/internal/domain"
)

// reaperTimer is what the reaper holds per user; *time.Timer satisfies it.
type reaperTimer interface {
	Stop() bool
}

// reaper owns the cancellable eviction timer per user. A reconnect cancels
// the pending timer outright; the fire path additionally re-checks liveness
// in the registry, so a lost cancel race still cannot evict an online user.
type reaper struct {
	mu       sync.Mutex
	timers   map[domain.UserID]reaperTimer
	newTimer func(d time.Duration, fn func()) reaperTimer
}

func newReaper() *reaper {
	return &reaper{
		timers: make(map[domain.UserID]reaperTimer),
		newTimer: func(d time.Duration, fn func()) reaperTimer {
			return time.AfterFunc(d, fn)
		},
	}
}

// Schedule arms (or re-arms) the eviction timer for the user.
func (r *reaper) Schedule(userID domain.UserID, grace time.Duration, expire func(domain.UserID)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[userID]; ok {
		t.Stop()
	}
	r.timers[userID] = r.newTimer(grace, func() {
		r.mu.Lock()
		delete(r.timers, userID)
		r.mu.Unlock()
		expire(userID)
	})
}

// Cancel stops a pending eviction, if any.
func (r *reaper) Cancel(userID domain.UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[userID]; ok {
		t.Stop()
		delete(r.timers, userID)
	}
}

func (r *reaper) pending(userID domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.timers[userID]
	return ok
}

// Stop cancels every pending timer, for shutdown.
func (r *reaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
