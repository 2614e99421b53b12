package core

import (
	"testing"
	"time"

	"github.com/avolkov/relay/internal/domain"
)

func testUser(id string) domain.User {
	return domain.User{ID: domain.UserID(id), Username: "u-" + id}
}

func TestPresence_SingleEntryPerUser(t *testing.T) {
	p := NewPresenceRegistry()

	p.SetOnline(testUser("a"), "s1")
	p.SetOnline(testUser("a"), "s2")
	p.SetOffline("a", "s2")
	p.SetOnline(testUser("a"), "s3")

	snap := p.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(snap))
	}
	e := snap["a"]
	if !e.Online || e.Session != "s3" {
		t.Fatalf("expected online on s3, got online=%v session=%q", e.Online, e.Session)
	}
}

func TestPresence_LastConnectWins(t *testing.T) {
	p := NewPresenceRegistry()

	p.SetOnline(testUser("a"), "s1")
	p.SetOnline(testUser("a"), "s2")

	sid, ok := p.SessionOf("a")
	if !ok || sid != "s2" {
		t.Fatalf("expected live session s2, got %q ok=%v", sid, ok)
	}
}

func TestPresence_StaleDisconnectIgnored(t *testing.T) {
	p := NewPresenceRegistry()

	p.SetOnline(testUser("a"), "s1")
	p.SetOnline(testUser("a"), "s2")

	// The replaced session closes after the reconnect; it must not knock the
	// new session offline.
	if p.SetOffline("a", "s1") {
		t.Fatalf("stale disconnect should be a no-op")
	}
	if _, ok := p.SessionOf("a"); !ok {
		t.Fatalf("user should still be online")
	}
}

func TestPresence_OfflineRetainsEntry(t *testing.T) {
	p := NewPresenceRegistry()
	base := time.Unix(1000, 0)
	p.now = func() time.Time { return base }

	p.SetOnline(testUser("a"), "s1")
	base = base.Add(time.Minute)
	if !p.SetOffline("a", "s1") {
		t.Fatalf("expected offline transition")
	}

	e, ok := p.Get("a")
	if !ok {
		t.Fatalf("entry must survive going offline")
	}
	if e.Online || e.Session != "" {
		t.Fatalf("expected offline with cleared session, got %+v", e)
	}
	if !e.LastSeen.Equal(time.Unix(1060, 0)) {
		t.Fatalf("last seen not updated on disconnect: %v", e.LastSeen)
	}
}

func TestPresence_EvictOnlyWhileOffline(t *testing.T) {
	p := NewPresenceRegistry()

	p.SetOnline(testUser("a"), "s1")
	if p.Evict("a") {
		t.Fatalf("must not evict an online user")
	}

	p.SetOffline("a", "s1")
	p.SetOnline(testUser("a"), "s2") // reconnect before the reaper fires
	if p.Evict("a") {
		t.Fatalf("must not evict after reconnect")
	}

	p.SetOffline("a", "s2")
	if !p.Evict("a") {
		t.Fatalf("expected eviction of offline entry")
	}
	if _, ok := p.Get("a"); ok {
		t.Fatalf("entry should be gone after eviction")
	}
}
