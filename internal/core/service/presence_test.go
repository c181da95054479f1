package service

import (
	"testing"

	"github.com/Wyydra/callrelay/internal/core/domain"
)

func TestPresenceRegisterSupersedes(t *testing.T) {
	gw := newRecorder()
	p := NewPresenceRegistry(gw, nil)
	c1, c2 := domain.NewConnectionID(), domain.NewConnectionID()

	p.Register("alice", c1)
	p.Register("alice", c2)

	conn, ok := p.Resolve("alice")
	if !ok || conn != c2 {
		t.Fatalf("expected alice on latest connection, got %v %v", conn, ok)
	}
	if got := gw.statusChanges("alice", domain.StatusOnline); got != 2 {
		t.Fatalf("expected an online broadcast per register, got %d", got)
	}
	if p.Len() != 1 {
		t.Fatalf("expected one entry, got %d", p.Len())
	}
}

func TestPresenceMarkOfflineIgnoresStaleConnection(t *testing.T) {
	gw := newRecorder()
	p := NewPresenceRegistry(gw, nil)
	stale, live := domain.NewConnectionID(), domain.NewConnectionID()

	p.Register("alice", stale)
	p.Register("alice", live)

	if p.MarkOffline("alice", stale) {
		t.Fatal("stale connection must not take the user offline")
	}
	if !p.IsOnline("alice") {
		t.Fatal("alice should still be online")
	}
	if gw.statusChanges("alice", domain.StatusOffline) != 0 {
		t.Fatal("no offline broadcast expected")
	}

	if !p.MarkOffline("alice", live) {
		t.Fatal("live connection should take the user offline")
	}
	if p.IsOnline("alice") {
		t.Fatal("alice should be offline")
	}
	if gw.statusChanges("alice", domain.StatusOffline) != 1 {
		t.Fatal("expected exactly one offline broadcast")
	}
}

func TestPresenceLogout(t *testing.T) {
	gw := newRecorder()
	p := NewPresenceRegistry(gw, nil)

	if p.Logout("nobody") {
		t.Fatal("logout of unknown user should report false")
	}

	p.Register("bob", domain.NewConnectionID())
	if !p.Logout("bob") {
		t.Fatal("logout should report true")
	}
	if _, ok := p.Resolve("bob"); ok {
		t.Fatal("bob should be gone")
	}
	if gw.statusChanges("bob", domain.StatusOffline) != 1 {
		t.Fatal("expected an offline broadcast")
	}
}

func TestPresenceOnlineSorted(t *testing.T) {
	p := NewPresenceRegistry(newRecorder(), nil)
	for _, u := range []domain.UserID{"carol", "alice", "bob"} {
		p.Register(u, domain.NewConnectionID())
	}
	got := p.Online()
	if len(got) != 3 || got[0] != "alice" || got[1] != "bob" || got[2] != "carol" {
		t.Fatalf("unexpected order: %v", got)
	}
}
