package main

import (
	"testing"
	"time"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	sm := NewSessionManager(&ServerConfig{Balance: DefaultBalance(), TickRate: TickRate}, nil, nil)
	t.Cleanup(sm.StopAll)
	return sm
}

func TestSessionCreateAndList(t *testing.T) {
	sm := newTestSessionManager(t)

	b := sm.CreateSession("Bravo", nil)
	a := sm.CreateSession("Alpha", nil)
	if a == nil || b == nil {
		t.Fatal("expected sessions")
	}
	if !uuidRegex.MatchString(a.ID) || a.ID == b.ID {
		t.Errorf("expected distinct UUIDs, got %s and %s", a.ID, b.ID)
	}
	if sm.GetSession(a.ID) != a {
		t.Error("lookup returned the wrong session")
	}

	list := sm.ListSessions()
	if len(list) != 2 || list[0].Name != "Alpha" || list[1].Name != "Bravo" {
		t.Errorf("expected sessions sorted by name, got %+v", list)
	}
	if list[0].Phase != PhaseMenu || list[0].Wave != 1 {
		t.Errorf("expected a fresh session in the menu, got %+v", list[0])
	}
}

func TestSessionSeed(t *testing.T) {
	fixed := int64(1234)
	sm := NewSessionManager(&ServerConfig{Balance: DefaultBalance(), TickRate: TickRate, Seed: &fixed}, nil, nil)
	defer sm.StopAll()

	if s := sm.CreateSession("A", nil); s.Game.Seed() != fixed {
		t.Errorf("expected server seed %d, got %d", fixed, s.Game.Seed())
	}
	requested := int64(99)
	if s := sm.CreateSession("B", &requested); s.Game.Seed() != requested {
		t.Errorf("expected requested seed 99, got %d", s.Game.Seed())
	}
}

func TestSessionRemovedWhenEmpty(t *testing.T) {
	sm := newTestSessionManager(t)
	sess := sm.CreateSession("Solo", nil)

	id, _ := sess.Game.AddClient("Ripley", 0, &mockBroadcaster{})
	other, _ := sess.Game.AddClient("Newt", 0, &mockBroadcaster{})

	sm.RemoveClient(sess.ID, id)
	if sm.GetSession(sess.ID) == nil {
		t.Fatal("session with a client left should stay")
	}
	sm.RemoveClient(sess.ID, other)
	if sm.GetSession(sess.ID) != nil {
		t.Error("empty session should be removed")
	}
	if sm.Count() != 0 {
		t.Errorf("expected 0 sessions, got %d", sm.Count())
	}
}

func TestSessionCleanupIdle(t *testing.T) {
	sm := newTestSessionManager(t)
	idle := sm.CreateSession("Idle", nil)
	busy := sm.CreateSession("Busy", nil)
	busy.Game.AddClient("Ripley", 0, &mockBroadcaster{})

	time.Sleep(20 * time.Millisecond)
	if n := sm.CleanupIdle(10 * time.Millisecond); n != 1 {
		t.Errorf("expected 1 idle session closed, got %d", n)
	}
	if sm.GetSession(idle.ID) != nil {
		t.Error("idle session should be gone")
	}
	if sm.GetSession(busy.ID) == nil {
		t.Error("occupied session should stay")
	}

	if n := sm.CleanupIdle(time.Hour); n != 0 {
		t.Errorf("expected nothing closed, got %d", n)
	}
}

func TestSessionStopAll(t *testing.T) {
	sm := NewSessionManager(&ServerConfig{Balance: DefaultBalance(), TickRate: TickRate}, nil, nil)
	sm.CreateSession("A", nil)
	sm.CreateSession("B", nil)

	sm.StopAll()
	if sm.Count() != 0 {
		t.Errorf("expected all sessions stopped, got %d", sm.Count())
	}
}
