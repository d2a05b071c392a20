package main

import (
	"sync"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
	binary   [][]byte
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binary = append(m.binary, data)
}

// envelopes returns the captured JSON messages of type t
func (m *mockBroadcaster) envelopes(t string) []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Envelope
	for _, msg := range m.messages {
		if env, ok := msg.(Envelope); ok && env.T == t {
			out = append(out, env)
		}
	}
	return out
}

func newTestGame(db *DB) *Game {
	return NewGame(GameConfig{SessionID: "test", Seed: 5, DB: db})
}

func TestGamePilotAndSpectators(t *testing.T) {
	g := newTestGame(nil)
	defer g.sim.Close()

	pilotID, pilot := g.AddClient("Ripley", 0, &mockBroadcaster{})
	if !pilot {
		t.Fatal("first client should pilot")
	}
	specID, pilot := g.AddClient("Newt", 0, &mockBroadcaster{})
	if pilot {
		t.Error("second client should spectate")
	}
	if g.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", g.ClientCount())
	}
	if !g.IsPilot(pilotID) || g.IsPilot(specID) {
		t.Error("pilot flags are wrong")
	}

	if g.HandleAction(specID, ReplayAction{Kind: ActionStart}) {
		t.Error("spectator should not start the run")
	}
	if !g.HandleAction(pilotID, ReplayAction{Kind: ActionStart}) {
		t.Error("pilot should start the run")
	}
	if g.sim.Store().Phase() != PhasePlaying {
		t.Errorf("expected playing, got %s", g.sim.Store().Phase())
	}
}

func TestGameSessionFull(t *testing.T) {
	g := newTestGame(nil)
	defer g.sim.Close()

	for i := 0; i < maxClientsPerSession; i++ {
		if id, _ := g.AddClient("P", 0, &mockBroadcaster{}); id == "" {
			t.Fatalf("client %d rejected", i)
		}
	}
	if id, _ := g.AddClient("Late", 0, &mockBroadcaster{}); id != "" {
		t.Error("expected full session to reject")
	}
}

func TestGameSpectatorInputIgnored(t *testing.T) {
	g := newTestGame(nil)
	defer g.sim.Close()
	pilotID, _ := g.AddClient("Ripley", 0, &mockBroadcaster{})
	specID, _ := g.AddClient("Newt", 0, &mockBroadcaster{})
	g.HandleAction(pilotID, ReplayAction{Kind: ActionStart})

	for i := 0; i < 30; i++ {
		g.HandleInput(specID, ClientInput{F: 1})
		g.step()
	}
	p := g.sim.Store().Player()
	if p.Position.Z() != 0 {
		t.Errorf("spectator input moved the player to %v", p.Position)
	}

	for i := 0; i < 30; i++ {
		g.HandleInput(pilotID, ClientInput{F: 1})
		g.step()
	}
	if g.sim.Store().Player().Position.Z() <= 0 {
		t.Error("pilot input should move the player forward")
	}
}

func TestGameStepBroadcasts(t *testing.T) {
	g := newTestGame(nil)
	defer g.sim.Close()
	pilot := &mockBroadcaster{}
	spec := &mockBroadcaster{}
	pilotID, _ := g.AddClient("Ripley", 0, pilot)
	g.AddClient("Newt", 0, spec)
	g.HandleAction(pilotID, ReplayAction{Kind: ActionStart})

	for i := 0; i < BroadcastEvery; i++ {
		g.step()
	}

	for _, m := range []*mockBroadcaster{pilot, spec} {
		events := m.envelopes(MsgEvents)
		if len(events) == 0 {
			t.Fatal("expected an events message")
		}
		msg := events[0].Data.(EventsMsg)
		if len(msg.Events) == 0 || msg.Events[0].Type != EventWaveStart {
			t.Errorf("expected wave start first, got %+v", msg.Events)
		}

		m.mu.Lock()
		frames := len(m.binary)
		var gs GameState
		var err error
		if frames > 0 {
			err = msgpack.Unmarshal(m.binary[0], &gs)
		}
		m.mu.Unlock()
		if frames != 1 {
			t.Fatalf("expected 1 state frame, got %d", frames)
		}
		if err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if gs.Phase != PhasePlaying || gs.Tick != uint64(BroadcastEvery) {
			t.Errorf("unexpected state phase %s tick %d", gs.Phase, gs.Tick)
		}
	}
}

func TestGameSkipsUnchangedState(t *testing.T) {
	g := newTestGame(nil)
	defer g.sim.Close()
	m := &mockBroadcaster{}
	g.AddClient("Ripley", 0, m)

	// Still in the menu: nothing changes
	for i := 0; i < BroadcastEvery*5; i++ {
		g.step()
	}
	m.mu.Lock()
	frames := len(m.binary)
	m.mu.Unlock()
	if frames > 1 {
		t.Errorf("expected at most the initial frame, got %d", frames)
	}
}

func TestGamePilotLeavePauses(t *testing.T) {
	g := newTestGame(nil)
	defer g.sim.Close()
	pilotID, _ := g.AddClient("Ripley", 0, &mockBroadcaster{})
	g.HandleAction(pilotID, ReplayAction{Kind: ActionStart})
	g.step()

	g.RemoveClient(pilotID)
	if g.sim.Store().Phase() != PhasePaused {
		t.Errorf("expected paused, got %s", g.sim.Store().Phase())
	}

	nextID, pilot := g.AddClient("Hicks", 0, &mockBroadcaster{})
	if !pilot || !g.IsPilot(nextID) {
		t.Error("next client should take over as pilot")
	}
	if !g.HandleAction(nextID, ReplayAction{Kind: ActionPause}) {
		t.Error("new pilot should be able to resume")
	}
	if g.sim.Store().Phase() != PhasePlaying {
		t.Errorf("expected playing, got %s", g.sim.Store().Phase())
	}
}

func TestGameFinishedRunPersisted(t *testing.T) {
	db := openTestDB(t)
	pid, _ := db.CreatePlayer("Ripley", "hash")
	g := newTestGame(db)
	defer g.sim.Close()

	m := &mockBroadcaster{}
	id, _ := g.AddClient("Ripley", pid, m)
	g.HandleAction(id, ReplayAction{Kind: ActionStart})
	g.step()

	g.sim.Store().TakeDamage(1000)
	run := g.step()
	if run == nil {
		t.Fatal("expected a finished run")
	}
	if run.Row.Outcome != MatchFailed || run.Row.PlayerID != pid || run.Row.Name != "Ripley" {
		t.Errorf("unexpected run row %+v", run.Row)
	}
	if len(run.Row.Replay) == 0 {
		t.Error("expected the run log to be attached")
	}
	if again := g.step(); again != nil {
		t.Error("a run is only finished once")
	}

	g.persistRun(run)

	stored, err := db.GetRun(run.Row.ID)
	if err != nil || stored == nil {
		t.Fatalf("expected stored run, got %v (%v)", stored, err)
	}
	if stored.Seed != 5 || stored.Outcome != MatchFailed {
		t.Errorf("unexpected stored run %+v", stored)
	}
	stats, _ := db.GetStats(pid)
	if stats.Runs != 1 {
		t.Errorf("expected 1 run in stats, got %d", stats.Runs)
	}

	recorded := m.envelopes(MsgRunRecorded)
	if len(recorded) != 1 {
		t.Fatalf("expected a run_recorded message, got %d", len(recorded))
	}
	if msg := recorded[0].Data.(RunRecordedMsg); msg.RunID != run.Row.ID {
		t.Errorf("expected run id %s, got %s", run.Row.ID, msg.RunID)
	}

	// Restarting allows the next run to be saved
	g.HandleAction(id, ReplayAction{Kind: ActionRestart})
	g.step()
	g.sim.Store().TakeDamage(1000)
	if next := g.step(); next == nil || next.Row.ID == run.Row.ID {
		t.Error("expected a second finished run")
	}
}

func TestVerifyRun(t *testing.T) {
	g := newTestGame(nil)
	defer g.sim.Close()
	id, _ := g.AddClient("Ripley", 0, &mockBroadcaster{})
	g.HandleAction(id, ReplayAction{Kind: ActionStart})
	for i := 0; i < 600; i++ {
		g.HandleInput(id, ClientInput{F: float64(i%3 - 1), Fire: i%40 < 25, LX: 3})
		g.step()
	}

	data, err := g.RunLog().Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	st := g.sim.Store()
	p := st.Player()
	run := &RunRow{ID: "r", Score: p.Score, Kills: p.Kills, Wave: p.Wave, Outcome: st.MatchPhase(), Replay: data}

	v, err := VerifyRun(run)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !v.Verified {
		t.Errorf("expected faithful run to verify, got %+v", v)
	}

	run.Score += 500
	v, _ = VerifyRun(run)
	if v.Verified {
		t.Error("expected tampered score to fail verification")
	}

	run.Replay = []byte("junk")
	if _, err := VerifyRun(run); err == nil {
		t.Error("expected corrupt replay to error")
	}
}
