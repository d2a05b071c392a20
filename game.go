package main

import (
	"log"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	TickRate       = 60 // simulation ticks per second
	BroadcastRate  = 30 // state frames per second
	BroadcastEvery = TickRate / BroadcastRate
)

const maxClientsPerSession = 9 // pilot + spectators

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// GameConfig configures one session runtime
type GameConfig struct {
	SessionID string
	Balance   *Balance
	Seed      int64
	TickRate  int
	DB        *DB
	Analytics *Analytics
}

// member is one connected client in a session
type member struct {
	name   string
	authID int64 // 0 = guest
	client Broadcaster
}

// FinishedRun is a run that ended and is waiting to be persisted
type FinishedRun struct {
	Row   RunRow
	Pilot member
}

// Game hosts one simulation and the clients attached to it. The first
// client to join pilots; later ones spectate.
type Game struct {
	mu        sync.RWMutex
	sessionID string
	sim       *Simulation
	input     InputBuffer
	recorder  *RunRecorder
	tickRate  int
	db        *DB
	analytics *Analytics

	members     map[string]*member
	pilotID     string
	frames      uint64 // loop iterations; the store clock stops while paused
	lastVersion uint64
	runStart    float64
	runSaved    bool

	running bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// NewGame creates a session runtime in the menu phase
func NewGame(cfg GameConfig) *Game {
	b := cfg.Balance
	if b == nil {
		b = DefaultBalance()
	}
	rate := cfg.TickRate
	if rate <= 0 {
		rate = TickRate
	}
	return &Game{
		sessionID: cfg.SessionID,
		sim:       NewSimulation(SimulationConfig{Balance: b, Seed: cfg.Seed}),
		recorder:  NewRunRecorder(cfg.Seed, rate, b),
		tickRate:  rate,
		db:        cfg.DB,
		analytics: cfg.Analytics,
		members:   make(map[string]*member),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Run starts the game loop
func (g *Game) Run() {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	g.running = true
	g.mu.Unlock()
	defer close(g.done)

	log.Printf("session %s: started (seed %d)", g.sessionID, g.sim.Seed())
	g.track(EvtSessionStart, 0, nil)

	ticker := time.NewTicker(time.Second / time.Duration(g.tickRate))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.update()
		case <-g.stop:
			g.track(EvtSessionEnd, 0, nil)
			log.Printf("session %s: stopped", g.sessionID)
			return
		}
	}
}

// Stop terminates the game loop and releases the simulation
func (g *Game) Stop() {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	g.stopped = true
	close(g.stop)
	wasRunning := g.running
	g.mu.Unlock()

	if wasRunning {
		<-g.done
	}
	g.mu.Lock()
	g.sim.Close()
	g.mu.Unlock()
}

// AddClient attaches a client. Returns (id, pilot) or ("", false) if full.
func (g *Game) AddClient(name string, authID int64, client Broadcaster) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.members) >= maxClientsPerSession {
		return "", false
	}
	id := GenerateID(4)
	g.members[id] = &member{name: name, authID: authID, client: client}
	pilot := g.pilotID == ""
	if pilot {
		g.pilotID = id
	}
	return id, pilot
}

// RemoveClient detaches a client. If the pilot leaves the run is paused
// until the next client joins and takes over.
func (g *Game) RemoveClient(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.members, id)
	if id == g.pilotID {
		g.pilotID = ""
		g.input.Reset()
		if g.sim.Store().Phase() == PhasePlaying {
			g.applyAction(ReplayAction{Kind: ActionPause})
		}
	}
}

// SetAuth links an account to a connected client
func (g *Game) SetAuth(id string, authID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.members[id]; ok {
		m.authID = authID
	}
}

// ClientCount returns the number of attached clients
func (g *Game) ClientCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// IsPilot reports whether id controls the run
func (g *Game) IsPilot(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return id != "" && id == g.pilotID
}

// Info summarizes the session for listings
func (g *Game) Info() (GamePhase, MatchPhase, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	st := g.sim.Store()
	return st.Phase(), st.MatchPhase(), st.Player().Wave
}

// Seed returns the session's random seed
func (g *Game) Seed() int64 {
	return g.sim.Seed()
}

// Balance returns the session's balance tables
func (g *Game) Balance() *Balance {
	return g.sim.Balance()
}

// HandleInput buffers pilot input for the next tick
func (g *Game) HandleInput(id string, in ClientInput) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id != g.pilotID {
		return
	}
	g.input.Apply(in)
}

// HandleAction applies a pilot command. Returns false if it was rejected.
func (g *Game) HandleAction(id string, a ReplayAction) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if id != g.pilotID {
		return false
	}
	return g.applyAction(a)
}

// applyAction runs a command and records it for replay. Must hold mu.
func (g *Game) applyAction(a ReplayAction) bool {
	if !ApplyAction(g.sim, a) {
		return false
	}
	g.recorder.Action(a.Kind, a.Perk)
	switch a.Kind {
	case ActionStart, ActionRestart:
		g.runStart = g.sim.Store().Elapsed()
		g.runSaved = false
		g.input.Reset()
	case ActionPause, ActionMenu:
		g.input.Reset()
	}
	return true
}

// Snapshot captures the current simulation state
func (g *Game) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sim.Snapshot()
}

// RunLog returns everything recorded so far
func (g *Game) RunLog() RunLog {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.recorder.Log()
}

// update runs one game tick
func (g *Game) update() {
	g.mu.Lock()
	finished := g.step()
	g.mu.Unlock()

	if finished != nil {
		g.persistRun(finished)
	}
}

// step advances the simulation, flushes events and state, and returns a
// run that just ended. Must hold mu.
func (g *Game) step() *FinishedRun {
	g.frames++
	in := g.input.Consume()
	g.recorder.Frame(in)
	g.sim.Tick(in, 1.0/float64(g.tickRate))

	st := g.sim.Store()
	if events := st.ConsumeGameEvents(); len(events) > 0 {
		g.broadcastJSON(Envelope{T: MsgEvents, Data: EventsMsg{Tick: st.Tick(), Events: events}})
		g.trackEvents(events)
	}

	if g.frames%BroadcastEvery == 0 && st.Version() != g.lastVersion {
		g.lastVersion = st.Version()
		g.broadcastState()
	}

	if !st.MatchPhase().RunOver() || st.Phase() == PhaseMenu || g.runSaved {
		return nil
	}
	g.runSaved = true
	return g.finishRun()
}

// finishRun builds the record of the run that just ended. Must hold mu.
func (g *Game) finishRun() *FinishedRun {
	st := g.sim.Store()
	p := st.Player()
	run := &FinishedRun{
		Row: RunRow{
			ID:       GenerateUUID(),
			Score:    p.Score,
			Kills:    p.Kills,
			Wave:     p.Wave,
			Outcome:  st.MatchPhase(),
			Perks:    append([]PerkID(nil), p.Perks...),
			Duration: round2(st.Elapsed() - g.runStart),
			Seed:     g.sim.Seed(),
		},
	}
	if m, ok := g.members[g.pilotID]; ok {
		run.Pilot = *m
		run.Row.Name = m.name
		run.Row.PlayerID = m.authID
	}
	if data, err := g.recorder.Log().Encode(); err != nil {
		log.Printf("session %s: encode run log: %v", g.sessionID, err)
	} else {
		run.Row.Replay = data
	}
	log.Printf("session %s: run %s %s at wave %d, score %d", g.sessionID, run.Row.ID, run.Row.Outcome, run.Row.Wave, run.Row.Score)
	return run
}

// persistRun stores a finished run, folds it into the pilot's stats and
// tells the pilot what it earned
func (g *Game) persistRun(run *FinishedRun) {
	r := run.Row
	g.track(EvtRunEnd, r.PlayerID, map[string]interface{}{
		"run_id":   r.ID,
		"outcome":  r.Outcome,
		"wave":     r.Wave,
		"score":    r.Score,
		"kills":    r.Kills,
		"duration": r.Duration,
	})
	if g.db == nil {
		return
	}
	if err := g.db.RecordRun(r); err != nil {
		log.Printf("session %s: %v", g.sessionID, err)
		return
	}

	msg := RunRecordedMsg{RunID: r.ID, Outcome: r.Outcome, Score: r.Score}
	var unlocked []AchievementDef
	if r.PlayerID > 0 {
		xp, level, err := g.db.UpdateStatsAfterRun(r.PlayerID, r)
		if err != nil {
			log.Printf("session %s: update stats: %v", g.sessionID, err)
		}
		msg.XP, msg.Level = xp, level
		unlocked = CheckAchievements(g.db, r.PlayerID, r)
	}

	if run.Pilot.client == nil {
		return
	}
	run.Pilot.client.SendJSON(Envelope{T: MsgRunRecorded, Data: msg})
	for _, a := range unlocked {
		g.track(EvtAchievement, r.PlayerID, map[string]interface{}{"id": a.ID})
		run.Pilot.client.SendJSON(Envelope{T: MsgAchievement, Data: AchievementMsg{ID: a.ID, Name: a.Name, Description: a.Description}})
	}
}

// broadcastState sends the current state frame to all clients
func (g *Game) broadcastState() {
	data, err := msgpack.Marshal(NewGameState(g.sim.Store()))
	if err != nil {
		log.Printf("session %s: marshal state: %v", g.sessionID, err)
		return
	}
	for _, m := range g.members {
		m.client.SendBinary(data)
	}
}

// broadcastJSON sends a message to all clients in the session
func (g *Game) broadcastJSON(msg Envelope) {
	for _, m := range g.members {
		m.client.SendJSON(msg)
	}
}

// trackEvents forwards game events on behalf of the pilot. Must hold mu.
func (g *Game) trackEvents(events []GameEvent) {
	if g.analytics == nil {
		return
	}
	var pid int64
	if m, ok := g.members[g.pilotID]; ok {
		pid = m.authID
	}
	g.analytics.TrackGameEvents(pid, g.sessionID, events)
}

func (g *Game) track(evtType string, pid int64, data map[string]interface{}) {
	if g.analytics == nil {
		return
	}
	if data == nil {
		g.analytics.Track(evtType, pid, g.sessionID, "")
		return
	}
	g.analytics.TrackJSON(evtType, pid, g.sessionID, data)
}
