package main

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	SnapshotVersion = 1
	RunLogVersion   = 1
)

var (
	ErrSnapshotVersion = errors.New("snapshot: unsupported version")
	ErrRunLogVersion   = errors.New("replay: unsupported run log version")
)

// Snapshot is the complete simulation state as a flat record
type Snapshot struct {
	Version      int         `msgpack:"v"`
	Seed         int64       `msgpack:"seed"`
	Tick         uint64      `msgpack:"tick"`
	Elapsed      float64     `msgpack:"elapsed"`
	StoreVersion uint64      `msgpack:"sv"`
	NextID       EntityID    `msgpack:"nextId"`
	Phase        GamePhase   `msgpack:"phase"`
	MatchPhase   MatchPhase  `msgpack:"match"`
	Player       Player      `msgpack:"player"`
	Enemies      []Enemy     `msgpack:"enemies"`
	Lasers       []Laser     `msgpack:"lasers"`
	Targets      []Target    `msgpack:"targets"`
	Particles    []Particle  `msgpack:"particles"`
	PowerUps     []PowerUp   `msgpack:"powerUps"`
	Objective    *Objective  `msgpack:"objective"`
	PerkOptions  []PerkID    `msgpack:"perkOptions"`
	Spawn        SpawnState  `msgpack:"spawn"`
	Camera       CameraState `msgpack:"camera"`
	Aim          AimState    `msgpack:"aim"`
	Shake        float64     `msgpack:"shake"`
	Announcement float64     `msgpack:"announce"`
}

// Snapshot copies the store into a flat record
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Version:      SnapshotVersion,
		Tick:         s.tick,
		Elapsed:      s.elapsed,
		StoreVersion: s.version,
		NextID:       s.nextID,
		Phase:        s.phase,
		MatchPhase:   s.matchPhase,
		Player:       s.player.clone(),
		Enemies:      s.Enemies(),
		Lasers:       s.Lasers(),
		Targets:      s.Targets(),
		Particles:    s.Particles(),
		PowerUps:     s.PowerUps(),
		PerkOptions:  s.PerkOptions(),
		Spawn:        s.spawn,
		Camera:       s.camera,
		Aim:          s.aim,
		Shake:        s.shake,
		Announcement: s.announce,
	}
	if s.objective != nil {
		o := *s.objective
		snap.Objective = &o
	}
	return snap
}

// restore replaces the store contents with a snapshot. Current enemies are
// released and restored enemies re-acquired through the lifecycle observer.
func (s *Store) restore(snap Snapshot) {
	for len(s.enemies) > 0 {
		s.removeEnemyAt(len(s.enemies) - 1)
	}
	s.tick = snap.Tick
	s.elapsed = snap.Elapsed
	s.nextID = snap.NextID
	s.phase = snap.Phase
	s.matchPhase = snap.MatchPhase
	s.player = snap.Player.clone()
	s.lasers = nil
	for _, l := range snap.Lasers {
		l := l
		s.lasers = append(s.lasers, &l)
	}
	s.targets = append([]Target(nil), snap.Targets...)
	s.particles = append([]Particle(nil), snap.Particles...)
	s.powerUps = append([]PowerUp(nil), snap.PowerUps...)
	s.objective = nil
	if snap.Objective != nil {
		o := *snap.Objective
		s.objective = &o
	}
	s.perkOptions = append([]PerkID(nil), snap.PerkOptions...)
	s.spawn = snap.Spawn
	s.camera = snap.Camera
	s.aim = snap.Aim
	s.input = InputSnapshot{}
	s.shake = snap.Shake
	s.announce = snap.Announcement
	s.events = nil
	for _, e := range snap.Enemies {
		e := e
		s.enemies = append(s.enemies, &e)
		if s.lifecycle != nil {
			s.lifecycle.EnemyAdded(e)
		}
	}
	s.version = snap.StoreVersion
	s.touch()
}

// Snapshot captures the simulation state
func (s *Simulation) Snapshot() Snapshot {
	snap := s.store.Snapshot()
	snap.Seed = s.seed
	return snap
}

// Restore loads a snapshot. The random source is reseeded from the
// snapshot's seed and tick, so a restored run continues deterministically
// but not identically to the run it was taken from.
func (s *Simulation) Restore(snap Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}
	s.seed = snap.Seed
	s.rng.Seed(snap.Seed + int64(snap.Tick))
	s.store.restore(snap)
	s.resetPlayer()
	return nil
}

// EncodeSnapshot serializes a snapshot with msgpack
func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	return msgpack.Marshal(&snap)
}

// DecodeSnapshot parses a msgpack snapshot
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return Snapshot{}, fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}
	return snap, nil
}

// ReplayAction is a player command applied before a frame's tick
type ReplayAction struct {
	Kind string `msgpack:"k"`
	Perk PerkID `msgpack:"p,omitempty"`
}

// Replay action kinds
const (
	ActionStart   = "start"
	ActionRestart = "restart"
	ActionPause   = "pause"
	ActionMenu    = "menu"
	ActionPerk    = "perk"
)

// ReplayFrame is Count consecutive ticks sharing one input. Actions run
// before the first of them.
type ReplayFrame struct {
	Count   int            `msgpack:"n"`
	Input   InputSnapshot  `msgpack:"in"`
	Actions []ReplayAction `msgpack:"a,omitempty"`
}

// RunLog is everything needed to replay a run: seed, balance and inputs
type RunLog struct {
	Version  int           `msgpack:"v"`
	Seed     int64         `msgpack:"seed"`
	TickRate int           `msgpack:"rate"`
	Balance  *Balance      `msgpack:"balance"`
	Frames   []ReplayFrame `msgpack:"frames"`
}

// RunRecorder builds a RunLog as a session plays
type RunRecorder struct {
	log     RunLog
	pending []ReplayAction
}

// NewRunRecorder starts recording a run
func NewRunRecorder(seed int64, tickRate int, b *Balance) *RunRecorder {
	return &RunRecorder{log: RunLog{Version: RunLogVersion, Seed: seed, TickRate: tickRate, Balance: b}}
}

// Action queues a command for the next recorded tick
func (r *RunRecorder) Action(kind string, perk PerkID) {
	r.pending = append(r.pending, ReplayAction{Kind: kind, Perk: perk})
}

// Frame records one tick's input
func (r *RunRecorder) Frame(in InputSnapshot) {
	frames := r.log.Frames
	if n := len(frames); n > 0 && len(r.pending) == 0 && frames[n-1].Input == in {
		frames[n-1].Count++
		return
	}
	r.log.Frames = append(frames, ReplayFrame{Count: 1, Input: in, Actions: r.pending})
	r.pending = nil
}

// Log returns the recorded run
func (r *RunRecorder) Log() RunLog {
	out := r.log
	out.Frames = append([]ReplayFrame(nil), r.log.Frames...)
	return out
}

// Encode serializes the run log with msgpack
func (l RunLog) Encode() ([]byte, error) {
	return msgpack.Marshal(&l)
}

// DecodeRunLog parses a msgpack run log
func DecodeRunLog(data []byte) (RunLog, error) {
	var l RunLog
	if err := msgpack.Unmarshal(data, &l); err != nil {
		return RunLog{}, fmt.Errorf("decode run log: %w", err)
	}
	if l.Version != RunLogVersion {
		return RunLog{}, fmt.Errorf("%w: %d", ErrRunLogVersion, l.Version)
	}
	return l, nil
}

// Replay re-runs a log on a fresh simulation and returns it
func Replay(l RunLog, steering SteeringEngineFactory) *Simulation {
	sim := NewSimulation(SimulationConfig{Balance: l.Balance, Seed: l.Seed, Steering: steering})
	rate := l.TickRate
	if rate <= 0 {
		rate = TickRate
	}
	dt := 1.0 / float64(rate)
	for _, f := range l.Frames {
		for _, a := range f.Actions {
			ApplyAction(sim, a)
		}
		for i := 0; i < f.Count; i++ {
			sim.Tick(f.Input, dt)
		}
	}
	return sim
}

// ApplyAction runs a recorded command against a simulation
func ApplyAction(sim *Simulation, a ReplayAction) bool {
	switch a.Kind {
	case ActionStart:
		return sim.Start()
	case ActionRestart:
		sim.Restart()
		return true
	case ActionPause:
		return sim.TogglePause()
	case ActionMenu:
		sim.GoToMenu()
		return true
	case ActionPerk:
		return sim.GrantPerk(a.Perk)
	}
	return false
}
