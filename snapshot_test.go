package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	src := newStartedSim(t)
	for i := 0; i < 60*4; i++ {
		in := scriptedInput(i)
		in.Firing = false
		src.Tick(in, testDT)
	}
	require.Greater(t, src.Store().EnemyCount(), 0)

	data, err := EncodeSnapshot(src.Snapshot())
	require.NoError(t, err)
	snap, err := DecodeSnapshot(data)
	require.NoError(t, err)

	dst := NewSimulation(SimulationConfig{Seed: 99})
	defer dst.Close()
	require.NoError(t, dst.Restore(snap))

	s, d := src.Store(), dst.Store()
	assert.Equal(t, s.Tick(), d.Tick())
	assert.Equal(t, s.Phase(), d.Phase())
	assert.Equal(t, s.MatchPhase(), d.MatchPhase())
	assert.Equal(t, s.Player(), d.Player())
	assert.Equal(t, s.Enemies(), d.Enemies())
	assert.Equal(t, s.Targets(), d.Targets())
	assert.Equal(t, s.SpawnState(), d.SpawnState())
	assert.Equal(t, src.Seed(), dst.Seed())

	so, _ := s.Objective()
	do, _ := d.Objective()
	assert.Equal(t, so, do)

	assert.Equal(t, s.EnemyCount(), dst.Registry().Count(EntityEnemy), "restored enemies are registered")
	assert.Equal(t, s.EnemyCount(), dst.ai.AgentCount(), "restored enemies are steered")
	assert.Greater(t, d.Version(), snap.StoreVersion)

	// The restored run keeps going
	dst.Tick(InputSnapshot{}, testDT)
	assert.Equal(t, s.Tick()+1, d.Tick())
}

func TestRestoreReplacesLiveEnemies(t *testing.T) {
	sim := newStartedSim(t)
	snap := sim.Snapshot()

	for i := 0; i < 60*4; i++ {
		sim.Tick(InputSnapshot{}, testDT)
	}
	require.Greater(t, sim.Store().EnemyCount(), 0)

	require.NoError(t, sim.Restore(snap))
	assert.Equal(t, 0, sim.Store().EnemyCount())
	assert.Equal(t, 0, sim.Registry().Count(EntityEnemy))
	assert.Equal(t, 0, sim.Store().PendingEvents())
}

func TestSnapshotVersionMismatch(t *testing.T) {
	sim := newStartedSim(t)
	snap := sim.Snapshot()
	snap.Version = SnapshotVersion + 1

	assert.ErrorIs(t, sim.Restore(snap), ErrSnapshotVersion)

	data, err := EncodeSnapshot(snap)
	require.NoError(t, err)
	_, err = DecodeSnapshot(data)
	assert.ErrorIs(t, err, ErrSnapshotVersion)

	_, err = DecodeSnapshot([]byte("not msgpack"))
	assert.Error(t, err)
}

func TestRunRecorderCompressesFrames(t *testing.T) {
	rec := NewRunRecorder(5, TickRate, DefaultBalance())
	idle := InputSnapshot{}
	fire := InputSnapshot{Firing: true}

	rec.Action(ActionStart, "")
	rec.Frame(idle)
	rec.Frame(idle)
	rec.Frame(idle)
	rec.Frame(fire)
	rec.Frame(fire)
	rec.Action(ActionPause, "")
	rec.Frame(fire)

	l := rec.Log()
	require.Len(t, l.Frames, 3)
	assert.Equal(t, 3, l.Frames[0].Count)
	assert.Equal(t, []ReplayAction{{Kind: ActionStart}}, l.Frames[0].Actions)
	assert.Equal(t, 2, l.Frames[1].Count)
	assert.Empty(t, l.Frames[1].Actions)
	assert.Equal(t, 1, l.Frames[2].Count, "an action starts a new frame even with the same input")
	assert.Equal(t, ActionPause, l.Frames[2].Actions[0].Kind)

	// Log returns a copy
	l.Frames[0].Count = 100
	assert.Equal(t, 3, rec.Log().Frames[0].Count)
}

func TestReplayReproducesRun(t *testing.T) {
	const seed = 11
	b := DefaultBalance()
	sim := NewSimulation(SimulationConfig{Balance: b, Seed: seed})
	defer sim.Close()
	rec := NewRunRecorder(seed, TickRate, b)

	apply := func(a ReplayAction) {
		require.True(t, ApplyAction(sim, a))
		rec.Action(a.Kind, a.Perk)
	}

	apply(ReplayAction{Kind: ActionStart})
	for i := 0; i < 60*15; i++ {
		if i == 300 {
			apply(ReplayAction{Kind: ActionPause})
		}
		if i == 360 {
			apply(ReplayAction{Kind: ActionPause})
		}
		in := scriptedInput(i)
		rec.Frame(in)
		sim.Tick(in, 1.0/TickRate)
	}

	data, err := rec.Log().Encode()
	require.NoError(t, err)
	l, err := DecodeRunLog(data)
	require.NoError(t, err)
	assert.Equal(t, int64(seed), l.Seed)
	assert.Equal(t, b, l.Balance)

	replayed := Replay(l, nil)
	defer replayed.Close()
	assert.Equal(t, sim.Snapshot(), replayed.Snapshot())
}

func TestApplyActionRejectsInvalid(t *testing.T) {
	sim := NewSimulation(SimulationConfig{Seed: 1})
	defer sim.Close()

	assert.False(t, ApplyAction(sim, ReplayAction{Kind: ActionPause}), "cannot pause in menu")
	assert.False(t, ApplyAction(sim, ReplayAction{Kind: ActionPerk, Perk: PerkOvercharge}))
	assert.False(t, ApplyAction(sim, ReplayAction{Kind: "dance"}))
	assert.True(t, ApplyAction(sim, ReplayAction{Kind: ActionStart}))
	assert.False(t, ApplyAction(sim, ReplayAction{Kind: ActionStart}), "already playing")
	assert.True(t, ApplyAction(sim, ReplayAction{Kind: ActionMenu}))
	assert.Equal(t, PhaseMenu, sim.Store().Phase())
}

func TestDecodeRunLogErrors(t *testing.T) {
	_, err := DecodeRunLog([]byte{0xc1})
	assert.Error(t, err)

	l := NewRunRecorder(1, TickRate, DefaultBalance()).Log()
	l.Version = RunLogVersion + 1
	data, err := l.Encode()
	require.NoError(t, err)
	_, err = DecodeRunLog(data)
	assert.ErrorIs(t, err, ErrRunLogVersion)
}
