package main

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlayingStore(t *testing.T) *Store {
	t.Helper()
	st := NewStore(DefaultBalance(), rand.New(rand.NewSource(1)))
	require.True(t, st.StartGame())
	st.ConsumeGameEvents()
	return st
}

func eventsOfType(events []GameEvent, typ EventType) []GameEvent {
	var out []GameEvent
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// lifecycleRecorder captures enemy lifecycle notifications
type lifecycleRecorder struct {
	added   []EntityID
	removed []EntityID
}

func (l *lifecycleRecorder) EnemyAdded(e Enemy)   { l.added = append(l.added, e.ID) }
func (l *lifecycleRecorder) EnemyRemoved(e Enemy) { l.removed = append(l.removed, e.ID) }

func TestStoreStartsInMenu(t *testing.T) {
	st := NewStore(DefaultBalance(), rand.New(rand.NewSource(1)))
	assert.Equal(t, PhaseMenu, st.Phase())
	assert.Equal(t, MatchPrewave, st.MatchPhase())
	assert.False(t, st.SimulationActive())

	p := st.Player()
	assert.Equal(t, 1, p.Wave)
	assert.Equal(t, 100.0, p.Health)
	assert.Equal(t, WeaponPulseRifle, p.Weapon)
}

func TestStoreStartGamePlacesTargets(t *testing.T) {
	st := newPlayingStore(t)
	assert.Equal(t, PhasePlaying, st.Phase())
	assert.True(t, st.SimulationActive())
	assert.Len(t, st.Targets(), len(DefaultBalance().TargetPoints))
}

func TestStoreAddEnemyDefaults(t *testing.T) {
	st := newPlayingStore(t)

	id := st.AddEnemy(EnemySpawn{Position: mgl64.Vec3{5, 0, 5}, Archetype: ArchetypeBrute})
	e, ok := st.Enemy(id)
	require.True(t, ok)
	assert.InDelta(t, 30*2.7, e.MaxHealth, 1e-9)
	assert.Equal(t, e.MaxHealth, e.Health)
	assert.True(t, e.IsElite)
	assert.Equal(t, KindZombieCat, e.Kind)
	assert.Equal(t, EnemySpawnGrace, e.AttackCD)

	id = st.AddEnemy(EnemySpawn{})
	e, _ = st.Enemy(id)
	assert.Equal(t, ArchetypeRusher, e.Archetype)
	assert.Equal(t, KindZombieRat, e.Kind)
	assert.False(t, e.IsElite)

	id = st.AddEnemy(EnemySpawn{Archetype: ArchetypeMiniboss})
	e, _ = st.Enemy(id)
	assert.Equal(t, 1, e.Phase)
	assert.Equal(t, KindMechaCat, e.Kind)
}

func TestStoreEntityIDsAreUnique(t *testing.T) {
	st := newPlayingStore(t)
	seen := make(map[EntityID]bool)
	for _, tg := range st.Targets() {
		seen[tg.ID] = true
	}
	for i := 0; i < 20; i++ {
		id := st.AddEnemy(EnemySpawn{})
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
		lid := st.AddLaser(LaserSpawn{Direction: mgl64.Vec3{0, 0, 1}, Speed: 1, Life: 1})
		require.False(t, seen[lid], "duplicate id %d", lid)
		seen[lid] = true
	}
}

func TestStoreDamageEnemy(t *testing.T) {
	st := newPlayingStore(t)
	id := st.AddEnemy(EnemySpawn{MaxHealth: 20})

	assert.False(t, st.DamageEnemy(id, 5))
	e, _ := st.Enemy(id)
	assert.Equal(t, 15.0, e.Health)

	assert.False(t, st.DamageEnemy(id, 0), "zero damage is ignored")
	assert.False(t, st.DamageEnemy(9999, 50), "absent id is ignored")

	assert.True(t, st.DamageEnemy(id, 100))
	_, ok := st.Enemy(id)
	assert.False(t, ok)
	assert.Equal(t, 0, st.EnemyCount())

	p := st.Player()
	assert.Equal(t, 0, p.Score, "DamageEnemy never credits rewards")
	assert.Equal(t, 0, p.Kills)
}

func TestStoreMinibossPhaseEvents(t *testing.T) {
	st := newPlayingStore(t)
	id := st.AddEnemy(EnemySpawn{Archetype: ArchetypeMiniboss, MaxHealth: 100})

	st.DamageEnemy(id, 10) // 0.9: still phase 1
	assert.Empty(t, eventsOfType(st.ConsumeGameEvents(), EventMinibossPhase))

	st.DamageEnemy(id, 30) // 0.6
	phases := eventsOfType(st.ConsumeGameEvents(), EventMinibossPhase)
	require.Len(t, phases, 1)
	assert.Equal(t, 2, phases[0].Data.Phase)
	assert.Equal(t, id, phases[0].Data.EnemyID)

	st.DamageEnemy(id, 40) // 0.2
	phases = eventsOfType(st.ConsumeGameEvents(), EventMinibossPhase)
	require.Len(t, phases, 1)
	assert.Equal(t, 3, phases[0].Data.Phase)
}

func TestMinibossPhase(t *testing.T) {
	tests := []struct {
		ratio float64
		want  int
	}{
		{1, 1}, {0.67, 1}, {0.66, 2}, {0.34, 2}, {0.33, 3}, {0, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MinibossPhase(tt.ratio), "ratio %v", tt.ratio)
	}
}

func TestStoreNeutralizeEnemyCountsWithoutReward(t *testing.T) {
	st := newPlayingStore(t)
	id := st.AddEnemy(EnemySpawn{Archetype: ArchetypeRusher})

	assert.True(t, st.NeutralizeEnemy(id))
	assert.False(t, st.NeutralizeEnemy(id))

	p := st.Player()
	assert.Equal(t, 1, p.WaveKills)
	assert.Equal(t, 0, p.Kills)
	assert.Equal(t, 0, p.Score)
}

func TestStoreCreditKill(t *testing.T) {
	st := newPlayingStore(t)
	st.CreditKill(250)
	st.CreditKill(100)
	p := st.Player()
	assert.Equal(t, 350, p.Score)
	assert.Equal(t, 2, p.Kills)
	assert.Equal(t, 2, p.WaveKills)
}

func TestStoreTakeDamageEndsRun(t *testing.T) {
	st := newPlayingStore(t)

	st.TakeDamage(40)
	assert.Equal(t, 60.0, st.Player().Health)
	assert.Equal(t, PhasePlaying, st.Phase())

	st.TakeDamage(500)
	assert.Equal(t, 0.0, st.Player().Health)
	assert.Equal(t, PhaseGameOver, st.Phase())
	assert.Equal(t, MatchFailed, st.MatchPhase())
	assert.False(t, st.SimulationActive())

	died := eventsOfType(st.ConsumeGameEvents(), EventPlayerDied)
	require.Len(t, died, 1)
	assert.Equal(t, MatchFailed, died[0].Data.Outcome)

	st.TakeDamage(10)
	assert.Empty(t, st.ConsumeGameEvents(), "damage after death is ignored")
}

func TestStoreHealAfterDeathIsIgnored(t *testing.T) {
	st := newPlayingStore(t)
	st.TakeDamage(60)
	require.Equal(t, 40.0, st.Player().Health)

	st.TakeDamage(45)
	assert.Equal(t, 0.0, st.Player().Health)
	assert.Equal(t, PhaseGameOver, st.Phase())
	assert.Equal(t, MatchFailed, st.MatchPhase())

	v := st.Version()
	st.Heal(10)
	assert.Equal(t, 0.0, st.Player().Health)
	assert.Equal(t, v, st.Version())
}

func TestStoreHealCapsAtMax(t *testing.T) {
	st := newPlayingStore(t)
	st.TakeDamage(30)
	st.Heal(10)
	assert.Equal(t, 80.0, st.Player().Health)
	st.Heal(1000)
	assert.Equal(t, 100.0, st.Player().Health)
}

func TestStoreVersionTracksMutations(t *testing.T) {
	st := newPlayingStore(t)
	v := st.Version()

	st.Player()
	st.Enemies()
	st.Targets()
	assert.Equal(t, v, st.Version(), "reads must not bump the version")

	st.AddEnemy(EnemySpawn{})
	assert.Greater(t, st.Version(), v)
}

func TestStoreEventsDrainOnceInOrder(t *testing.T) {
	st := newPlayingStore(t)
	st.PushGameEvent(EventShot, EventPayload{Weapon: WeaponPulseRifle})
	st.PushGameEvent(EventEnemyHit, EventPayload{Amount: 3})
	st.PushGameEvent(EventEnemyKilled, EventPayload{Reward: 100})
	assert.Equal(t, 3, st.PendingEvents())

	events := st.ConsumeGameEvents()
	require.Len(t, events, 3)
	assert.Equal(t, EventShot, events[0].Type)
	assert.Equal(t, EventEnemyHit, events[1].Type)
	assert.Equal(t, EventEnemyKilled, events[2].Type)
	assert.Less(t, events[0].Seq, events[1].Seq)
	assert.Less(t, events[1].Seq, events[2].Seq)

	assert.Empty(t, st.ConsumeGameEvents())
	assert.Equal(t, 0, st.PendingEvents())
}

func TestStorePhaseTransitions(t *testing.T) {
	st := NewStore(DefaultBalance(), rand.New(rand.NewSource(1)))

	assert.False(t, st.TogglePause(), "cannot pause from menu")
	assert.True(t, st.StartGame())
	assert.False(t, st.StartGame(), "already playing")

	assert.True(t, st.TogglePause())
	assert.Equal(t, PhasePaused, st.Phase())
	assert.False(t, st.SimulationActive())
	assert.False(t, st.StartGame(), "cannot start while paused")
	assert.True(t, st.TogglePause())
	assert.Equal(t, PhasePlaying, st.Phase())

	st.AddEnemy(EnemySpawn{})
	st.CreditKill(100)
	st.GoToMenu()
	assert.Equal(t, PhaseMenu, st.Phase())
	assert.Equal(t, 0, st.EnemyCount())
	assert.Equal(t, 0, st.Player().Score)

	require.True(t, st.StartGame())
	st.TakeDamage(1000)
	assert.True(t, st.StartGame(), "start again after game over")
	assert.Equal(t, MatchPrewave, st.MatchPhase())
	assert.Equal(t, 100.0, st.Player().Health)
}

func TestStoreRestartResetsRun(t *testing.T) {
	st := newPlayingStore(t)
	st.AddEnemy(EnemySpawn{})
	st.CreditKill(100)
	st.NextWave()
	st.AddLaser(LaserSpawn{Direction: mgl64.Vec3{1, 0, 0}, Speed: 1, Life: 1})

	st.RestartGame()
	p := st.Player()
	assert.Equal(t, PhasePlaying, st.Phase())
	assert.Equal(t, 1, p.Wave)
	assert.Equal(t, 0, p.Score)
	assert.Equal(t, 0, st.EnemyCount())
	assert.Empty(t, st.Lasers())
}

func TestStoreLifecycleObserver(t *testing.T) {
	st := newPlayingStore(t)
	rec := &lifecycleRecorder{}
	st.SetLifecycle(rec)

	a := st.AddEnemy(EnemySpawn{})
	b := st.AddEnemy(EnemySpawn{MaxHealth: 1})
	c := st.AddEnemy(EnemySpawn{})
	assert.Equal(t, []EntityID{a, b, c}, rec.added)

	st.DamageEnemy(b, 5)
	st.RemoveEnemy(a)
	st.RemoveEnemy(a)
	assert.Equal(t, []EntityID{b, a}, rec.removed)

	st.GoToMenu()
	assert.Equal(t, []EntityID{b, a, c}, rec.removed)
}

func TestStoreLaserStepAndExpiry(t *testing.T) {
	st := newPlayingStore(t)
	id := st.AddLaser(LaserSpawn{Direction: mgl64.Vec3{0, 0, 2}, Speed: 10, Life: 0.15})

	l, alive := st.StepLaser(id, 0.1)
	require.True(t, alive)
	assert.InDelta(t, 1.0, l.Position.Z(), 1e-9, "direction is normalized")

	_, alive = st.StepLaser(id, 0.1)
	assert.False(t, alive)
	assert.Empty(t, st.Lasers())
}

func TestStoreWeaponSwap(t *testing.T) {
	st := newPlayingStore(t)
	assert.False(t, st.SetSelectedWeapon("railgun"))
	assert.False(t, st.SetSelectedWeapon(WeaponPulseRifle), "already selected")
	assert.True(t, st.SetSelectedWeapon(WeaponArcMarksman))
	assert.Equal(t, WeaponArcMarksman, st.Player().Weapon)

	swaps := eventsOfType(st.ConsumeGameEvents(), EventWeaponSwitched)
	require.Len(t, swaps, 1)
	assert.Equal(t, WeaponArcMarksman, swaps[0].Data.Weapon)
}

func TestStoreObjectiveIsMonotonic(t *testing.T) {
	st := newPlayingStore(t)
	def, _ := DefaultBalance().Objective(2)
	st.BeginWave(def, 1)
	assert.Equal(t, MatchCombat, st.MatchPhase())
	assert.True(t, st.AnnouncementVisible())

	st.UpdateObjective(0.5, 20)
	st.UpdateObjective(0.2, 25)
	o, ok := st.Objective()
	require.True(t, ok)
	assert.Equal(t, 0.5, o.Progress, "progress never decreases")
	assert.Equal(t, 20.0, o.Timer, "timer never increases")

	st.UpdateObjective(5, 10)
	o, _ = st.Objective()
	assert.Equal(t, o.Target, o.Progress, "progress is capped at target")

	st.CompleteObjective()
	st.UpdateObjective(0, 0)
	o, _ = st.Objective()
	assert.True(t, o.Completed)
	assert.Equal(t, 10.0, o.Timer, "completed objectives are frozen")
}

func TestStoreGrantRunPerk(t *testing.T) {
	st := newPlayingStore(t)
	assert.False(t, st.GrantRunPerk(PerkFortified), "not in perk selection")

	st.perkOptions = []PerkID{PerkFortified, PerkOvercharge}
	st.matchPhase = MatchPerkSelect

	assert.False(t, st.GrantRunPerk(PerkShockwave), "not on offer")
	assert.False(t, st.GrantRunPerk("bogus"))

	require.True(t, st.GrantRunPerk(PerkFortified))
	p := st.Player()
	assert.Equal(t, MatchPrewave, st.MatchPhase())
	assert.Equal(t, []PerkID{PerkFortified}, p.Perks)
	assert.Equal(t, 135.0, p.MaxHealth)
	assert.Equal(t, 135.0, p.Health)
	assert.Empty(t, st.PerkOptions())

	// Granting a held perk again changes no stats
	st.perkOptions = []PerkID{PerkFortified}
	st.matchPhase = MatchPerkSelect
	require.True(t, st.GrantRunPerk(PerkFortified))
	p = st.Player()
	assert.Len(t, p.Perks, 1)
	assert.Equal(t, 135.0, p.MaxHealth)
}

func TestStoreRollPerkOptions(t *testing.T) {
	st := newPlayingStore(t)
	st.RollPerkOptions()
	assert.Equal(t, MatchPerkSelect, st.MatchPhase())
	opts := st.PerkOptions()
	assert.Len(t, opts, 3)

	offers := eventsOfType(st.ConsumeGameEvents(), EventPerkOffer)
	require.Len(t, offers, 1)
	assert.Equal(t, opts, offers[0].Data.Perks)
}

func TestStorePowerUpLifetime(t *testing.T) {
	st := newPlayingStore(t)
	id := st.SpawnPowerUp(mgl64.Vec3{1, 0, 1}, PowerUpRepair)
	require.Len(t, st.PowerUps(), 1)

	st.UpdatePowerUps(29)
	assert.Len(t, st.PowerUps(), 1)
	st.UpdatePowerUps(2)
	assert.Empty(t, st.PowerUps())

	_, ok := st.CollectPowerUp(id)
	assert.False(t, ok)
}

func TestStoreParticlesAreCapped(t *testing.T) {
	st := newPlayingStore(t)
	for i := 0; i < 50; i++ {
		st.AddParticles(mgl64.Vec3{}, ColorKill, 30)
	}
	assert.Len(t, st.Particles(), DefaultBalance().MaxParticles)

	st.UpdateParticles(0.6)
	assert.Empty(t, st.Particles(), "life 1.0 decays at 2/s")
}
