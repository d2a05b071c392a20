package main

import "math/rand"

// SimulationConfig configures a Simulation
type SimulationConfig struct {
	Balance  *Balance
	Seed     int64
	Steering SteeringEngineFactory
}

// Simulation owns one run's store, spatial registry, steering director and
// wave engine, and advances them in a fixed order each tick:
// input, player movement, steering, enemy attacks, player fire, projectiles,
// pickups and effects, waves, match.
type Simulation struct {
	balance  *Balance
	seed     int64
	rng      *rand.Rand
	store    *Store
	registry *SpatialRegistry
	ai       *AIDirector
	waves    *WaveEngine

	playerHandle Handle
	blocks       []Handle
	enemyHandles map[EntityID]Handle
	entryBuf     []Entry
}

// NewSimulation builds a simulation in the menu phase
func NewSimulation(cfg SimulationConfig) *Simulation {
	b := cfg.Balance
	if b == nil {
		b = DefaultBalance()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	s := &Simulation{
		balance:      b,
		seed:         cfg.Seed,
		rng:          rng,
		registry:     NewSpatialRegistry(b.ArenaHalfExtent),
		ai:           NewAIDirector(b, cfg.Steering),
		enemyHandles: make(map[EntityID]Handle),
	}
	s.store = NewStore(b, rng)
	s.store.SetLifecycle(s)
	s.waves = NewWaveEngine(b, s.store, rng)
	s.playerHandle = s.registry.Register(EntityPlayer, 0, s.store.Player().Position, b.PlayerHitRadius)
	s.registerBlocks()
	return s
}

func (s *Simulation) Store() *Store { return s.store }
func (s *Simulation) Registry() *SpatialRegistry { return s.registry }
func (s *Simulation) Balance() *Balance { return s.balance }
func (s *Simulation) Seed() int64 { return s.seed }
func (s *Simulation) SteeringReady() bool { return s.ai.Ready() }

// EnemyAdded registers a new enemy's body and steering agent
func (s *Simulation) EnemyAdded(e Enemy) {
	radius := 1.0
	if def, ok := s.balance.Archetype(e.Archetype); ok && def.HitRadius > 0 {
		radius = def.HitRadius
	}
	s.enemyHandles[e.ID] = s.registry.Register(EntityEnemy, e.ID, e.Position, radius)
	s.ai.EnemyAdded(e)
}

// EnemyRemoved releases everything EnemyAdded acquired
func (s *Simulation) EnemyRemoved(e Enemy) {
	if h, ok := s.enemyHandles[e.ID]; ok {
		s.registry.Unregister(h)
		delete(s.enemyHandles, e.ID)
	}
	s.ai.EnemyRemoved(e)
}

// running reports whether the current tick may keep mutating gameplay state
func (s *Simulation) running() bool {
	return s.store.SimulationActive()
}

// Tick advances the simulation by dt seconds. Nothing advances unless the
// game is playing and the run is in prewave or combat.
func (s *Simulation) Tick(in InputSnapshot, dt float64) {
	if !s.running() {
		return
	}
	s.store.AdvanceClock(dt)
	s.store.SetInput(in)

	s.updateCamera(in)
	s.movePlayer(in, dt)
	s.moveEnemies(dt)
	if s.running() {
		s.resolveEnemyAttacks(dt)
	}
	if s.running() {
		s.updateWeapon(in, dt)
		s.resolveProjectiles(dt)
	}
	if s.running() {
		s.updatePowerUps(dt)
	}
	s.store.UpdateParticles(dt)
	s.store.DecayShake(dt)
	if s.running() {
		s.waves.Update(dt)
	}
	s.updateMatch(dt)
}

// Start begins a run
func (s *Simulation) Start() bool {
	if !s.store.StartGame() {
		return false
	}
	s.resetPlayer()
	return true
}

// Restart abandons the current run and begins another
func (s *Simulation) Restart() {
	s.store.RestartGame()
	s.resetPlayer()
}

// TogglePause pauses or resumes
func (s *Simulation) TogglePause() bool {
	return s.store.TogglePause()
}

// GoToMenu abandons the run
func (s *Simulation) GoToMenu() {
	s.store.GoToMenu()
	s.resetPlayer()
}

// GrantPerk picks an offered perk
func (s *Simulation) GrantPerk(id PerkID) bool {
	return s.store.GrantRunPerk(id)
}

func (s *Simulation) resetPlayer() {
	s.registry.Update(s.playerHandle, s.store.Player().Position)
}

// Close releases every registration the simulation holds
func (s *Simulation) Close() {
	s.store.GoToMenu()
	s.ai.Reset()
	for _, h := range s.blocks {
		s.registry.Unregister(h)
	}
	s.blocks = nil
	s.registry.Unregister(s.playerHandle)
}
