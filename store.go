package main

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// EntityID identifies an entity for the lifetime of a store
type EntityID uint64

// EntityLifecycle is notified synchronously when enemies enter or leave the
// store, so spatial and steering registrations are paired with the store's
// own view of live entities.
type EntityLifecycle interface {
	EnemyAdded(e Enemy)
	EnemyRemoved(e Enemy)
}

// SpawnState tracks the wave engine's spawn budget for the current wave
type SpawnState struct {
	Wave            int     `msgpack:"wave"`
	Spawned         int     `msgpack:"spawned"`
	SinceLastSpawn  float64 `msgpack:"sinceLastSpawn"`
	ElitesSpawned   int     `msgpack:"elitesSpawned"`
	MinibossSpawned int     `msgpack:"minibossSpawned"`
}

// Store is the single source of truth for a simulation. Every exported
// mutation leaves the store consistent; invalid ids are ignored.
type Store struct {
	balance   *Balance
	rng       *rand.Rand
	lifecycle EntityLifecycle

	version  uint64
	nextID   EntityID
	eventSeq uint64
	tick     uint64
	elapsed  float64

	phase       GamePhase
	matchPhase  MatchPhase
	player      Player
	enemies     []*Enemy
	lasers      []*Laser
	targets     []Target
	particles   []Particle
	powerUps    []PowerUp
	objective   *Objective
	perkOptions []PerkID
	spawn       SpawnState
	camera      CameraState
	aim         AimState
	input       InputSnapshot
	shake       float64
	announce    float64
	events      []GameEvent
}

// NewStore creates a store in the menu phase
func NewStore(b *Balance, rng *rand.Rand) *Store {
	s := &Store{
		balance:    b,
		rng:        rng,
		phase:      PhaseMenu,
		matchPhase: MatchPrewave,
		camera:     DefaultCamera(),
	}
	s.player = s.freshPlayer()
	return s
}

// SetLifecycle installs the enemy lifecycle observer
func (s *Store) SetLifecycle(l EntityLifecycle) {
	s.lifecycle = l
}

func (s *Store) touch() {
	s.version++
}

func (s *Store) allocID() EntityID {
	s.nextID++
	return s.nextID
}

// Version increases on every mutation
func (s *Store) Version() uint64 { return s.version }

// Tick returns the number of simulated ticks
func (s *Store) Tick() uint64 { return s.tick }

// Elapsed returns simulated seconds
func (s *Store) Elapsed() float64 { return s.elapsed }

// AdvanceClock records one simulated tick
func (s *Store) AdvanceClock(dt float64) {
	s.tick++
	s.elapsed += dt
	s.touch()
}

func (s *Store) Phase() GamePhase { return s.phase }
func (s *Store) MatchPhase() MatchPhase { return s.matchPhase }
func (s *Store) Player() Player { return s.player.clone() }
func (s *Store) Camera() CameraState { return s.camera }
func (s *Store) Aim() AimState { return s.aim }
func (s *Store) Input() InputSnapshot { return s.input }
func (s *Store) Shake() float64 { return s.shake }
func (s *Store) SpawnState() SpawnState { return s.spawn }
func (s *Store) AnnouncementVisible() bool { return s.announce > 0 }

// Objective returns a copy of the active objective
func (s *Store) Objective() (Objective, bool) {
	if s.objective == nil {
		return Objective{}, false
	}
	return *s.objective, true
}

// PerkOptions returns the perks currently on offer
func (s *Store) PerkOptions() []PerkID {
	return append([]PerkID(nil), s.perkOptions...)
}

// SimulationActive reports whether gameplay systems should advance
func (s *Store) SimulationActive() bool {
	if s.phase != PhasePlaying {
		return false
	}
	return s.matchPhase == MatchPrewave || s.matchPhase == MatchCombat
}

// --- enemies ---

// AddEnemy spawns an enemy, filling unset fields from the balance tables
func (s *Store) AddEnemy(spawn EnemySpawn) EntityID {
	arch := spawn.Archetype
	if arch == "" {
		arch = s.balance.DefaultArchetype
	}
	def, _ := s.balance.Archetype(arch)
	kind := spawn.Kind
	if kind == "" {
		kind = def.Kind
	}
	if kind == "" {
		kind = s.balance.DefaultEnemyKind
	}
	maxHealth := spawn.MaxHealth
	if maxHealth <= 0 {
		mult := def.HealthMultiplier
		if mult <= 0 {
			mult = 1
		}
		maxHealth = s.balance.EnemyHealthForWave(s.player.Wave) * mult
	}
	e := &Enemy{
		ID:        s.allocID(),
		Position:  spawn.Position,
		Health:    maxHealth,
		MaxHealth: maxHealth,
		Archetype: arch,
		Kind:      kind,
		IsElite:   spawn.Elite || def.IsElite,
		AttackCD:  EnemySpawnGrace,
	}
	if arch == ArchetypeMiniboss {
		e.Phase = 1
	}
	s.enemies = append(s.enemies, e)
	s.touch()
	if s.lifecycle != nil {
		s.lifecycle.EnemyAdded(*e)
	}
	return e.ID
}

func (s *Store) enemyIndex(id EntityID) int {
	for i, e := range s.enemies {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Enemy returns a copy of a live enemy
func (s *Store) Enemy(id EntityID) (Enemy, bool) {
	i := s.enemyIndex(id)
	if i < 0 {
		return Enemy{}, false
	}
	return *s.enemies[i], true
}

// Enemies returns copies of all live enemies in spawn order
func (s *Store) Enemies() []Enemy {
	out := make([]Enemy, len(s.enemies))
	for i, e := range s.enemies {
		out[i] = *e
	}
	return out
}

// EnemyCount returns the number of live enemies
func (s *Store) EnemyCount() int { return len(s.enemies) }

// DamageEnemy applies damage and removes the enemy when health reaches zero.
// It never credits rewards; callers do that only when killed is true.
func (s *Store) DamageEnemy(id EntityID, amount float64) (killed bool) {
	i := s.enemyIndex(id)
	if i < 0 || amount <= 0 {
		return false
	}
	e := s.enemies[i]
	e.Health -= amount
	s.touch()
	if e.Health <= 0 {
		e.Health = 0
		s.removeEnemyAt(i)
		return true
	}
	if e.Archetype == ArchetypeMiniboss {
		phase := MinibossPhase(e.Health / e.MaxHealth)
		if phase != e.Phase {
			e.Phase = phase
			s.PushGameEvent(EventMinibossPhase, EventPayload{EnemyID: e.ID, Phase: phase})
		}
	}
	return false
}

func (s *Store) removeEnemyAt(i int) {
	e := s.enemies[i]
	copy(s.enemies[i:], s.enemies[i+1:])
	s.enemies[len(s.enemies)-1] = nil
	s.enemies = s.enemies[:len(s.enemies)-1]
	s.touch()
	if s.lifecycle != nil {
		s.lifecycle.EnemyRemoved(*e)
	}
}

// RemoveEnemy removes an enemy without reward; absent ids are a no-op
func (s *Store) RemoveEnemy(id EntityID) bool {
	i := s.enemyIndex(id)
	if i < 0 {
		return false
	}
	s.removeEnemyAt(i)
	return true
}

// NeutralizeEnemy removes an enemy that destroyed itself. It pays no score
// but counts toward the wave's kill objective.
func (s *Store) NeutralizeEnemy(id EntityID) bool {
	if !s.RemoveEnemy(id) {
		return false
	}
	s.player.WaveKills++
	return true
}

// MoveEnemy commits a resolved enemy transform
func (s *Store) MoveEnemy(id EntityID, pos mgl64.Vec3, yaw float64) {
	if i := s.enemyIndex(id); i >= 0 {
		s.enemies[i].Position = pos
		s.enemies[i].Yaw = yaw
		s.touch()
	}
}

// TickEnemyCooldowns counts attack cooldowns down by dt
func (s *Store) TickEnemyCooldowns(dt float64) {
	for _, e := range s.enemies {
		if e.AttackCD > 0 {
			e.AttackCD = math.Max(0, e.AttackCD-dt)
		}
	}
}

// SetEnemyCooldown restarts an enemy's attack cooldown
func (s *Store) SetEnemyCooldown(id EntityID, cd float64) {
	if i := s.enemyIndex(id); i >= 0 {
		s.enemies[i].AttackCD = cd
		s.touch()
	}
}

// CreditKill pays a kill reward
func (s *Store) CreditKill(reward int) {
	s.player.Score += reward
	s.player.Kills++
	s.player.WaveKills++
	s.touch()
}

// --- player ---

func (s *Store) freshPlayer() Player {
	return Player{
		Health:    s.balance.PlayerMaxHealth,
		MaxHealth: s.balance.PlayerMaxHealth,
		Weapon:    s.balance.DefaultWeapon,
		Wave:      1,
	}
}

// TakeDamage hurts the player. Reaching zero health ends the run immediately.
func (s *Store) TakeDamage(amount float64) {
	if s.phase != PhasePlaying || amount <= 0 {
		return
	}
	s.player.Health = math.Max(0, s.player.Health-amount)
	s.touch()
	if s.player.Health == 0 {
		s.phase = PhaseGameOver
		s.matchPhase = MatchFailed
		s.perkOptions = nil
		s.input = InputSnapshot{}
		s.PushGameEvent(EventPlayerDied, EventPayload{Wave: s.player.Wave, Outcome: MatchFailed})
	}
}

// Heal restores player health up to the maximum
func (s *Store) Heal(amount float64) {
	if s.phase != PhasePlaying || amount <= 0 {
		return
	}
	s.player.Health = math.Min(s.player.MaxHealth, s.player.Health+amount)
	s.touch()
}

// MovePlayer commits a resolved player transform
func (s *Store) MovePlayer(pos mgl64.Vec3, yaw float64) {
	s.player.Position = pos
	s.player.Yaw = yaw
	s.touch()
}

// SetWeaponState stores the fire cooldown and recoil
func (s *Store) SetWeaponState(cooldown, recoil float64) {
	s.player.FireCooldown = cooldown
	s.player.Recoil = recoil
	s.touch()
}

// SetSelectedWeapon switches weapons; unknown ids are ignored
func (s *Store) SetSelectedWeapon(id WeaponID) bool {
	if _, ok := s.balance.Weapon(id); !ok || id == s.player.Weapon {
		return false
	}
	s.player.Weapon = id
	s.player.FireCooldown = 0
	s.touch()
	s.PushGameEvent(EventWeaponSwitched, EventPayload{Weapon: id})
	return true
}

// --- lasers ---

// AddLaser fires a projectile
func (s *Store) AddLaser(spawn LaserSpawn) EntityID {
	l := &Laser{
		ID:        s.allocID(),
		Position:  spawn.Position,
		Direction: spawn.Direction.Normalize(),
		Speed:     spawn.Speed,
		Damage:    spawn.Damage,
		Life:      spawn.Life,
		Source:    spawn.Source,
		Weapon:    spawn.Weapon,
	}
	s.lasers = append(s.lasers, l)
	s.touch()
	return l.ID
}

// LaserIDs returns the ids of live lasers in fire order
func (s *Store) LaserIDs() []EntityID {
	ids := make([]EntityID, len(s.lasers))
	for i, l := range s.lasers {
		ids[i] = l.ID
	}
	return ids
}

// Lasers returns copies of all live lasers
func (s *Store) Lasers() []Laser {
	out := make([]Laser, len(s.lasers))
	for i, l := range s.lasers {
		out[i] = *l
	}
	return out
}

// StepLaser advances a laser by dt. An expired laser is removed and
// reported as not alive.
func (s *Store) StepLaser(id EntityID, dt float64) (Laser, bool) {
	for i, l := range s.lasers {
		if l.ID != id {
			continue
		}
		l.Position = l.Position.Add(l.Direction.Mul(l.Speed * dt))
		l.Life -= dt
		s.touch()
		if l.Life <= 0 {
			s.removeLaserAt(i)
			return *l, false
		}
		return *l, true
	}
	return Laser{}, false
}

func (s *Store) removeLaserAt(i int) {
	copy(s.lasers[i:], s.lasers[i+1:])
	s.lasers[len(s.lasers)-1] = nil
	s.lasers = s.lasers[:len(s.lasers)-1]
	s.touch()
}

// RemoveLaser removes a laser; absent ids are a no-op
func (s *Store) RemoveLaser(id EntityID) bool {
	for i, l := range s.lasers {
		if l.ID == id {
			s.removeLaserAt(i)
			return true
		}
	}
	return false
}

// --- targets ---

// AddTarget places a static destructible target
func (s *Store) AddTarget(pos mgl64.Vec3) EntityID {
	t := Target{ID: s.allocID(), Position: pos}
	s.targets = append(s.targets, t)
	s.touch()
	return t.ID
}

// Targets returns the live targets
func (s *Store) Targets() []Target {
	return append([]Target(nil), s.targets...)
}

// RemoveTarget removes a target; absent ids are a no-op
func (s *Store) RemoveTarget(id EntityID) bool {
	for i, t := range s.targets {
		if t.ID == id {
			s.targets = append(s.targets[:i], s.targets[i+1:]...)
			s.touch()
			return true
		}
	}
	return false
}

// --- particles ---

// AddParticles spawns a burst at pos, dropping the oldest past the cap
func (s *Store) AddParticles(pos mgl64.Vec3, color string, count int) {
	for i := 0; i < count; i++ {
		vel := mgl64.Vec3{
			(s.rng.Float64() - 0.5) * 6,
			s.rng.Float64()*4 + 1,
			(s.rng.Float64() - 0.5) * 6,
		}
		s.particles = append(s.particles, Particle{
			ID:       s.allocID(),
			Position: pos,
			Velocity: vel,
			Color:    color,
			Life:     s.balance.ParticleLife,
		})
	}
	if over := len(s.particles) - s.balance.MaxParticles; over > 0 {
		s.particles = append(s.particles[:0], s.particles[over:]...)
	}
	s.touch()
}

// Particles returns the live particles
func (s *Store) Particles() []Particle {
	return append([]Particle(nil), s.particles...)
}

// UpdateParticles integrates and ages particles
func (s *Store) UpdateParticles(dt float64) {
	if len(s.particles) == 0 {
		return
	}
	live := s.particles[:0]
	for _, p := range s.particles {
		p.Position = p.Position.Add(p.Velocity.Mul(dt))
		p.Velocity[1] -= ParticleGravity * dt
		p.Life -= s.balance.ParticleDecay * dt
		if p.Life > 0 {
			live = append(live, p)
		}
	}
	s.particles = live
	s.touch()
}

// --- power-ups ---

// SpawnPowerUp drops a power-up
func (s *Store) SpawnPowerUp(pos mgl64.Vec3, kind PowerUpKind) EntityID {
	p := PowerUp{ID: s.allocID(), Position: pos, Kind: kind, Life: s.balance.PowerUpLifetime}
	s.powerUps = append(s.powerUps, p)
	s.touch()
	return p.ID
}

// PowerUps returns the live power-ups
func (s *Store) PowerUps() []PowerUp {
	return append([]PowerUp(nil), s.powerUps...)
}

// CollectPowerUp removes a power-up and returns it
func (s *Store) CollectPowerUp(id EntityID) (PowerUp, bool) {
	for i, p := range s.powerUps {
		if p.ID == id {
			s.powerUps = append(s.powerUps[:i], s.powerUps[i+1:]...)
			s.touch()
			return p, true
		}
	}
	return PowerUp{}, false
}

// UpdatePowerUps ages power-ups and drops expired ones
func (s *Store) UpdatePowerUps(dt float64) {
	if len(s.powerUps) == 0 {
		return
	}
	live := s.powerUps[:0]
	for _, p := range s.powerUps {
		p.Life -= dt
		if p.Life > 0 {
			live = append(live, p)
		}
	}
	s.powerUps = live
	s.touch()
}

// --- camera, aim, input, feedback ---

// SetCamera stores the camera orientation
func (s *Store) SetCamera(c CameraState) {
	s.camera = c
	s.touch()
}

// SetAim stores the resolved aim point
func (s *Store) SetAim(a AimState) {
	s.aim = a
	s.touch()
}

// SetInput records the input snapshot consumed this tick
func (s *Store) SetInput(in InputSnapshot) {
	s.input = in
	s.touch()
}

// TriggerShake raises camera shake to at least intensity
func (s *Store) TriggerShake(intensity float64) {
	s.shake = math.Max(s.shake, intensity)
	s.touch()
}

// DecayShake winds camera shake down
func (s *Store) DecayShake(dt float64) {
	if s.shake <= 0 {
		return
	}
	s.shake = math.Max(0, s.shake-s.balance.ShakeDecay*dt)
	s.touch()
}

// TickAnnouncement counts the wave banner down
func (s *Store) TickAnnouncement(dt float64) {
	if s.announce <= 0 {
		return
	}
	s.announce = math.Max(0, s.announce-dt)
	s.touch()
}

// --- waves and objectives ---

// BeginWave installs the wave's objective, resets the spawn budget and
// enters combat
func (s *Store) BeginWave(def ObjectiveDef, spawnInterval float64) {
	if s.phase != PhasePlaying {
		return
	}
	s.objective = NewObjective(def)
	s.spawn = SpawnState{Wave: s.player.Wave, SinceLastSpawn: spawnInterval}
	s.matchPhase = MatchCombat
	s.announce = s.balance.AnnouncementTime
	s.touch()
	s.PushGameEvent(EventWaveStart, EventPayload{
		Wave:      s.player.Wave,
		Objective: def.ID,
		Title:     def.Title,
		Kind:      def.Type,
	})
}

// AdvanceSpawnTimer adds dt to the time since the last spawn
func (s *Store) AdvanceSpawnTimer(dt float64) {
	s.spawn.SinceLastSpawn += dt
	s.touch()
}

// RecordSpawn counts one spawn against the wave budget
func (s *Store) RecordSpawn(e Enemy) {
	s.spawn.Spawned++
	s.spawn.SinceLastSpawn = 0
	if e.IsElite && e.Archetype == ArchetypeBrute {
		s.spawn.ElitesSpawned++
	}
	if e.Archetype == ArchetypeMiniboss {
		s.spawn.MinibossSpawned++
	}
	s.touch()
}

// ExhaustSpawnBudget stops further spawning this wave
func (s *Store) ExhaustSpawnBudget(total int) {
	if s.spawn.Spawned < total {
		s.spawn.Spawned = total
		s.touch()
	}
}

// UpdateObjective records progress and timer. Progress never decreases and
// the timer never increases while the objective is active.
func (s *Store) UpdateObjective(progress, timer float64) {
	o := s.objective
	if o == nil || o.Completed {
		return
	}
	progress = math.Min(progress, o.Target)
	if progress > o.Progress {
		o.Progress = progress
	}
	if o.HasTimer {
		o.Timer = math.Max(0, math.Min(o.Timer, timer))
	}
	s.touch()
}

// CompleteObjective marks the active objective done
func (s *Store) CompleteObjective() {
	o := s.objective
	if o == nil || o.Completed {
		return
	}
	o.Completed = true
	s.touch()
	s.PushGameEvent(EventObjectiveComplete, EventPayload{Wave: o.Wave, Objective: o.ID, Title: o.Title, Kind: o.Type})
}

// NextWave advances the wave counter
func (s *Store) NextWave() {
	s.player.Wave++
	s.touch()
}

// ResetWaveKills zeroes the per-wave kill counter
func (s *Store) ResetWaveKills() {
	s.player.WaveKills = 0
	s.touch()
}

// CompleteRun ends a run after the final wave
func (s *Store) CompleteRun() {
	if s.phase != PhasePlaying {
		return
	}
	s.matchPhase = MatchCompleted
	s.touch()
	s.PushGameEvent(EventRunComplete, EventPayload{Wave: s.player.Wave, Outcome: MatchCompleted})
}

// --- perks ---

// RollPerkOptions offers perks between waves and enters perk selection
func (s *Store) RollPerkOptions() {
	if s.phase != PhasePlaying {
		return
	}
	s.perkOptions = DrawPerkOptions(s.balance.Perks, s.player.Perks, s.balance.PerkOfferCount, s.rng)
	if len(s.perkOptions) == 0 {
		s.matchPhase = MatchPrewave
	} else {
		s.matchPhase = MatchPerkSelect
	}
	s.touch()
	s.PushGameEvent(EventPerkOffer, EventPayload{Wave: s.player.Wave, Perks: s.PerkOptions()})
}

// GrantRunPerk picks an offered perk and returns to prewave. It is only
// valid during perk selection; a perk already held changes no stats.
func (s *Store) GrantRunPerk(id PerkID) bool {
	if s.phase != PhasePlaying || s.matchPhase != MatchPerkSelect {
		return false
	}
	def, ok := s.balance.Perk(id)
	if !ok || !containsPerk(s.perkOptions, id) {
		return false
	}
	if !s.player.HasPerk(id) {
		s.player.Perks = append(s.player.Perks, id)
		if def.MaxHealthBonus > 0 {
			s.player.MaxHealth += def.MaxHealthBonus
			s.player.Health += def.MaxHealthBonus
		}
	}
	s.perkOptions = nil
	s.matchPhase = MatchPrewave
	s.touch()
	s.PushGameEvent(EventPerkGranted, EventPayload{Perk: id, Wave: s.player.Wave})
	return true
}

// --- events ---

// PushGameEvent appends an event to the pending queue
func (s *Store) PushGameEvent(t EventType, payload EventPayload) {
	s.eventSeq++
	s.events = append(s.events, GameEvent{Seq: s.eventSeq, Tick: s.tick, Type: t, Data: payload})
}

// ConsumeGameEvents drains the queue in emission order
func (s *Store) ConsumeGameEvents() []GameEvent {
	out := s.events
	s.events = nil
	return out
}

// PendingEvents returns the number of undelivered events
func (s *Store) PendingEvents() int { return len(s.events) }

// --- match lifecycle ---

func (s *Store) clearPlayfield() {
	for len(s.enemies) > 0 {
		s.removeEnemyAt(len(s.enemies) - 1)
	}
	s.lasers = nil
	s.particles = nil
	s.powerUps = nil
	s.targets = nil
	s.objective = nil
	s.perkOptions = nil
	s.spawn = SpawnState{}
	s.aim = AimState{}
	s.input = InputSnapshot{}
	s.shake = 0
	s.announce = 0
	s.player = s.freshPlayer()
	s.camera = DefaultCamera()
}

func (s *Store) resetPlayable() {
	s.clearPlayfield()
	for _, p := range s.balance.TargetPoints {
		s.AddTarget(mgl64.Vec3{p[0], 0, p[1]})
	}
	s.phase = PhasePlaying
	s.matchPhase = MatchPrewave
	s.touch()
}

// StartGame begins a run from the menu or after a finished run
func (s *Store) StartGame() bool {
	if s.phase == PhasePlaying || s.phase == PhasePaused {
		return false
	}
	s.resetPlayable()
	return true
}

// RestartGame abandons the current run and starts a new one
func (s *Store) RestartGame() {
	s.resetPlayable()
}

// TogglePause flips between playing and paused
func (s *Store) TogglePause() bool {
	switch s.phase {
	case PhasePlaying:
		s.phase = PhasePaused
	case PhasePaused:
		s.phase = PhasePlaying
	default:
		return false
	}
	s.input = InputSnapshot{}
	s.touch()
	return true
}

// GoToMenu abandons the run and returns to the menu
func (s *Store) GoToMenu() {
	s.clearPlayfield()
	s.phase = PhaseMenu
	s.matchPhase = MatchPrewave
	s.touch()
}
