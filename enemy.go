package main

import "github.com/go-gl/mathgl/mgl64"

const (
	EnemySpawnGrace   = 0.5 // seconds before a new enemy may attack
	EnemyMuzzleHeight = 1.0

	RusherDetonateRange = 1.8
	RusherBlastShake    = 0.6

	SpitterCooldown = 1.1
	SpitterSpeed    = 22.0
	SpitterLife     = 3.4
	SpitterJitter   = 0.03 // radians

	BruteSwingRange = 2.4
	BruteCooldown   = 0.9
	BruteSwingShake = 0.4

	SnareCooldown = 1.6
	SnareSpeed    = 16.0
	SnareLife     = 1.2

	MinibossSpeed      = 24.0
	MinibossSpeedStep  = 2.0
	MinibossLife       = 4.5
	MinibossMuzzle     = 1.7
	MinibossDamageBase = 1.2
	MinibossDamageStep = 0.35
)

// Miniboss volley patterns by phase
var (
	minibossCooldowns = [...]float64{1.45, 1.05, 0.7}
	minibossSpreads   = [...][]float64{
		{0},
		{-0.12, 0, 0.12},
		{-0.18, -0.08, 0, 0.08, 0.18},
	}
)

// Enemy is a live hostile
type Enemy struct {
	ID        EntityID   `msgpack:"id"`
	Position  mgl64.Vec3 `msgpack:"pos"`
	Yaw       float64    `msgpack:"yaw"`
	Health    float64    `msgpack:"hp"`
	MaxHealth float64    `msgpack:"maxHp"`
	Archetype Archetype  `msgpack:"arch"`
	Kind      EnemyKind  `msgpack:"kind"`
	Phase     int        `msgpack:"phase,omitempty"`
	IsElite   bool       `msgpack:"elite,omitempty"`
	AttackCD  float64    `msgpack:"cd"`
}

// EnemySpawn describes an enemy to add. Zero fields fall back to the
// archetype's balance values.
type EnemySpawn struct {
	Position  mgl64.Vec3
	Archetype Archetype
	Kind      EnemyKind
	MaxHealth float64
	Elite     bool
}

// MinibossPhase maps a health ratio to a phase: above 66% is 1, above 33% is 2, else 3
func MinibossPhase(ratio float64) int {
	switch {
	case ratio > 0.66:
		return 1
	case ratio > 0.33:
		return 2
	default:
		return 3
	}
}

// hurtPlayer applies damage to the player with feedback
func (s *Simulation) hurtPlayer(amount float64, from mgl64.Vec3, shake float64) {
	player := s.store.Player()
	s.store.TakeDamage(amount)
	s.store.AddParticles(player.Position, ColorPlayerHit, 8)
	s.store.TriggerShake(shake)
	s.store.PushGameEvent(EventDamageTaken, EventPayload{Amount: amount, X: from.X(), Z: from.Z()})
}

// fireEnemyLaser launches an enemy shot from origin toward aim, rotated by spread
func (s *Simulation) fireEnemyLaser(origin, aim mgl64.Vec3, spread, speed, life, damage float64) {
	dir := Flatten(aim.Sub(origin))
	if dir.Len() < 1e-6 {
		return
	}
	dir = RotateY(dir.Normalize(), spread)
	s.store.AddLaser(LaserSpawn{
		Position:  mgl64.Vec3{origin.X(), EnemyMuzzleHeight, origin.Z()},
		Direction: dir,
		Speed:     speed,
		Damage:    damage,
		Life:      life,
		Source:    SourceEnemy,
	})
}

// resolveEnemyAttacks runs each enemy's archetype attack against the player
func (s *Simulation) resolveEnemyAttacks(dt float64) {
	s.store.TickEnemyCooldowns(dt)
	player := s.store.Player()
	base := s.balance.EnemyDamageForWave(player.Wave)

	for _, e := range s.store.Enemies() {
		if !s.running() {
			return
		}
		def, _ := s.balance.Archetype(e.Archetype)
		damage := base * def.DamageMultiplier
		dist := PlanarDist(e.Position, player.Position)

		switch e.Archetype {
		case ArchetypeRusher:
			if dist < RusherDetonateRange {
				s.store.NeutralizeEnemy(e.ID)
				s.store.AddParticles(e.Position, ColorExplosion, 24)
				s.store.PushGameEvent(EventEnemyDetonated, EventPayload{EnemyID: e.ID, Archetype: e.Archetype, X: e.Position.X(), Z: e.Position.Z()})
				s.hurtPlayer(damage, e.Position, RusherBlastShake)
			}
		case ArchetypeSpitter:
			if dist <= def.AttackRange && e.AttackCD <= 0 {
				jitter := (s.rng.Float64()*2 - 1) * SpitterJitter
				s.fireEnemyLaser(e.Position, player.Position, jitter, SpitterSpeed, SpitterLife, damage)
				s.store.SetEnemyCooldown(e.ID, SpitterCooldown)
			}
		case ArchetypeBrute:
			if dist < BruteSwingRange && e.AttackCD <= 0 {
				s.hurtPlayer(damage, e.Position, BruteSwingShake)
				s.store.SetEnemyCooldown(e.ID, BruteCooldown)
			}
		case ArchetypeSnareRat:
			if dist <= def.AttackRange && e.AttackCD <= 0 {
				s.fireEnemyLaser(e.Position, player.Position, 0, SnareSpeed, SnareLife, damage)
				s.store.SetEnemyCooldown(e.ID, SnareCooldown)
			}
		case ArchetypeMiniboss:
			if dist <= def.AttackRange && e.AttackCD <= 0 {
				s.minibossVolley(e, player.Position, base)
			}
		}
	}
}

// minibossVolley fires a phase-dependent fan of shots
func (s *Simulation) minibossVolley(e Enemy, aim mgl64.Vec3, base float64) {
	phase := e.Phase
	if phase < 1 {
		phase = 1
	}
	if phase > len(minibossSpreads) {
		phase = len(minibossSpreads)
	}
	dir := Flatten(aim.Sub(e.Position))
	if dir.Len() < 1e-6 {
		return
	}
	origin := e.Position.Add(dir.Normalize().Mul(MinibossMuzzle))
	damage := base * (MinibossDamageBase + float64(phase)*MinibossDamageStep)
	speed := MinibossSpeed + MinibossSpeedStep*float64(phase)
	for _, spread := range minibossSpreads[phase-1] {
		s.fireEnemyLaser(origin, aim, spread, speed, MinibossLife, damage)
	}
	s.store.SetEnemyCooldown(e.ID, minibossCooldowns[phase-1])
}
