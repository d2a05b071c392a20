package main

import "github.com/go-gl/mathgl/mgl64"

// Kill rewards used when an archetype has none configured
const (
	RewardNormal   = 100
	RewardElite    = 250
	RewardMiniboss = 1000

	EnemyLaserShake = 0.3
	EliteKillShake  = 0.25
)

// KillReward returns the score for killing e. Miniboss pays more than elite,
// elite more than normal.
func KillReward(b *Balance, e Enemy) int {
	if def, ok := b.Archetype(e.Archetype); ok && def.Reward > 0 {
		return def.Reward
	}
	switch {
	case e.Archetype == ArchetypeMiniboss:
		return RewardMiniboss
	case e.IsElite:
		return RewardElite
	default:
		return RewardNormal
	}
}

// resolveProjectiles advances every laser and applies at most one hit each
func (s *Simulation) resolveProjectiles(dt float64) {
	for _, id := range s.store.LaserIDs() {
		if !s.running() {
			return
		}
		l, alive := s.store.StepLaser(id, dt)
		if !alive {
			continue
		}
		if s.hitTarget(l) {
			continue
		}
		switch l.Source {
		case SourcePlayer:
			s.hitEnemy(l)
		case SourceEnemy:
			s.hitPlayer(l)
		}
	}
}

func (s *Simulation) hitTarget(l Laser) bool {
	for _, t := range s.store.Targets() {
		if !CheckCollision(l.Position, s.balance.LaserRadius, t.Position, s.balance.TargetRadius) {
			continue
		}
		s.store.RemoveTarget(t.ID)
		s.store.RemoveLaser(l.ID)
		s.store.AddParticles(t.Position, ColorTarget, 12)
		s.store.PushGameEvent(EventTargetDestroyed, EventPayload{X: t.Position.X(), Z: t.Position.Z()})
		return true
	}
	return false
}

func (s *Simulation) hitEnemy(l Laser) bool {
	s.entryBuf = s.registry.Nearby(EntityEnemy, l.Position, s.balance.LaserRadius, s.entryBuf[:0])
	for _, e := range s.entryBuf {
		if !CheckCollision(l.Position, s.balance.LaserRadius, e.Position, e.Radius) {
			continue
		}
		s.store.RemoveLaser(l.ID)
		s.applyPlayerHit(e.EntityID, l.Damage)
		return true
	}
	return false
}

func (s *Simulation) hitPlayer(l Laser) bool {
	p, ok := s.registry.Player()
	if !ok || !CheckCollision(l.Position, s.balance.LaserRadius, p.Position, s.balance.PlayerHitRadius) {
		return false
	}
	s.store.RemoveLaser(l.ID)
	s.hurtPlayer(l.Damage, l.Position, EnemyLaserShake)
	return true
}

// applyPlayerHit damages an enemy and runs perk side effects
func (s *Simulation) applyPlayerHit(id EntityID, damage float64) {
	e, ok := s.store.Enemy(id)
	if !ok {
		return
	}
	mods := ModifiersFor(s.balance, s.store.Player().Perks)

	killed := s.store.DamageEnemy(id, damage)
	if mods.LifeSteal > 0 {
		s.store.Heal(damage * mods.LifeSteal * s.balance.LifeStealScale)
	}
	if killed {
		s.rewardKill(e)
	} else {
		s.store.AddParticles(e.Position, ColorHit, 6)
		s.store.PushGameEvent(EventEnemyHit, EventPayload{EnemyID: id, Archetype: e.Archetype, Amount: damage})
	}
	if mods.Splash > 0 {
		s.splash(id, e.Position, mods.Splash)
	}
}

// splash deals flat damage to every other enemy near center. Splash damage
// does not trigger life-steal or further splash.
func (s *Simulation) splash(source EntityID, center mgl64.Vec3, amount float64) {
	radius := s.balance.SplashRadius
	for _, n := range s.registry.Nearby(EntityEnemy, center, radius, nil) {
		if n.EntityID == source || PlanarDistSq(center, n.Position) > radius*radius {
			continue
		}
		e, ok := s.store.Enemy(n.EntityID)
		if !ok {
			continue
		}
		if s.store.DamageEnemy(n.EntityID, amount) {
			s.rewardKill(e)
		} else {
			s.store.PushGameEvent(EventEnemyHit, EventPayload{EnemyID: e.ID, Archetype: e.Archetype, Amount: amount})
		}
	}
}

// rewardKill pays out for an enemy that DamageEnemy reported killed
func (s *Simulation) rewardKill(e Enemy) {
	reward := KillReward(s.balance, e)
	s.store.CreditKill(reward)
	if e.IsElite {
		s.store.AddParticles(e.Position, ColorElite, 28)
		s.store.TriggerShake(EliteKillShake)
	} else {
		s.store.AddParticles(e.Position, ColorKill, 16)
	}
	s.maybeDropPowerUp(e.Position)
	s.store.PushGameEvent(EventEnemyKilled, EventPayload{
		EnemyID:   e.ID,
		Archetype: e.Archetype,
		Reward:    reward,
		X:         e.Position.X(),
		Z:         e.Position.Z(),
	})
}
