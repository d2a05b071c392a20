package main

import "github.com/go-gl/mathgl/mgl64"

const (
	RatSeparation   = 1.3 // units, rat-to-enemy spacing
	RatPushForce    = 5.6
	CatSeparation   = 1.45
	CatPushForce    = 4.8
	FacingMinSpeed2 = 0.08
)

// movePlayer resolves the player's move request and regenerates health
func (s *Simulation) movePlayer(in InputSnapshot, dt float64) {
	player := s.store.Player()
	cam := s.store.Camera()
	forward, right := cam.Basis()

	pos := player.Position
	move := forward.Mul(in.MoveForward).Add(right.Mul(in.MoveRight))
	if move.Len() > 1e-6 {
		step := move.Normalize().Mul(s.balance.PlayerMoveSpeed * dt)
		candidate := ClampToArena(pos.Add(step), s.balance.ArenaHalfExtent)
		if !s.playerBlocked(candidate) {
			pos = candidate
		}
	}
	s.store.MovePlayer(pos, cam.Yaw)
	s.registry.Update(s.playerHandle, pos)

	if player.Health < player.MaxHealth {
		s.store.Heal(s.balance.PlayerRegen * dt)
	}
}

// playerBlocked reports whether the player's body would penetrate an enemy or block
func (s *Simulation) playerBlocked(pos mgl64.Vec3) bool {
	reach := s.balance.PlayerMoveRadius + s.balance.EnemyMoveRadius
	s.entryBuf = s.registry.Nearby(EntityEnemy, pos, reach, s.entryBuf[:0])
	for _, e := range s.entryBuf {
		if CheckCollision(pos, s.balance.PlayerMoveRadius, e.Position, s.balance.EnemyMoveRadius) {
			return true
		}
	}
	return s.blockedByBlock(pos, s.balance.PlayerBlockRadius)
}

// moveEnemies advances steering and commits each enemy's resolved position
func (s *Simulation) moveEnemies(dt float64) {
	player := s.store.Player()
	enemies := s.store.Enemies()
	s.ai.Steer(dt, player.Position, enemies)

	for _, e := range enemies {
		agent, ok := s.ai.Agent(e.ID)
		if !ok {
			continue
		}
		h, ok := s.enemyHandles[e.ID]
		if !ok {
			continue
		}

		sep, force := CatSeparation, CatPushForce
		if e.Kind == KindZombieRat {
			sep, force = RatSeparation, RatPushForce
		}
		candidate := agent.Position()
		s.entryBuf = s.registry.Nearby(EntityEnemy, candidate, sep, s.entryBuf[:0])
		for _, other := range s.entryBuf {
			if other.EntityID == e.ID {
				continue
			}
			candidate = candidate.Add(PushApart(candidate, other.Position, sep, force*dt))
		}
		candidate = ClampToArena(candidate, s.balance.ArenaHalfExtent)
		if s.blockedByBlock(candidate, s.balance.EnemyMoveRadius) {
			candidate = e.Position
		}
		agent.SetPosition(candidate)

		yaw := e.Yaw
		vel := agent.Velocity()
		if vel.X()*vel.X()+vel.Z()*vel.Z() > FacingMinSpeed2 {
			yaw = YawOf(vel)
		}
		s.store.MoveEnemy(e.ID, candidate, yaw)
		s.registry.Update(h, candidate)
	}
}
