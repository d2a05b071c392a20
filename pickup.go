package main

import "github.com/go-gl/mathgl/mgl64"

// PowerUpKind names a power-up effect
type PowerUpKind string

const PowerUpRepair PowerUpKind = "repair"

// PowerUp is a pickup dropped by a killed enemy
type PowerUp struct {
	ID       EntityID    `msgpack:"id"`
	Position mgl64.Vec3  `msgpack:"pos"`
	Kind     PowerUpKind `msgpack:"kind"`
	Life     float64     `msgpack:"life"`
}

// maybeDropPowerUp rolls the drop chance for a kill at pos
func (s *Simulation) maybeDropPowerUp(pos mgl64.Vec3) {
	if s.rng.Float64() < s.balance.PowerUpDropChance {
		s.store.SpawnPowerUp(Flatten(pos), PowerUpRepair)
	}
}

// updatePowerUps expires power-ups and collects those the player touches
func (s *Simulation) updatePowerUps(dt float64) {
	s.store.UpdatePowerUps(dt)
	player := s.store.Player()
	for _, p := range s.store.PowerUps() {
		if PlanarDist(player.Position, p.Position) >= s.balance.PowerUpRadius {
			continue
		}
		if _, ok := s.store.CollectPowerUp(p.ID); !ok {
			continue
		}
		s.store.Heal(s.balance.PowerUpHeal)
		s.store.AddParticles(p.Position, ColorHeal, 12)
		s.store.PushGameEvent(EventPowerUpCollected, EventPayload{Amount: s.balance.PowerUpHeal, X: p.Position.X(), Z: p.Position.Z()})
	}
}
