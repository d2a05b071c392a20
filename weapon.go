package main

import "math"

const MaxRecoil = 1.0

// WeaponStats is a weapon after run perks are applied
type WeaponStats struct {
	WeaponDef
	Cooldown float64
	Kick     float64
}

// EffectiveWeapon applies perk modifiers and wave scaling to a weapon
func EffectiveWeapon(b *Balance, w WeaponDef, wave int, mods RunModifiers) WeaponStats {
	stats := WeaponStats{WeaponDef: w}
	stats.Damage = w.Damage * b.PlayerDamageMultiplier(wave) * mods.Damage
	stats.Speed = w.Speed * mods.ProjectileSpeed
	stats.Cooldown = w.FireRate * mods.FireRate
	stats.Kick = w.Recoil * mods.Recoil
	return stats
}

// updateWeapon handles swaps, cooldown, recoil and firing for the player
func (s *Simulation) updateWeapon(in InputSnapshot, dt float64) {
	current := s.store.Player()
	switch {
	case in.WeaponSwap != "":
		s.store.SetSelectedWeapon(in.WeaponSwap)
	case in.CycleWeapon:
		s.store.SetSelectedWeapon(s.balance.NextWeapon(current.Weapon))
	}

	player := s.store.Player()
	def, ok := s.balance.Weapon(player.Weapon)
	if !ok {
		return
	}
	stats := EffectiveWeapon(s.balance, def, player.Wave, ModifiersFor(s.balance, player.Perks))

	cooldown := math.Max(0, player.FireCooldown-dt)
	recoil := player.Recoil
	if in.Firing && cooldown <= 0 {
		s.fireWeapon(player, stats)
		cooldown = stats.Cooldown
		recoil = math.Min(MaxRecoil, recoil+stats.Kick)
	} else {
		recoil = math.Max(0, recoil-s.balance.RecoilRecovery*dt)
	}
	s.store.SetWeaponState(cooldown, recoil)
}

// fireWeapon launches one trigger pull worth of pellets toward the aim point
func (s *Simulation) fireWeapon(player Player, w WeaponStats) {
	forward, _ := s.store.Camera().Basis()
	muzzle := player.Position.Add(forward.Mul(s.balance.MuzzleOffset))
	muzzle[1] = s.balance.MuzzleHeight

	dir := forward
	if aim := s.store.Aim(); aim.HasPoint {
		if d := Flatten(aim.Point.Sub(muzzle)); d.Len() > 1e-3 {
			dir = d.Normalize()
		}
	}
	for i := 0; i < w.Pellets; i++ {
		spread := (s.rng.Float64()*2 - 1) * w.Spread
		s.store.AddLaser(LaserSpawn{
			Position:  muzzle,
			Direction: RotateY(dir, spread),
			Speed:     w.Speed,
			Damage:    w.Damage,
			Life:      w.Life,
			Source:    SourcePlayer,
			Weapon:    w.ID,
		})
	}
	s.store.PushGameEvent(EventShot, EventPayload{Weapon: w.ID})
}
