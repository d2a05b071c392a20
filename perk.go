package main

import "math/rand"

// RunModifiers is the combined effect of the perks held in a run
type RunModifiers struct {
	FireRate        float64
	Damage          float64
	ProjectileSpeed float64
	LifeSteal       float64
	Recoil          float64
	Splash          float64
}

// ModifiersFor folds the held perks into one modifier set
func ModifiersFor(b *Balance, held []PerkID) RunModifiers {
	m := RunModifiers{FireRate: 1, Damage: 1, ProjectileSpeed: 1, Recoil: 1}
	for _, id := range held {
		def, ok := b.Perk(id)
		if !ok {
			continue
		}
		if def.FireRateMultiplier > 0 {
			m.FireRate *= def.FireRateMultiplier
		}
		if def.DamageMultiplier > 0 {
			m.Damage *= def.DamageMultiplier
		}
		if def.ProjectileSpeedMultiplier > 0 {
			m.ProjectileSpeed *= def.ProjectileSpeedMultiplier
		}
		if def.RecoilMultiplier > 0 {
			m.Recoil *= def.RecoilMultiplier
		}
		m.LifeSteal += def.LifeSteal
		m.Splash += def.SplashDamage
	}
	return m
}

// DrawPerkOptions picks up to n perks without replacement from those not
// held, falling back to the whole pool when every perk is held.
func DrawPerkOptions(pool []PerkDef, held []PerkID, n int, rng *rand.Rand) []PerkID {
	var candidates []PerkID
	for _, p := range pool {
		if !containsPerk(held, p.ID) {
			candidates = append(candidates, p.ID)
		}
	}
	if len(candidates) == 0 {
		for _, p := range pool {
			candidates = append(candidates, p.ID)
		}
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if n < len(candidates) {
		candidates = candidates[:n]
	}
	return candidates
}

func containsPerk(perks []PerkID, id PerkID) bool {
	for _, p := range perks {
		if p == id {
			return true
		}
	}
	return false
}
