package main

import (
	"math"
	"math/rand"
	"testing"
)

func TestModifiersFor(t *testing.T) {
	b := DefaultBalance()

	m := ModifiersFor(b, nil)
	if m.FireRate != 1 || m.Damage != 1 || m.ProjectileSpeed != 1 || m.Recoil != 1 || m.LifeSteal != 0 || m.Splash != 0 {
		t.Errorf("expected neutral modifiers, got %+v", m)
	}

	m = ModifiersFor(b, []PerkID{PerkRapidLoader, PerkOvercharge, PerkVampiricRounds, PerkShockwave, "bogus"})
	if m.FireRate != 0.82 {
		t.Errorf("expected fire rate 0.82, got %v", m.FireRate)
	}
	if m.Damage != 1.22 {
		t.Errorf("expected damage 1.22, got %v", m.Damage)
	}
	if m.LifeSteal != 0.08 {
		t.Errorf("expected life steal 0.08, got %v", m.LifeSteal)
	}
	if m.Splash != 12 {
		t.Errorf("expected splash 12, got %v", m.Splash)
	}
	if m.ProjectileSpeed != 1 {
		t.Errorf("expected shipped perks to keep projectile speed, got %v", m.ProjectileSpeed)
	}

	b.Perks = append(b.Perks, PerkDef{ID: "hot_barrel", ProjectileSpeedMultiplier: 1.5})
	b.Perks[0].ProjectileSpeedMultiplier = 2
	m = ModifiersFor(b, []PerkID{PerkRapidLoader, "hot_barrel"})
	if m.ProjectileSpeed != 3 {
		t.Errorf("expected projectile speed 3, got %v", m.ProjectileSpeed)
	}
}

func TestEffectiveWeapon(t *testing.T) {
	b := DefaultBalance()
	w, _ := b.Weapon(WeaponPulseRifle)

	stats := EffectiveWeapon(b, w, 1, ModifiersFor(b, []PerkID{PerkRapidLoader, PerkStabilizer}))
	if math.Abs(stats.Cooldown-0.12*0.82) > 1e-9 {
		t.Errorf("expected cooldown %v, got %v", 0.12*0.82, stats.Cooldown)
	}
	if math.Abs(stats.Kick-0.2*0.65) > 1e-9 {
		t.Errorf("expected kick %v, got %v", 0.2*0.65, stats.Kick)
	}
	if stats.Damage != 16 {
		t.Errorf("expected wave 1 damage 16, got %v", stats.Damage)
	}

	if stats.Speed != w.Speed {
		t.Errorf("expected base speed %v, got %v", w.Speed, stats.Speed)
	}

	stats = EffectiveWeapon(b, w, 1, RunModifiers{FireRate: 1, Damage: 1, ProjectileSpeed: 2, Recoil: 1})
	if stats.Speed != 2*w.Speed {
		t.Errorf("expected doubled speed %v, got %v", 2*w.Speed, stats.Speed)
	}
	if w.Speed != 36 {
		t.Errorf("weapon table must not be modified, got %v", w.Speed)
	}

	stats = EffectiveWeapon(b, w, 3, ModifiersFor(b, nil))
	if math.Abs(stats.Damage-16*13.0/12.0) > 1e-9 {
		t.Errorf("expected wave-scaled damage, got %v", stats.Damage)
	}
}

func TestDrawPerkOptionsExcludesHeld(t *testing.T) {
	b := DefaultBalance()
	rng := rand.New(rand.NewSource(1))
	held := []PerkID{PerkRapidLoader, PerkOvercharge, PerkFortified}

	for i := 0; i < 20; i++ {
		opts := DrawPerkOptions(b.Perks, held, 3, rng)
		if len(opts) != 3 {
			t.Fatalf("expected 3 options, got %d", len(opts))
		}
		seen := make(map[PerkID]bool)
		for _, id := range opts {
			if containsPerk(held, id) {
				t.Errorf("offered held perk %s", id)
			}
			if seen[id] {
				t.Errorf("offered %s twice", id)
			}
			seen[id] = true
		}
	}
}

func TestDrawPerkOptionsFallsBackToPool(t *testing.T) {
	b := DefaultBalance()
	var held []PerkID
	for _, p := range b.Perks {
		held = append(held, p.ID)
	}
	opts := DrawPerkOptions(b.Perks, held, 3, rand.New(rand.NewSource(1)))
	if len(opts) != 3 {
		t.Errorf("expected 3 options from the full pool, got %d", len(opts))
	}

	// Fewer candidates than requested
	opts = DrawPerkOptions(b.Perks, held[:5], 3, rand.New(rand.NewSource(1)))
	if len(opts) != 1 || opts[0] != held[5] {
		t.Errorf("expected only %s, got %v", held[5], opts)
	}
}

func TestDrawPerkOptionsDeterministic(t *testing.T) {
	b := DefaultBalance()
	a := DrawPerkOptions(b.Perks, nil, 3, rand.New(rand.NewSource(9)))
	c := DrawPerkOptions(b.Perks, nil, 3, rand.New(rand.NewSource(9)))
	for i := range a {
		if a[i] != c[i] {
			t.Fatalf("same seed gave different offers: %v vs %v", a, c)
		}
	}
}
