package main

import "github.com/go-gl/mathgl/mgl64"

// Player holds the vitals and progression of the local player
type Player struct {
	Position     mgl64.Vec3 `msgpack:"pos"`
	Yaw          float64    `msgpack:"yaw"`
	Health       float64    `msgpack:"hp"`
	MaxHealth    float64    `msgpack:"maxHp"`
	Weapon       WeaponID   `msgpack:"weapon"`
	FireCooldown float64    `msgpack:"fireCd"`
	Recoil       float64    `msgpack:"recoil"`
	Perks        []PerkID   `msgpack:"perks"`
	Score        int        `msgpack:"score"`
	Kills        int        `msgpack:"kills"`
	Wave         int        `msgpack:"wave"`
	WaveKills    int        `msgpack:"waveKills"`
}

// HasPerk reports whether the run perk is held
func (p Player) HasPerk(id PerkID) bool {
	return containsPerk(p.Perks, id)
}

func (p Player) clone() Player {
	p.Perks = append([]PerkID(nil), p.Perks...)
	return p
}
