package main

import "github.com/go-gl/mathgl/mgl64"

// LaserSource tells who fired a laser
type LaserSource string

const (
	SourcePlayer LaserSource = "player"
	SourceEnemy  LaserSource = "enemy"
)

// Laser is a straight-line projectile
type Laser struct {
	ID        EntityID    `msgpack:"id"`
	Position  mgl64.Vec3  `msgpack:"pos"`
	Direction mgl64.Vec3  `msgpack:"dir"`
	Speed     float64     `msgpack:"speed"`
	Damage    float64     `msgpack:"dmg"`
	Life      float64     `msgpack:"life"`
	Source    LaserSource `msgpack:"src"`
	Weapon    WeaponID    `msgpack:"weapon,omitempty"`
}

// LaserSpawn describes a laser to fire
type LaserSpawn struct {
	Position  mgl64.Vec3
	Direction mgl64.Vec3
	Speed     float64
	Damage    float64
	Life      float64
	Source    LaserSource
	Weapon    WeaponID
}
