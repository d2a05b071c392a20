package main

import "github.com/go-gl/mathgl/mgl64"

const ParticleGravity = 9.8 // units/s^2

// Particle colors per effect
const (
	ColorHit       = "#ffaa33"
	ColorKill      = "#ff3344"
	ColorElite     = "#ffd700"
	ColorPlayerHit = "#ff0000"
	ColorTarget    = "#33ddff"
	ColorHeal      = "#33ff88"
	ColorExplosion = "#ff6600"
)

// Particle is a short-lived visual fragment
type Particle struct {
	ID       EntityID   `msgpack:"id"`
	Position mgl64.Vec3 `msgpack:"pos"`
	Velocity mgl64.Vec3 `msgpack:"vel"`
	Color    string     `msgpack:"color"`
	Life     float64    `msgpack:"life"`
}
