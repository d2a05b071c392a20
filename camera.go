package main

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	CameraPitchMin  = -0.18
	CameraPitchMax  = 0.78
	AimRange        = 60.0 // units
	AimFallbackDist = 40.0
)

// CameraState is the orbit camera orientation driven by look input
type CameraState struct {
	Yaw         float64 `msgpack:"yaw"`
	Pitch       float64 `msgpack:"pitch"`
	Sensitivity float64 `msgpack:"sens"`
}

// DefaultCamera returns the camera a run starts with
func DefaultCamera() CameraState {
	return CameraState{Yaw: 0, Pitch: 0.22, Sensitivity: 0.0022}
}

// ApplyLook turns the camera by a look delta in pointer units
func (c CameraState) ApplyLook(dx, dy float64) CameraState {
	c.Yaw = NormalizeAngle(c.Yaw - dx*c.Sensitivity)
	c.Pitch = Clamp(c.Pitch+dy*c.Sensitivity, CameraPitchMin, CameraPitchMax)
	return c
}

// Basis returns the planar forward and right vectors for the camera yaw
func (c CameraState) Basis() (forward, right mgl64.Vec3) {
	forward = mgl64.Vec3{math.Sin(c.Yaw), 0, math.Cos(c.Yaw)}
	right = mgl64.Vec3{forward.Z(), 0, -forward.X()}
	return
}

// AimState is where the crosshair resolves in the world
type AimState struct {
	Point    mgl64.Vec3 `msgpack:"point"`
	HasPoint bool       `msgpack:"has"`
	TargetID EntityID   `msgpack:"target,omitempty"`
}

// rayCircle returns the distance along a planar ray to a circle, or -1
func rayCircle(origin, dir, center mgl64.Vec3, radius float64) float64 {
	oc := mgl64.Vec3{center.X() - origin.X(), 0, center.Z() - origin.Z()}
	t := oc.Dot(dir)
	if t < 0 {
		return -1
	}
	distSq := oc.Dot(oc) - t*t
	if distSq > radius*radius {
		return -1
	}
	return t
}

// updateCamera applies look input and resolves the aim point against enemies
func (s *Simulation) updateCamera(in InputSnapshot) {
	cam := s.store.Camera().ApplyLook(in.LookDX, in.LookDY)
	s.store.SetCamera(cam)

	player := s.store.Player()
	forward, _ := cam.Basis()
	origin := mgl64.Vec3{player.Position.X(), s.balance.MuzzleHeight, player.Position.Z()}

	aim := AimState{Point: origin.Add(forward.Mul(AimFallbackDist)), HasPoint: true}
	best := AimRange
	s.registry.Each(EntityEnemy, func(e Entry) bool {
		if t := rayCircle(origin, forward, e.Position, e.Radius); t >= 0 && t < best {
			best = t
			aim.TargetID = e.EntityID
			aim.Point = mgl64.Vec3{e.Position.X(), s.balance.MuzzleHeight, e.Position.Z()}
		}
		return true
	})
	s.store.SetAim(aim)
}
