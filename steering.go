package main

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SteeringParams tunes one agent's arrive behaviour
type SteeringParams struct {
	MaxSpeed     float64 // units/s
	Mass         float64
	Deceleration float64 // larger values slow down earlier
	Tolerance    float64 // stop within this distance of the target
}

// SteeringAgent is one steered body. Engines own the agents they spawn.
type SteeringAgent interface {
	Position() mgl64.Vec3
	Velocity() mgl64.Vec3
	SetTarget(target mgl64.Vec3)
	SetPosition(pos mgl64.Vec3)
	SetMaxSpeed(speed float64)
	Advance(dt float64)
}

// SteeringEngine owns and advances a set of agents
type SteeringEngine interface {
	Spawn(pos mgl64.Vec3, params SteeringParams) (SteeringAgent, error)
	Despawn(a SteeringAgent)
	Update(dt float64)
	Len() int
}

// SteeringEngineFactory builds an engine at match start
type SteeringEngineFactory func() (SteeringEngine, error)

var ErrInvalidSteering = errors.New("steering: invalid agent parameters")

// Vehicle is a point-mass agent that arrives at its target on the XZ plane
type Vehicle struct {
	pos       mgl64.Vec3
	vel       mgl64.Vec3
	target    mgl64.Vec3
	hasTarget bool
	params    SteeringParams
}

func (v *Vehicle) Position() mgl64.Vec3 { return v.pos }
func (v *Vehicle) Velocity() mgl64.Vec3 { return v.vel }

func (v *Vehicle) SetTarget(target mgl64.Vec3) {
	v.target = Flatten(target)
	v.hasTarget = true
}

func (v *Vehicle) SetPosition(pos mgl64.Vec3) {
	v.pos = pos
}

// SetMaxSpeed retunes a live vehicle; non-positive speeds are ignored
func (v *Vehicle) SetMaxSpeed(speed float64) {
	if speed > 0 {
		v.params.MaxSpeed = speed
	}
}

// Advance applies the arrive force for dt seconds
func (v *Vehicle) Advance(dt float64) {
	var desired mgl64.Vec3
	if v.hasTarget {
		to := Flatten(v.target.Sub(v.pos))
		dist := to.Len()
		if dist > v.params.Tolerance {
			speed := math.Min(dist/v.params.Deceleration, v.params.MaxSpeed)
			desired = to.Mul(speed / dist)
		}
	}
	accel := desired.Sub(v.vel).Mul(1 / v.params.Mass)
	v.vel = v.vel.Add(accel.Mul(dt))
	if speed := v.vel.Len(); speed > v.params.MaxSpeed {
		v.vel = v.vel.Mul(v.params.MaxSpeed / speed)
	}
	v.pos = v.pos.Add(v.vel.Mul(dt))
}

// VehicleEngine advances vehicles in spawn order
type VehicleEngine struct {
	vehicles []*Vehicle
}

// NewVehicleEngine is the default SteeringEngineFactory
func NewVehicleEngine() (SteeringEngine, error) {
	return &VehicleEngine{}, nil
}

func (e *VehicleEngine) Spawn(pos mgl64.Vec3, params SteeringParams) (SteeringAgent, error) {
	if params.MaxSpeed <= 0 || params.Mass <= 0 || params.Deceleration <= 0 {
		return nil, ErrInvalidSteering
	}
	v := &Vehicle{pos: Flatten(pos), params: params}
	e.vehicles = append(e.vehicles, v)
	return v, nil
}

func (e *VehicleEngine) Despawn(a SteeringAgent) {
	for i, v := range e.vehicles {
		if SteeringAgent(v) == a {
			e.vehicles = append(e.vehicles[:i], e.vehicles[i+1:]...)
			return
		}
	}
}

func (e *VehicleEngine) Update(dt float64) {
	for _, v := range e.vehicles {
		v.Advance(dt)
	}
}

func (e *VehicleEngine) Len() int { return len(e.vehicles) }
