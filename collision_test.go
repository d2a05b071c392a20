package main

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestCheckCollision(t *testing.T) {
	tests := []struct {
		a, b   mgl64.Vec3
		ra, rb float64
		want   bool
	}{
		{mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, 0.5, 0.5, true},     // touching
		{mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1.1, 0, 0}, 0.5, 0.5, false},  // apart
		{mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0.5, 9, 0.5}, 0.5, 0.5, true}, // height ignored
	}
	for i, tt := range tests {
		if got := CheckCollision(tt.a, tt.ra, tt.b, tt.rb); got != tt.want {
			t.Errorf("case %d: expected %v, got %v", i, tt.want, got)
		}
	}
}

func TestCheckCircleAABB(t *testing.T) {
	center := mgl64.Vec3{20, 0, 20}
	if !CheckCircleAABB(mgl64.Vec3{21.5, 0, 20}, 1, center, 1, 1) {
		t.Error("circle overlapping the box edge should collide")
	}
	if CheckCircleAABB(mgl64.Vec3{22.5, 0, 20}, 1, center, 1, 1) {
		t.Error("circle clear of the box should not collide")
	}
	// Corner: distance to (21,21) is sqrt(0.5) < 1
	if !CheckCircleAABB(mgl64.Vec3{21.5, 0, 21.5}, 1, center, 1, 1) {
		t.Error("circle near the corner should collide")
	}
	if !CheckCircleAABB(center, 0.1, center, 1, 1) {
		t.Error("circle inside the box should collide")
	}
}

func TestPushApart(t *testing.T) {
	push := PushApart(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}, 1.5, 1)
	if math.Abs(push.X()-0.5) > 1e-9 || push.Z() != 0 {
		t.Errorf("expected push (0.5,0,0), got %v", push)
	}

	if push := PushApart(mgl64.Vec3{2, 0, 0}, mgl64.Vec3{}, 1.5, 1); push.Len() != 0 {
		t.Errorf("expected no push when apart, got %v", push)
	}
	if push := PushApart(mgl64.Vec3{}, mgl64.Vec3{}, 1.5, 1); push.Len() != 0 {
		t.Errorf("coincident points should not be pushed, got %v", push)
	}
}

func TestPlayerBlockedByPillar(t *testing.T) {
	sim := newStartedSim(t)
	sim.store.MovePlayer(mgl64.Vec3{20, 0, 17}, 0)
	sim.registry.Update(sim.playerHandle, mgl64.Vec3{20, 0, 17})

	for i := 0; i < 60; i++ {
		sim.Tick(InputSnapshot{MoveForward: 1}, testDT)
	}
	p := sim.Store().Player()
	if p.Position.Z() > 20-1-sim.Balance().PlayerBlockRadius+0.2 {
		t.Errorf("player walked into the pillar: z=%v", p.Position.Z())
	}
}
