package main

import (
	"crypto/rand"
	"encoding/hex"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// GenerateID returns a random hex string of the given byte length
func GenerateID(byteLen int) string {
	b := make([]byte, byteLen)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// GenerateUUID returns a random RFC 4122 identifier for sessions and runs
func GenerateUUID() string {
	return uuid.NewString()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Clamp01 restricts v to [0, 1]
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// PlanarDistSq returns the squared XZ distance between two points
func PlanarDistSq(a, b mgl64.Vec3) float64 {
	dx := b.X() - a.X()
	dz := b.Z() - a.Z()
	return dx*dx + dz*dz
}

// PlanarDist returns the XZ distance between two points
func PlanarDist(a, b mgl64.Vec3) float64 {
	return math.Sqrt(PlanarDistSq(a, b))
}

// Flatten drops the Y component
func Flatten(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}

// ClampToArena keeps a point inside the square arena on the XZ plane
func ClampToArena(p mgl64.Vec3, half float64) mgl64.Vec3 {
	return mgl64.Vec3{Clamp(p.X(), -half, half), p.Y(), Clamp(p.Z(), -half, half)}
}

// YawOf returns the heading of a planar direction, 0 facing +Z
func YawOf(dir mgl64.Vec3) float64 {
	return math.Atan2(dir.X(), dir.Z())
}

// RotateY rotates v around the Y axis by angle radians
func RotateY(v mgl64.Vec3, angle float64) mgl64.Vec3 {
	return mgl64.Rotate3DY(angle).Mul3x1(v)
}

// NormalizeAngle wraps angle to [-PI, PI]
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
