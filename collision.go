package main

import "github.com/go-gl/mathgl/mgl64"

// CheckCollision checks if two circles overlap on the XZ plane
func CheckCollision(a mgl64.Vec3, ra float64, b mgl64.Vec3, rb float64) bool {
	radSum := ra + rb
	return PlanarDistSq(a, b) <= radSum*radSum
}

// CheckCircleAABB checks a circle against an axis-aligned box on the XZ plane
func CheckCircleAABB(c mgl64.Vec3, r float64, center mgl64.Vec3, halfX, halfZ float64) bool {
	nx := Clamp(c.X(), center.X()-halfX, center.X()+halfX)
	nz := Clamp(c.Z(), center.Z()-halfZ, center.Z()+halfZ)
	dx := c.X() - nx
	dz := c.Z() - nz
	return dx*dx+dz*dz < r*r
}

// PushApart returns the offset that separates p from other when they are
// closer than minDist, proportional to the penetration depth and scaled by k.
// Coincident points are not separated.
func PushApart(p, other mgl64.Vec3, minDist, k float64) mgl64.Vec3 {
	d := mgl64.Vec3{p.X() - other.X(), 0, p.Z() - other.Z()}
	dist := d.Len()
	if dist >= minDist || dist <= 1e-4 {
		return mgl64.Vec3{}
	}
	return d.Mul((minDist - dist) * k / dist)
}
