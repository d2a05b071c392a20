package main

import "github.com/go-gl/mathgl/mgl64"

// Target is a static destructible practice target
type Target struct {
	ID       EntityID   `msgpack:"id"`
	Position mgl64.Vec3 `msgpack:"pos"`
}

// registerBlocks places the static corner blocks into the registry
func (s *Simulation) registerBlocks() {
	for _, c := range s.balance.BlockCenters {
		h := s.registry.RegisterBlock(mgl64.Vec3{c[0], 0, c[1]}, s.balance.BlockHalfSize)
		s.blocks = append(s.blocks, h)
	}
}

// blockedByBlock reports whether a circle at pos overlaps any static block
func (s *Simulation) blockedByBlock(pos mgl64.Vec3, radius float64) bool {
	s.entryBuf = s.registry.Nearby(EntityBlock, pos, radius, s.entryBuf[:0])
	for _, b := range s.entryBuf {
		if CheckCircleAABB(pos, radius, b.Position, b.HalfSize, b.HalfSize) {
			return true
		}
	}
	return false
}
