package main

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

const SpatialCellSize = 4.0 // ~2x largest enemy hit radius (miniboss 2.2)

// EntityKind tags a registry entry
type EntityKind byte

const (
	EntityPlayer EntityKind = 'p'
	EntityEnemy  EntityKind = 'm'
	EntityBlock  EntityKind = 'b'
)

// Handle identifies a registry slot. A handle whose generation no longer
// matches the slot refers to an entity that has been unregistered.
type Handle struct {
	Slot uint32
	Gen  uint32
}

// Valid reports whether h was ever issued
func (h Handle) Valid() bool { return h.Gen != 0 }

// Entry is one registered body
type Entry struct {
	Handle   Handle
	Kind     EntityKind
	EntityID EntityID
	Position mgl64.Vec3
	Radius   float64
	HalfSize float64 // blocks only
}

type registrySlot struct {
	entry Entry
	gen   uint32
	live  bool
}

// SpatialGrid is a fixed-size grid for broad-phase queries over the arena
type SpatialGrid struct {
	minX, minZ float64
	cols, rows int
	cells      [][]uint32 // slot indices
}

// NewSpatialGrid creates a grid covering [-half, half] on X and Z
func NewSpatialGrid(half float64) *SpatialGrid {
	n := int(math.Ceil(2*half/SpatialCellSize)) + 1
	return &SpatialGrid{
		minX:  -half,
		minZ:  -half,
		cols:  n,
		rows:  n,
		cells: make([][]uint32, n*n),
	}
}

// Clear resets all cells (keeps allocated capacity)
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *SpatialGrid) cellRange(x, z, radius float64) (minCX, maxCX, minCZ, maxCZ int) {
	minCX = g.clampCol(int((x - radius - g.minX) / SpatialCellSize))
	maxCX = g.clampCol(int((x + radius - g.minX) / SpatialCellSize))
	minCZ = g.clampRow(int((z - radius - g.minZ) / SpatialCellSize))
	maxCZ = g.clampRow(int((z + radius - g.minZ) / SpatialCellSize))
	return
}

func (g *SpatialGrid) clampCol(c int) int {
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *SpatialGrid) clampRow(r int) int {
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

// InsertCircle adds a slot to all cells overlapping its bounding box
func (g *SpatialGrid) InsertCircle(x, z, radius float64, slot uint32) {
	minCX, maxCX, minCZ, maxCZ := g.cellRange(x, z, radius)
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cz*g.cols + cx
			g.cells[idx] = append(g.cells[idx], slot)
		}
	}
}

// QueryBuf appends slots in cells overlapping the box to buf.
// A slot spanning several cells may appear more than once.
func (g *SpatialGrid) QueryBuf(x, z, radius float64, buf []uint32) []uint32 {
	minCX, maxCX, minCZ, maxCZ := g.cellRange(x, z, radius)
	for cz := minCZ; cz <= maxCZ; cz++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[cz*g.cols+cx]...)
		}
	}
	return buf
}

// SpatialRegistry holds the authoritative positions of the player, enemies
// and static blocks. Positions are written by movement and read by combat
// and AI. Iteration is in slot order, which is deterministic for a given
// sequence of register/unregister calls.
type SpatialRegistry struct {
	slots  []registrySlot
	free   []uint32
	player Handle
	grid   *SpatialGrid
	dirty  bool
	qbuf   []uint32
}

// NewSpatialRegistry creates an empty registry for an arena of the given half extent
func NewSpatialRegistry(half float64) *SpatialRegistry {
	return &SpatialRegistry{grid: NewSpatialGrid(half), dirty: true}
}

// Register adds a body and returns its handle
func (r *SpatialRegistry) Register(kind EntityKind, id EntityID, pos mgl64.Vec3, radius float64) Handle {
	var slot uint32
	if n := len(r.free); n > 0 {
		slot = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, registrySlot{})
		slot = uint32(len(r.slots) - 1)
	}
	s := &r.slots[slot]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.live = true
	h := Handle{Slot: slot, Gen: s.gen}
	s.entry = Entry{Handle: h, Kind: kind, EntityID: id, Position: pos, Radius: radius}
	if kind == EntityPlayer {
		r.player = h
	}
	r.dirty = true
	return h
}

// RegisterBlock adds a static square block
func (r *SpatialRegistry) RegisterBlock(center mgl64.Vec3, halfSize float64) Handle {
	h := r.Register(EntityBlock, 0, center, halfSize*math.Sqrt2)
	r.slots[h.Slot].entry.HalfSize = halfSize
	return h
}

func (r *SpatialRegistry) lookup(h Handle) *registrySlot {
	if !h.Valid() || int(h.Slot) >= len(r.slots) {
		return nil
	}
	s := &r.slots[h.Slot]
	if !s.live || s.gen != h.Gen {
		return nil
	}
	return s
}

// Unregister removes a body. Stale or unknown handles are a no-op returning false.
func (r *SpatialRegistry) Unregister(h Handle) bool {
	s := r.lookup(h)
	if s == nil {
		return false
	}
	s.live = false
	s.entry = Entry{}
	r.free = append(r.free, h.Slot)
	if r.player == h {
		r.player = Handle{}
	}
	r.dirty = true
	return true
}

// Update moves a body. Stale handles are ignored.
func (r *SpatialRegistry) Update(h Handle, pos mgl64.Vec3) bool {
	s := r.lookup(h)
	if s == nil {
		return false
	}
	s.entry.Position = pos
	r.dirty = true
	return true
}

// Get returns the entry for a live handle
func (r *SpatialRegistry) Get(h Handle) (Entry, bool) {
	s := r.lookup(h)
	if s == nil {
		return Entry{}, false
	}
	return s.entry, true
}

// Player returns the registered player entry
func (r *SpatialRegistry) Player() (Entry, bool) {
	return r.Get(r.player)
}

// Each calls fn for every live entry of a kind in slot order until fn returns false
func (r *SpatialRegistry) Each(kind EntityKind, fn func(Entry) bool) {
	for i := range r.slots {
		s := &r.slots[i]
		if s.live && s.entry.Kind == kind {
			if !fn(s.entry) {
				return
			}
		}
	}
}

// Entries appends live entries of a kind to buf in slot order
func (r *SpatialRegistry) Entries(kind EntityKind, buf []Entry) []Entry {
	r.Each(kind, func(e Entry) bool {
		buf = append(buf, e)
		return true
	})
	return buf
}

// Count returns the number of live entries of a kind
func (r *SpatialRegistry) Count(kind EntityKind) int {
	n := 0
	r.Each(kind, func(Entry) bool {
		n++
		return true
	})
	return n
}

func (r *SpatialRegistry) rebuild() {
	if !r.dirty {
		return
	}
	r.grid.Clear()
	for i := range r.slots {
		s := &r.slots[i]
		if s.live {
			r.grid.InsertCircle(s.entry.Position.X(), s.entry.Position.Z(), s.entry.Radius, uint32(i))
		}
	}
	r.dirty = false
}

// Nearby appends live entries of a kind whose bounding cells overlap the
// circle at p, oldest entity first and without duplicates.
func (r *SpatialRegistry) Nearby(kind EntityKind, p mgl64.Vec3, radius float64, buf []Entry) []Entry {
	r.rebuild()
	start := len(buf)
	r.qbuf = r.grid.QueryBuf(p.X(), p.Z(), radius, r.qbuf[:0])
	sort.Slice(r.qbuf, func(i, j int) bool { return r.qbuf[i] < r.qbuf[j] })
	last := uint32(math.MaxUint32)
	for _, slot := range r.qbuf {
		if slot == last {
			continue
		}
		last = slot
		s := &r.slots[slot]
		if s.live && s.entry.Kind == kind {
			buf = append(buf, s.entry)
		}
	}
	// freed slots are reused, so slot order is not registration order
	found := buf[start:]
	sort.SliceStable(found, func(i, j int) bool { return found[i].EntityID < found[j].EntityID })
	return buf
}
