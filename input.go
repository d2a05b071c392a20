package main

// InputSnapshot is the per-tick player intent, assembled once and passed by value
type InputSnapshot struct {
	MoveForward float64  `msgpack:"f" json:"f"`
	MoveRight   float64  `msgpack:"r" json:"r"`
	LookDX      float64  `msgpack:"lx" json:"lx"`
	LookDY      float64  `msgpack:"ly" json:"ly"`
	Firing      bool     `msgpack:"fire" json:"fire"`
	WeaponSwap  WeaponID `msgpack:"swap,omitempty" json:"swap,omitempty"`
	CycleWeapon bool     `msgpack:"cycle,omitempty" json:"cycle,omitempty"`
}

// InputBuffer collects client input between ticks. Look deltas accumulate,
// move axes and firing keep the latest value, weapon swaps latch until consumed.
type InputBuffer struct {
	pending InputSnapshot
}

// Apply merges one client input message
func (b *InputBuffer) Apply(in ClientInput) {
	b.pending.MoveForward = Clamp(in.F, -1, 1)
	b.pending.MoveRight = Clamp(in.R, -1, 1)
	b.pending.LookDX += in.LX
	b.pending.LookDY += in.LY
	b.pending.Firing = in.Fire
	if in.Swap != "" {
		b.pending.WeaponSwap = WeaponID(in.Swap)
	}
	if in.Cycle {
		b.pending.CycleWeapon = true
	}
}

// Consume returns the snapshot for this tick and clears one-shot fields
func (b *InputBuffer) Consume() InputSnapshot {
	snap := b.pending
	b.pending.LookDX = 0
	b.pending.LookDY = 0
	b.pending.WeaponSwap = ""
	b.pending.CycleWeapon = false
	return snap
}

// Reset drops all buffered input
func (b *InputBuffer) Reset() {
	b.pending = InputSnapshot{}
}
