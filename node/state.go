package node

import "sync/atomic"

// State bits, matching the original's StateBit enum.
const (
	bitOccupied = 1 << iota
	bitCompressed
	bitLoadPending
	bitRendering
)

// State is a node's atomic status bitset plus the non-atomic
// descendant-is-loading bitset. Occupied/Compressed/LoadPending/Rendering
// are read and mutated with SeqCst ordering since they guard cross-goroutine
// handoffs (owner thread <-> worker pool <-> I/O pool); descendantIsLoading
// is only ever touched by the single owner thread during a tick and needs
// no synchronization.
type State struct {
	bits               uint32
	descendantIsLoading uint8
}

func NewState() *State { return &State{} }

func (s *State) IsOccupied() bool  { return atomic.LoadUint32(&s.bits)&bitOccupied != 0 }
func (s *State) SetOccupied()      { orBit(&s.bits, bitOccupied) }
func (s *State) ClearOccupied()    { andNotBit(&s.bits, bitOccupied) }

func (s *State) IsCompressed() bool { return atomic.LoadUint32(&s.bits)&bitCompressed != 0 }
func (s *State) SetCompressed()     { orBit(&s.bits, bitCompressed) }
func (s *State) ClearCompressed()   { andNotBit(&s.bits, bitCompressed) }

func (s *State) IsRendering() bool { return atomic.LoadUint32(&s.bits)&bitRendering != 0 }
func (s *State) SetRendering()     { orBit(&s.bits, bitRendering) }
func (s *State) ClearRendering()   { andNotBit(&s.bits, bitRendering) }

// IsLoading reports whether this node itself has a load in flight.
func (s *State) IsLoading() bool { return atomic.LoadUint32(&s.bits)&bitLoadPending != 0 }

// SetLoadPending marks a load in flight for this node.
func (s *State) SetLoadPending() { orBit(&s.bits, bitLoadPending) }

// TryClearLoadPending clears the load-pending bit only if it is currently
// set, reporting whether it did so. This is the compare-and-clear a load
// completion uses to detect (and ignore) a stale/duplicate completion.
func (s *State) TryClearLoadPending() bool {
	for {
		old := atomic.LoadUint32(&s.bits)
		if old&bitLoadPending == 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(&s.bits, old, old&^bitLoadPending) {
			return true
		}
	}
}

// TreeIsLoading reports whether this node or any descendant has a load in
// flight.
func (s *State) TreeIsLoading() bool {
	return s.IsLoading() || s.descendantIsLoading != 0
}

// SetChildLoading/ClearChildLoading/ChildIsLoading/AnyChildLoading manage the
// descendant-is-loading bitset, keyed by child octant index (0-7). Only the
// owner thread may call these.
func (s *State) SetChildLoading(child int)      { s.descendantIsLoading |= 1 << uint(child) }
func (s *State) ClearChildLoading(child int)     { s.descendantIsLoading &^= 1 << uint(child) }
func (s *State) ChildIsLoading(child int) bool   { return s.descendantIsLoading&(1<<uint(child)) != 0 }
func (s *State) AnyChildLoading() bool           { return s.descendantIsLoading != 0 }
func (s *State) DescendantIsLoading() uint8       { return s.descendantIsLoading }

// SlotState summarizes the occupied/compressed bits into the three logical
// slot states, mirroring ChunkSlot's own SlotKind.
func (s *State) SlotState() SlotKind {
	bits := atomic.LoadUint32(&s.bits)
	if bits&bitOccupied == 0 {
		return Empty
	}
	if bits&bitCompressed != 0 {
		return Compressed
	}
	return Decompressed
}

func orBit(addr *uint32, bit uint32) {
	for {
		old := atomic.LoadUint32(addr)
		if old&bit != 0 {
			return
		}
		if atomic.CompareAndSwapUint32(addr, old, old|bit) {
			return
		}
	}
}

func andNotBit(addr *uint32, bit uint32) {
	for {
		old := atomic.LoadUint32(addr)
		if old&bit == 0 {
			return
		}
		if atomic.CompareAndSwapUint32(addr, old, old&^bit) {
			return
		}
	}
}
