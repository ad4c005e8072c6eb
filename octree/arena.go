// Package octree implements the sparse 8-ary tree of chunk nodes: an
// arena-allocated set of entries addressed by 32-bit pointers (never raw
// Go pointers, so the structure stays relocation-free and cheap to index
// from the load/render search heaps), plus a separate map of root entries
// keyed by (level, coordinates).
//
// The arena is a hand-rolled free-list allocator rather than a pack
// dependency: no example in the retrieval set ships a generic slab/slot-map
// crate, and the original's own Allocator32 is the direct model for this
// file, so a small bespoke implementation is the faithful translation.
package octree

import "github.com/feldspar/feldspar/geom"

// Ptr addresses an arena entry. The zero value is the null pointer; no
// entry is ever allocated at index 0.
type Ptr uint32

const Null Ptr = 0

// NodeKey identifies a root entry: its level and chunk-grid coordinates.
type NodeKey struct {
	Level  uint8
	Coords geom.IVec3
}

type entry struct {
	level    uint8
	coords   geom.IVec3
	parent   Ptr
	children [8]Ptr
	payload  interface{}
	occupied bool
}

// Arena is a free-list-backed slab of tree entries.
type Arena struct {
	entries []entry
	free    []Ptr
}

func NewArena() *Arena {
	// Entry 0 is reserved so the zero Ptr can mean "null".
	return &Arena{entries: make([]entry, 1)}
}

func (a *Arena) alloc(level uint8, coords geom.IVec3, parent Ptr, payload interface{}) Ptr {
	e := entry{level: level, coords: coords, parent: parent, payload: payload, occupied: true}
	if n := len(a.free); n > 0 {
		p := a.free[n-1]
		a.free = a.free[:n-1]
		a.entries[p] = e
		return p
	}
	a.entries = append(a.entries, e)
	return Ptr(len(a.entries) - 1)
}

func (a *Arena) free_(p Ptr) {
	a.entries[p] = entry{}
	a.free = append(a.free, p)
}

func (a *Arena) get(p Ptr) *entry {
	if p == Null {
		return nil
	}
	return &a.entries[p]
}

// Level returns the tree level of the node at p.
func (a *Arena) Level(p Ptr) uint8 { return a.get(p).level }

// Coords returns the chunk-grid coordinates of the node at p.
func (a *Arena) Coords(p Ptr) geom.IVec3 { return a.get(p).coords }

// Parent returns the parent pointer of p, or Null if p is a root.
func (a *Arena) Parent(p Ptr) Ptr { return a.get(p).parent }

// Payload returns the node's stored value.
func (a *Arena) Payload(p Ptr) interface{} { return a.get(p).payload }

// SetPayload replaces the node's stored value.
func (a *Arena) SetPayload(p Ptr, payload interface{}) { a.get(p).payload = payload }

// Children returns the 8 child pointers of p (Null where absent).
func (a *Arena) Children(p Ptr) [8]Ptr { return a.get(p).children }

// Child returns the child pointer of p at the given octant (0-7).
func (a *Arena) Child(p Ptr, octant int) Ptr { return a.get(p).children[octant] }
