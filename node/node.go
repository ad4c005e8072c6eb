package node

import "github.com/feldspar/feldspar/chunk"

// Node is one octree node's chunk storage: the slot holding its payload and
// the atomic state bits describing it. The octree arena holds *Node
// payloads; Slot and State are themselves reference-shaped (slot wraps a
// mutex, state wraps atomics) so a *Node handed to multiple goroutines is
// safe to share.
type Node struct {
	Slot  *ChunkSlot
	State *State
}

// NewEmpty returns a node with no chunk payload.
func NewEmpty() *Node {
	return &Node{Slot: NewEmptySlot(), State: NewState()}
}

// NewCompressed returns an occupied node holding a compressed chunk.
func NewCompressed(cc chunk.CompressedChunk) *Node {
	n := &Node{Slot: NewCompressedSlot(cc), State: NewState()}
	n.State.SetOccupied()
	n.State.SetCompressed()
	return n
}

// NewDecompressed returns an occupied node holding a decompressed chunk.
func NewDecompressed(c *chunk.Chunk) *Node {
	n := &Node{Slot: NewDecompressedSlot(c), State: NewState()}
	n.State.SetOccupied()
	return n
}

// MarkLoaded transitions a node from LoadPending to occupied-and-decompressed
// once its chunk has arrived from the I/O pool, returning false if the load
// was stale (the pending bit had already been cleared, e.g. the node was
// evicted or the load was redundant).
func (n *Node) MarkLoaded(c *chunk.Chunk) bool {
	if !n.State.TryClearLoadPending() {
		return false
	}
	n.Slot.PutDecompressed(c)
	n.State.SetOccupied()
	n.State.ClearCompressed()
	return true
}
