package clipmap

import (
	"github.com/feldspar/feldspar/chunk"
	"github.com/feldspar/feldspar/node"
	"github.com/feldspar/feldspar/octree"
)

// CompleteLoad applies a finished I/O-pool load to the node at key. A stale
// completion (the node's LoadPending bit was already cleared, e.g. the node
// left the clip sphere and was evicted before its load finished) is
// detected and silently dropped, per the database/clipmap failure
// semantics: no error, no effect.
//
// The parent's descendant-is-loading bit for key's octant is cleared, and
// once no child of the parent is still loading, the parent is downsampled
// in place from its children (see tryDownsample). The grandparent's bits are
// not touched and no further ancestor is downsampled; this mirrors the original's
// "collapse on all-children-loaded" behavior without needing a second pass
// over the tree.
func (c *ClipMap) CompleteLoad(key octree.NodeKey, parent octree.Ptr, octant int, loaded *chunk.Chunk) bool {
	var n *node.Node
	if parent == octree.Null {
		p, ok := c.Tree.FindRoot(key)
		if !ok {
			return false
		}
		n = c.nodePayload(p)
	} else {
		childPtr := c.Tree.Arena.Child(parent, octant)
		if childPtr == octree.Null {
			return false
		}
		n = c.nodePayload(childPtr)
	}
	if n == nil || !n.MarkLoaded(loaded) {
		return false
	}

	if parent == octree.Null {
		return true
	}

	parentNode := c.nodePayload(parent)
	parentNode.State.ClearChildLoading(octant)
	if parentNode.State.AnyChildLoading() {
		return true
	}
	c.tryDownsample(parent)
	return true
}

// tryDownsample rebuilds the chunk at p from its 8 children, if all 8 are
// occupied, and marks p Decompressed+Occupied. Nodes with fewer than 8
// occupied children are left untouched; they become render candidates only
// once every child exists (spec's homogeneous-empty-subtree case is simply
// 8 ambient children downsampling to an ambient parent, no special case
// needed).
func (c *ClipMap) tryDownsample(p octree.Ptr) {
	children := c.Tree.Arena.Children(p)
	chunks := make([]*chunk.Chunk, 8)
	for octant, childPtr := range children {
		if childPtr == octree.Null {
			return
		}
		childNode := c.nodePayload(childPtr)
		if childNode == nil || childNode.State.SlotState() == node.Empty {
			return
		}
		cc, err := childNode.Slot.GetDecompressed()
		if err != nil || cc == nil {
			return
		}
		chunks[octant] = cc
	}

	parent := chunk.NewAmbient()
	for octant, cc := range chunks {
		chunk.DownsampleInto(parent, octant, cc)
	}
	parentNode := c.nodePayload(p)
	parentNode.Slot.PutDecompressed(parent)
	parentNode.State.SetOccupied()
	parentNode.State.ClearCompressed()
}
