package clipmap

import (
	"github.com/feldspar/feldspar/geom"
	"github.com/feldspar/feldspar/internal/tick"
	"github.com/feldspar/feldspar/node"
	"github.com/feldspar/feldspar/octree"
)

// Neighbor is one member of a Neighborhood: either an occupied node in the
// tree, or an empty slot annotated with whether an ancestor has already
// confirmed that gap finished loading (an unoccupied octant that will never
// be filled, e.g. past the edge of the generated world, still counts as
// "loaded" once its parent says so).
type Neighbor struct {
	Ptr      octree.Ptr
	Occupied bool
	Loaded   bool
}

// Neighborhood is the 2x2x2 block of same-level nodes anchored at (and
// including, as its minimum corner) a render-search candidate — the actual
// mesh input unit, since meshing a chunk needs its positive-side boundary
// neighbors. Neighbors is indexed in cube-corner order (bit0=+X, bit1=+Y,
// bit2=+Z), matching Neighborhoods/NeighborhoodsParents.
type Neighborhood struct {
	Level     uint8
	Coords    geom.IVec3
	Neighbors [8]Neighbor
}

// min returns the neighborhood's minimum-corner node, which render search
// always guarantees is Occupied before constructing a Neighborhood.
func (n Neighborhood) min() Neighbor { return n.Neighbors[0] }

// LodChange is one of Spawn, Split, or Merge, the three render LOD events a
// render search step can produce for a host mesher to apply.
type LodChange struct {
	Kind LodChangeKind
	// Spawn: Neighborhood is the newly-rendered node's neighborhood.
	Neighborhood Neighborhood
	// Split: Old is the node giving way; Children holds the child
	// neighborhoods that replace it, indexed by octant, nil where the
	// octant's minimum corner doesn't exist.
	Old      octree.NodeKey
	Children [8]*Neighborhood
	// Merge: OldKeys lists the descendant nodes whose Rendering bit this
	// change cleared, and Neighborhood is the node replacing them.
	OldKeys []octree.NodeKey
}

type LodChangeKind int

const (
	Spawn LodChangeKind = iota
	Split
	Merge
)

// isRenderCandidate reports whether a node at level, coords is detailed
// enough to stop subdividing toward the observer: true for level-0 leaves,
// or once its distance-to-bounding-radius ratio clears Config.Detail.
func (c *ClipMap) isRenderCandidate(level uint8, coords geom.IVec3, observer geom.Vec3) bool {
	if level == 0 {
		return true
	}
	sphere := BoundingSphere(level, coords)
	dist := observer.Distance(sphere.Center)
	return dist/sphere.Radius > c.Config.Detail
}

// RenderSearch walks the occupied portion of the tree from observer's point
// of view and returns the LOD transitions needed this tick: Spawn for a
// neighborhood newly detailed enough to render, Split when a rendering
// node must give way to its (now fully loaded) children, and Merge when a
// rendering node's descendants collapse back into it. The search maintains
// the invariant that on any root-to-leaf path exactly one node is active
// for rendering after each tick; per the decision recorded in DESIGN.md, at
// most one level of Split/Merge is emitted per node per call, so deep LOD
// transitions resolve over several ticks rather than one recursive pass.
func (c *ClipMap) RenderSearch(observer geom.Vec3) []LodChange {
	defer func(done func()) { done() }(tick.Phase("clipmap.RenderSearch", c.Tree.NumRoots()))
	var changes []LodChange
	c.Tree.IterRoots(func(key octree.NodeKey, _ octree.Ptr) {
		if nbhd, ok := c.rootNeighborhood(key); ok {
			c.renderSearchAt(nbhd, observer, &changes)
		}
	})
	return changes
}

// rootNeighborhood builds the neighborhood anchored at the root key by
// looking up the 8 cube-corner-offset roots; a missing corner root is
// recorded Empty with Loaded false, since root presence is driven entirely
// by BroadPhase and never separately tracked as "still loading."
func (c *ClipMap) rootNeighborhood(key octree.NodeKey) (Neighborhood, bool) {
	if _, ok := c.Tree.FindRoot(key); !ok {
		return Neighborhood{}, false
	}
	nbhd := Neighborhood{Level: key.Level, Coords: key.Coords}
	for i := 0; i < 8; i++ {
		offset := octree.ChildOffset(i)
		neighborKey := octree.NodeKey{
			Level: key.Level,
			Coords: geom.IVec3{
				X: key.Coords.X + offset.X,
				Y: key.Coords.Y + offset.Y,
				Z: key.Coords.Z + offset.Z,
			},
		}
		if p, ok := c.Tree.FindRoot(neighborKey); ok {
			nbhd.Neighbors[i] = Neighbor{Ptr: p, Occupied: true}
		}
	}
	return nbhd, true
}

func (c *ClipMap) renderSearchAt(nbhd Neighborhood, observer geom.Vec3, changes *[]LodChange) {
	min := nbhd.min()
	if !min.Occupied {
		return
	}
	minNode := c.nodePayload(min.Ptr)
	if minNode == nil || minNode.State.SlotState() == node.Empty {
		return
	}

	wasActive := minNode.State.IsRendering()
	isActive := c.isRenderCandidate(nbhd.Level, nbhd.Coords, observer)

	switch {
	case wasActive && isActive:
		return
	case !wasActive && !isActive:
		c.addChildNeighborhoods(nbhd, min.Ptr, observer, changes)
	case wasActive && !isActive:
		if lc, ok := c.trySplit(nbhd, min.Ptr, minNode); ok {
			*changes = append(*changes, lc)
		}
	default: // !wasActive && isActive
		if minNode.State.IsLoading() || !neighborhoodIsLoaded(c, nbhd) {
			return
		}
		minNode.State.SetRendering()
		if nbhd.Level == 0 {
			*changes = append(*changes, LodChange{Kind: Spawn, Neighborhood: nbhd})
			return
		}
		*changes = append(*changes, c.mergeIntoNeighborhood(nbhd, min.Ptr))
	}
}

// addChildNeighborhoods constructs the 8 child neighborhoods of nbhd and
// recurses into whichever ones exist (their minimum corner is occupied).
func (c *ClipMap) addChildNeighborhoods(nbhd Neighborhood, minPtr octree.Ptr, observer geom.Vec3, changes *[]LodChange) {
	children := c.constructChildNeighborhoods(nbhd, minPtr)
	for _, child := range children {
		if child != nil {
			c.renderSearchAt(*child, observer, changes)
		}
	}
}

// trySplit constructs nbhd's child neighborhoods and, if every one of them
// is fully loaded, clears the parent's Rendering bit, sets it on each
// child's minimum corner, and returns the Split event. If any child
// neighborhood isn't loaded yet, it returns ok=false and leaves state
// untouched — rendering stays on the coarse node for one more tick.
func (c *ClipMap) trySplit(nbhd Neighborhood, minPtr octree.Ptr, minNode *node.Node) (LodChange, bool) {
	children := c.constructChildNeighborhoods(nbhd, minPtr)
	for _, child := range children {
		if child != nil && !neighborhoodIsLoaded(c, *child) {
			return LodChange{}, false
		}
	}

	minNode.State.ClearRendering()
	for _, child := range children {
		if child == nil {
			continue
		}
		c.nodePayload(child.min().Ptr).State.SetRendering()
	}

	key := octree.NodeKey{Level: nbhd.Level, Coords: nbhd.Coords}
	return LodChange{Kind: Split, Old: key, Children: children}, true
}

// mergeIntoNeighborhood is called once the caller has marked nbhd's minimum
// corner Rendering; it clears the Rendering bit on every previously-rendering
// descendant,
// emitting Merge if any such descendant existed or Spawn otherwise.
func (c *ClipMap) mergeIntoNeighborhood(nbhd Neighborhood, minPtr octree.Ptr) LodChange {
	var oldKeys []octree.NodeKey
	for octant, childPtr := range c.Tree.Arena.Children(minPtr) {
		if childPtr == octree.Null {
			continue
		}
		childKey := octree.NodeKey{Level: nbhd.Level - 1, Coords: octree.ChildCoords(nbhd.Coords, octant)}
		c.collectRenderingDescendants(childPtr, childKey, &oldKeys)
	}

	if len(oldKeys) == 0 {
		return LodChange{Kind: Spawn, Neighborhood: nbhd}
	}
	return LodChange{Kind: Merge, Neighborhood: nbhd, OldKeys: oldKeys}
}

// collectRenderingDescendants walks p's subtree depth-first, clearing and
// recording every node whose Rendering bit was set, and not descending
// past one once found (a rendering node has no rendering descendants,
// since exactly one node per root-to-leaf path is active at a time).
func (c *ClipMap) collectRenderingDescendants(p octree.Ptr, key octree.NodeKey, out *[]octree.NodeKey) {
	n := c.nodePayload(p)
	if n == nil {
		return
	}
	if n.State.IsRendering() {
		n.State.ClearRendering()
		*out = append(*out, key)
		return
	}
	for octant, childPtr := range c.Tree.Arena.Children(p) {
		if childPtr == octree.Null {
			continue
		}
		childKey := octree.NodeKey{Level: key.Level - 1, Coords: octree.ChildCoords(key.Coords, octant)}
		c.collectRenderingDescendants(childPtr, childKey, out)
	}
}

// constructChildNeighborhoods builds nbhd's 8 child neighborhoods by
// consulting Neighborhoods/NeighborhoodsParents: for child octant ci
// (skipped entirely if the minimum corner's own child ci doesn't exist),
// the k-th member of the child neighborhood comes from octant
// Neighborhoods[ci][k] of whichever neighbor NeighborhoodsParents[ci][k]
// names in the parent neighborhood — an Occupied parent contributes its
// own child pointer (or an Empty slot tagged with that parent's
// descendant-loading bit for ci if the child is absent), and an Empty
// parent simply propagates its own Empty/Loaded state.
func (c *ClipMap) constructChildNeighborhoods(nbhd Neighborhood, minPtr octree.Ptr) [8]*Neighborhood {
	var out [8]*Neighborhood
	minChildren := c.Tree.Arena.Children(minPtr)
	childLevel := nbhd.Level - 1

	for ci := 0; ci < 8; ci++ {
		if minChildren[ci] == octree.Null {
			continue
		}
		child := &Neighborhood{Level: childLevel, Coords: octree.ChildCoords(nbhd.Coords, ci)}
		for k := 0; k < 8; k++ {
			parentIdx := NeighborhoodsParents[ci][k]
			childIdx := Neighborhoods[ci][k]
			parent := nbhd.Neighbors[parentIdx]
			if !parent.Occupied {
				child.Neighbors[k] = parent
				continue
			}
			parentNode := c.nodePayload(parent.Ptr)
			childPtr := c.Tree.Arena.Child(parent.Ptr, childIdx)
			if childPtr != octree.Null {
				child.Neighbors[k] = Neighbor{Ptr: childPtr, Occupied: true}
			} else {
				child.Neighbors[k] = Neighbor{Loaded: !parentNode.State.ChildIsLoading(childIdx)}
			}
		}
		out[ci] = child
	}
	return out
}

// neighborhoodIsLoaded reports whether every member of nbhd is ready to
// feed a mesher: an Occupied neighbor must not itself be mid-load, and an
// Empty neighbor must be marked Loaded.
func neighborhoodIsLoaded(c *ClipMap, nbhd Neighborhood) bool {
	for _, n := range nbhd.Neighbors {
		if n.Occupied {
			neighborNode := c.nodePayload(n.Ptr)
			if neighborNode == nil || neighborNode.State.IsLoading() {
				return false
			}
			continue
		}
		if !n.Loaded {
			return false
		}
	}
	return true
}
