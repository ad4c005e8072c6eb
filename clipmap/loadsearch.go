package clipmap

import (
	"container/heap"

	"github.com/feldspar/feldspar/geom"
	"github.com/feldspar/feldspar/internal/tick"
	"github.com/feldspar/feldspar/node"
	"github.com/feldspar/feldspar/octree"
)

// NodeSlot is a candidate node the near-phase search wants loaded: its key,
// the nearest-ancestor pointer already present in the tree (the node whose
// descendant-is-loading bit must be tracked and eventually cleared), and
// whether it's also a render candidate (detail requirement satisfied, or a
// level-0 leaf).
type NodeSlot struct {
	Key              octree.NodeKey
	NearestAncestor  octree.Ptr
	IsRenderCandidate bool
}

// BroadPhase compares the clip sphere around the new observer position to
// the one recorded for the previous tick (if any) and returns the root keys
// whose bounding sphere newly intersects the clip sphere, i.e. the roots
// that must be seeded into the tree as Empty sentinels before the
// near-phase search can find them. The very first call (no previous clip
// sphere) treats every intersecting root as newly entering.
func (c *ClipMap) BroadPhase(newObserver geom.Vec3) (newRoots []octree.NodeKey) {
	defer func(done func()) { done() }(tick.Phase("clipmap.BroadPhase", 0))
	rootLevel := c.Config.TreeHeight - 1
	newSphere := c.ClipSphere(newObserver)

	edge := int32(chunkEdgeAtLevel(rootLevel))
	minX, maxX := gridRange(newSphere.Center.X, newSphere.Radius, edge)
	minY, maxY := gridRange(newSphere.Center.Y, newSphere.Radius, edge)
	minZ, maxZ := gridRange(newSphere.Center.Z, newSphere.Radius, edge)

	for z := minZ; z <= maxZ; z++ {
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				coords := geom.IVec3{X: x, Y: y, Z: z}
				bounds := BoundingSphere(rootLevel, coords)
				if !newSphere.Intersects(bounds) {
					continue
				}
				if c.haveOld && c.oldClipSphere.Intersects(bounds) {
					continue // already present from a previous tick
				}
				newRoots = append(newRoots, octree.NodeKey{Level: rootLevel, Coords: coords})
			}
		}
	}

	c.oldClipSphere = newSphere
	c.haveOld = true
	return newRoots
}

func chunkEdgeAtLevel(level uint8) int32 {
	return 16 << level
}

func gridRange(center float32, radius float32, edge int32) (lo, hi int32) {
	lo = int32((center-radius)/float32(edge)) - 1
	hi = int32((center+radius)/float32(edge)) + 1
	return lo, hi
}

// loadHeapElem is a near-phase search candidate, ordered by closest
// approach to the observer (center distance minus bounding radius): the
// search visits the nearest unresolved work first.
type loadHeapElem struct {
	key             octree.NodeKey
	ptr             octree.Ptr // Null if the node does not exist yet
	nearestAncestor octree.Ptr
	closestDist     float32
}

type loadHeap []loadHeapElem

func (h loadHeap) Len() int            { return len(h) }
func (h loadHeap) Less(i, j int) bool  { return h[i].closestDist < h[j].closestDist }
func (h loadHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *loadHeap) Push(x interface{}) { *h = append(*h, x.(loadHeapElem)) }
func (h *loadHeap) Pop() interface{} {
	old := *h
	n := len(old)
	elem := old[n-1]
	*h = old[:n-1]
	return elem
}

// NearPhase searches outward from observer for up to budget nodes that need
// loading, seeded by the given root keys (normally the result of BroadPhase
// merged with any roots already in the tree). It returns the nodes to load
// in closest-first order. A node qualifies as a load target — and stops the
// search from recursing further down that branch — when it is a leaf
// (level 0), when its distance-to-bounding-radius ratio already clears
// Config.Detail (far enough that finer children aren't worth streaming),
// or when it is occupied-and-loading with no descendant-loading bits set
// (all children loaded ⇒ ready to downsample in place). Every returned slot,
// whichever of these cases produced it, counts against budget.
func (c *ClipMap) NearPhase(observer geom.Vec3, seeds []octree.NodeKey, budget int) []NodeSlot {
	defer func(done func()) { done() }(tick.Phase("clipmap.NearPhase", budget))
	h := &loadHeap{}
	heap.Init(h)
	for _, key := range seeds {
		root := c.Tree.FillRoot(key, node.NewEmpty())
		push(h, c, observer, key, root, octree.Null)
	}

	var result []NodeSlot
	for h.Len() > 0 && len(result) < budget {
		elem := heap.Pop(h).(loadHeapElem)
		n := c.nodePayload(elem.ptr)

		if c.isRenderCandidate(elem.key.Level, elem.key.Coords, observer) {
			if n == nil || n.State.SlotState() == node.Empty {
				result = append(result, NodeSlot{Key: elem.key, NearestAncestor: elem.nearestAncestor, IsRenderCandidate: true})
			}
			continue
		}

		if n != nil && n.State.SlotState() != node.Empty && n.State.IsLoading() && !n.State.AnyChildLoading() {
			// Occupied and loading at this level with no child load
			// outstanding: ready for downsample-driven refinement. The
			// slot still takes one place in the budget.
			result = append(result, NodeSlot{Key: elem.key, NearestAncestor: elem.nearestAncestor})
			continue
		}

		for octant := 0; octant < 8; octant++ {
			childCoords := octree.ChildCoords(elem.key.Coords, octant)
			childKey := octree.NodeKey{Level: elem.key.Level - 1, Coords: childCoords}
			nearestAncestor := elem.nearestAncestor
			var childPtr octree.Ptr
			if elem.ptr != octree.Null {
				childPtr = c.Tree.Arena.Child(elem.ptr, octant)
				if childPtr == octree.Null && !n.State.ChildIsLoading(octant) {
					// Not loading and not present: nothing pulled this
					// child in yet, skip it until a future broad-phase
					// pass (or an explicit load request) seeds it.
					continue
				}
				nearestAncestor = elem.ptr
			}
			push(h, c, observer, childKey, childPtr, nearestAncestor)
		}
	}
	return result
}

func push(h *loadHeap, c *ClipMap, observer geom.Vec3, key octree.NodeKey, ptr octree.Ptr, nearestAncestor octree.Ptr) {
	bounds := BoundingSphere(key.Level, key.Coords)
	dist := observer.Distance(bounds.Center) - bounds.Radius
	heap.Push(h, loadHeapElem{key: key, ptr: ptr, nearestAncestor: nearestAncestor, closestDist: dist})
}

// MarkLoading flips the LoadPending bit on the node at key (creating it as
// an Empty sentinel if needed) and sets the descendant-is-loading bit on
// its nearest ancestor, per the near-phase handoff to the I/O pool.
func (c *ClipMap) MarkLoading(key octree.NodeKey, nearestAncestor octree.Ptr) *node.Node {
	var n *node.Node
	if key.Level == c.Config.TreeHeight-1 {
		p := c.Tree.FillRoot(key, node.NewEmpty())
		n = c.nodePayload(p)
	} else {
		ancestorNode := c.nodePayload(nearestAncestor)
		octant := octantBetween(c.Tree.Arena.Coords(nearestAncestor), c.Tree.Arena.Level(nearestAncestor), key)
		childPtr := c.Tree.FillChild(nearestAncestor, octant, node.NewEmpty())
		n = c.nodePayload(childPtr)
		ancestorNode.State.SetChildLoading(octant)
	}
	n.State.SetLoadPending()
	return n
}

// LoadHandle identifies where a slot's finished load belongs once it
// completes: the arguments CompleteLoad needs, computed once up front so
// the I/O pool doesn't need to touch the tree again until the load lands.
type LoadHandle struct {
	Key    octree.NodeKey
	Parent octree.Ptr
	Octant int
}

// PrepareLoad marks slot as loading (see MarkLoading) and returns the
// handle a host should hold onto and pass to CompleteLoad once the
// corresponding chunk bytes are read back from storage.
func (c *ClipMap) PrepareLoad(slot NodeSlot) LoadHandle {
	c.MarkLoading(slot.Key, slot.NearestAncestor)
	if slot.NearestAncestor == octree.Null {
		return LoadHandle{Key: slot.Key, Parent: octree.Null}
	}
	octant := octantBetween(c.Tree.Arena.Coords(slot.NearestAncestor), c.Tree.Arena.Level(slot.NearestAncestor), slot.Key)
	return LoadHandle{Key: slot.Key, Parent: slot.NearestAncestor, Octant: octant}
}

func octantBetween(ancestorCoords geom.IVec3, ancestorLevel uint8, target octree.NodeKey) int {
	shift := ancestorLevel - 1 - target.Level
	want := geom.IVec3{X: target.Coords.X >> shift, Y: target.Coords.Y >> shift, Z: target.Coords.Z >> shift}
	return int(want.X-ancestorCoords.X*2) | int(want.Y-ancestorCoords.Y*2)<<1 | int(want.Z-ancestorCoords.Z*2)<<2
}
