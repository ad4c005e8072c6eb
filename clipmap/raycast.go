package clipmap

import (
	"container/heap"
	"math"

	"github.com/feldspar/feldspar/chunk"
	"github.com/feldspar/feldspar/geom"
	"github.com/feldspar/feldspar/internal/tick"
	"github.com/feldspar/feldspar/octree"
)

type rayHeapElem struct {
	key        octree.NodeKey
	ptr        octree.Ptr
	timeWindow [2]float32
}

type rayHeap []rayHeapElem

func (h rayHeap) Len() int            { return len(h) }
func (h rayHeap) Less(i, j int) bool  { return h[i].timeWindow[0] < h[j].timeWindow[0] }
func (h rayHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *rayHeap) Push(x interface{}) { *h = append(*h, x.(rayHeapElem)) }
func (h *rayHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// RayHit is the result of EarliestIntersection: the leaf node the ray
// entered first, and the entrance/exit times within its chunk extent.
type RayHit struct {
	Key        octree.NodeKey
	Ptr        octree.Ptr
	TimeWindow [2]float32
}

// EarliestIntersection finds the leaf (level <= minLevel) whose chunk extent
// the ray crosses earliest; whether that leaf is occupied is not checked, so
// an Empty node can be the result. It searches the tree with a
// min-heap ordered by each candidate's entrance time, descending into
// children only while they could still beat the best leaf found so far, so
// whole subtrees behind the current best are pruned without being visited.
func (c *ClipMap) EarliestIntersection(ray geom.Ray, minLevel uint8) (RayHit, bool) {
	defer func(done func()) { done() }(tick.Phase("clipmap.EarliestIntersection", 0))
	h := &rayHeap{}
	heap.Init(h)
	c.Tree.IterRoots(func(key octree.NodeKey, p octree.Ptr) {
		ext := ChunkExtent(key.Level, key.Coords).ToAABB()
		if tmin, tmax, ok := ray.CastAtAABB(ext); ok {
			heap.Push(h, rayHeapElem{key: key, ptr: p, timeWindow: [2]float32{tmin, tmax}})
		}
	})

	earliest := float32(math.Inf(1))
	var best RayHit
	haveBest := false

	for h.Len() > 0 {
		elem := heap.Pop(h).(rayHeapElem)

		if elem.key.Level <= minLevel && elem.timeWindow[0] < earliest {
			earliest = elem.timeWindow[0]
			best = RayHit{Key: elem.key, Ptr: elem.ptr, TimeWindow: elem.timeWindow}
			haveBest = true
			continue
		}

		isLeaf := true
		children := c.Tree.Arena.Children(elem.ptr)
		for octant, cp := range children {
			if cp == octree.Null {
				continue
			}
			isLeaf = false
			childKey := octree.NodeKey{Level: elem.key.Level - 1, Coords: octree.ChildCoords(elem.key.Coords, octant)}
			ext := ChunkExtent(childKey.Level, childKey.Coords).ToAABB()
			tmin, tmax, ok := ray.CastAtAABB(ext)
			if !ok || tmin > earliest {
				continue
			}
			heap.Push(h, rayHeapElem{key: childKey, ptr: cp, timeWindow: [2]float32{tmin, tmax}})
		}

		if isLeaf && elem.timeWindow[0] < earliest {
			earliest = elem.timeWindow[0]
			best = RayHit{Key: elem.key, Ptr: elem.ptr, TimeWindow: elem.timeWindow}
			haveBest = true
		}
	}

	if !haveBest || best.TimeWindow[1] < best.TimeWindow[0] {
		return RayHit{}, false
	}
	return best, true
}

// RayIntersections walks the voxels of the chunk found by
// EarliestIntersection, invoking visit for each one until it returns true
// or the chunk's exit time is reached.
func (c *ClipMap) RayIntersections(ray geom.Ray, minLevel uint8, visit func(key octree.NodeKey, hit chunk.VoxelHit) (stop bool)) {
	hit, ok := c.EarliestIntersection(ray, minLevel)
	if !ok {
		return
	}
	n := c.nodePayload(hit.Ptr)
	if n == nil {
		return
	}
	ch, err := n.Slot.GetDecompressed()
	if err != nil || ch == nil {
		return
	}

	extent := ChunkExtent(hit.Key.Level, hit.Key.Coords)
	invScale := 1 / float32(uint32(1)<<hit.Key.Level)
	localStart := ray.Start.Sub(extent.Min.ToVec3()).Scale(invScale)
	localVelocity := ray.Velocity.Scale(invScale)
	localRay := geom.NewRay(localStart, localVelocity)
	chunk.RayIntersections(ch, localRay, hit.TimeWindow[0], hit.TimeWindow[1], func(vh chunk.VoxelHit) bool {
		return visit(hit.Key, vh)
	})
}
