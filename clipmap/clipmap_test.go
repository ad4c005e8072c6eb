package clipmap

import (
	"testing"

	"github.com/feldspar/feldspar/chunk"
	"github.com/feldspar/feldspar/geom"
	"github.com/feldspar/feldspar/node"
	"github.com/feldspar/feldspar/octree"
)

func testConfig() Config {
	return Config{Detail: 6.0, ClipSphereRadius: 64.0, TreeHeight: 3}
}

func TestBoundingSphereRadius(t *testing.T) {
	s := BoundingSphere(0, geom.IVec3{0, 0, 0})
	const want = float32(8) * 1.7320508
	if diff := s.Radius - want; diff > 1e-3 || diff < -1e-3 {
		t.Fatalf("radius = %v, want %v", s.Radius, want)
	}
}

func TestBroadPhaseFindsNewRootsOnce(t *testing.T) {
	c := New(testConfig())
	roots := c.BroadPhase(geom.Vec3{0, 0, 0})
	if len(roots) == 0 {
		t.Fatalf("expected at least one root to intersect the clip sphere")
	}
	again := c.BroadPhase(geom.Vec3{0, 0, 0})
	if len(again) != 0 {
		t.Fatalf("expected no new roots on a repeated broad phase at the same position, got %d", len(again))
	}
}

func TestNearPhaseRespectsBudget(t *testing.T) {
	c := New(testConfig())
	roots := c.BroadPhase(geom.Vec3{0, 0, 0})
	slots := c.NearPhase(geom.Vec3{0, 0, 0}, roots, 3)
	count := 0
	for _, s := range slots {
		if s.Key.Level == 0 {
			count++
		}
	}
	if count > 3 {
		t.Fatalf("near phase returned %d level-0 loads, want <= budget 3", count)
	}
}

func TestCompleteLoadDropsStaleCompletion(t *testing.T) {
	c := New(testConfig())
	key := octree.NodeKey{Level: 0, Coords: geom.IVec3{0, 0, 0}}
	c.Tree.FillRoot(key, node.NewEmpty())
	// No load was ever marked pending, so this is a stale/duplicate
	// completion and must be dropped without effect.
	ok := c.CompleteLoad(key, octree.Null, 0, chunk.NewAmbient())
	if ok {
		t.Fatalf("expected stale completion to be rejected")
	}
}

func TestCompleteLoadAppliesPendingRootLoad(t *testing.T) {
	c := New(testConfig())
	key := octree.NodeKey{Level: 0, Coords: geom.IVec3{0, 0, 0}}
	p := c.Tree.FillRoot(key, node.NewEmpty())
	n := c.nodePayload(p)
	n.State.SetLoadPending()

	ok := c.CompleteLoad(key, octree.Null, 0, chunk.NewAmbient())
	if !ok {
		t.Fatalf("expected pending completion to apply")
	}
	if n.State.SlotState() != node.Decompressed {
		t.Fatalf("slot state = %v, want Decompressed", n.State.SlotState())
	}
}

func TestEarliestIntersectionFindsSingleChunk(t *testing.T) {
	c := New(Config{Detail: 6.0, ClipSphereRadius: 64, TreeHeight: 1})
	key := octree.NodeKey{Level: 0, Coords: geom.IVec3{1, 1, 1}}
	p := c.Tree.FillRoot(key, node.NewDecompressed(chunk.NewAmbient()))
	_ = p

	// ChunkExtent puts this chunk at min (1,1,1) with edge 16: [1,17] on each axis.
	ray := geom.NewRay(geom.Vec3{X: 0, Y: 0, Z: 0}, geom.Vec3{X: 1, Y: 1, Z: 1})
	hit, ok := c.EarliestIntersection(ray, 0)
	if !ok {
		t.Fatalf("expected a ray hit")
	}
	if hit.Key != key {
		t.Fatalf("hit key = %+v, want %+v", hit.Key, key)
	}
	if hit.TimeWindow[0] != 1 || hit.TimeWindow[1] != 17 {
		t.Fatalf("time window = %v, want [1, 17]", hit.TimeWindow)
	}
}
