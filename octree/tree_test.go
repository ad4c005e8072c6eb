package octree

import (
	"testing"

	"github.com/feldspar/feldspar/geom"
)

func TestFillRootIsIdempotent(t *testing.T) {
	tr := NewTree()
	key := NodeKey{Level: 4, Coords: geom.IVec3{0, 0, 0}}
	p1 := tr.FillRoot(key, "a")
	p2 := tr.FillRoot(key, "b")
	if p1 != p2 {
		t.Fatalf("FillRoot should return the existing entry, got distinct pointers")
	}
	if tr.Arena.Payload(p1) != "a" {
		t.Fatalf("second FillRoot should not overwrite payload")
	}
}

func TestChildCoordsRoundTrip(t *testing.T) {
	parent := geom.IVec3{X: 3, Y: -2, Z: 5}
	for octant := 0; octant < 8; octant++ {
		c := ChildCoords(parent, octant)
		if got := Octant(c); got != octant {
			t.Errorf("octant %d: Octant(ChildCoords(...)) = %d", octant, got)
		}
		if got := ParentCoords(c); got != parent {
			t.Errorf("octant %d: ParentCoords(ChildCoords(...)) = %+v, want %+v", octant, got, parent)
		}
	}
}

func TestFillPathToNodeCachesLeafForInPlaceWrites(t *testing.T) {
	tr := NewTree()
	rootKey := NodeKey{Level: 4, Coords: geom.IVec3{0, 0, 0}}
	target := NodeKey{Level: 0, Coords: geom.IVec3{1, 1, 1}}

	path := tr.FillPathToNode(rootKey, target, func() interface{} { return 0 })
	if len(path) != 5 {
		t.Fatalf("path length = %d, want 5 (levels 4..0)", len(path))
	}
	leaf := path[len(path)-1]
	if got := tr.Arena.Coords(leaf); got != target.Coords {
		t.Fatalf("leaf coords = %+v, want %+v", got, target.Coords)
	}
	if got := tr.Arena.Level(leaf); got != target.Level {
		t.Fatalf("leaf level = %d, want %d", got, target.Level)
	}

	// Filling the same path again must return the exact same pointers,
	// letting a caller cache them and write in place without retraversal.
	path2 := tr.FillPathToNode(rootKey, target, func() interface{} { return 99 })
	for i := range path {
		if path[i] != path2[i] {
			t.Fatalf("path entry %d changed on refill", i)
		}
	}
}

func TestRemoveSubtreeClearsParentLink(t *testing.T) {
	tr := NewTree()
	rootKey := NodeKey{Level: 1, Coords: geom.IVec3{0, 0, 0}}
	root := tr.FillRoot(rootKey, nil)
	child := tr.FillChild(root, 3, nil)
	tr.RemoveSubtree(child)
	if tr.Arena.Child(root, 3) != Null {
		t.Fatalf("expected child slot to be cleared after RemoveSubtree")
	}
}

func TestVisitDepthFirstVisitsAllDescendants(t *testing.T) {
	tr := NewTree()
	rootKey := NodeKey{Level: 2, Coords: geom.IVec3{0, 0, 0}}
	root := tr.FillRoot(rootKey, nil)
	tr.FillChild(root, 0, nil)
	tr.FillChild(root, 7, nil)
	count := 0
	tr.VisitDepthFirst(root, func(Ptr) { count++ })
	if count != 3 {
		t.Fatalf("visited %d nodes, want 3", count)
	}
}
