package octree

import "github.com/feldspar/feldspar/geom"

// Tree is a sparse octree: a set of root entries, each keyed by (level,
// coordinates), whose descendants are addressed purely through arena
// pointers. Levels increase from the chunks (level 0) upward; octant 0-7 of
// a node at level L+1 spans the 8 level-L children at 2*coords + offset,
// offset's bits selecting +X/+Y/+Z respectively (the canonical Morton child
// order).
type Tree struct {
	Arena *Arena
	roots map[NodeKey]Ptr
}

func NewTree() *Tree {
	return &Tree{Arena: NewArena(), roots: make(map[NodeKey]Ptr)}
}

// ChildOffset returns the coordinate offset of child octant index (0-7)
// relative to its parent's coordinates doubled.
func ChildOffset(octant int) geom.IVec3 {
	return geom.IVec3{
		X: int32(octant & 1),
		Y: int32(octant >> 1 & 1),
		Z: int32(octant >> 2 & 1),
	}
}

// ChildCoords returns the coordinates of the child at octant beneath a
// parent at parentCoords.
func ChildCoords(parentCoords geom.IVec3, octant int) geom.IVec3 {
	o := ChildOffset(octant)
	return geom.IVec3{X: parentCoords.X*2 + o.X, Y: parentCoords.Y*2 + o.Y, Z: parentCoords.Z*2 + o.Z}
}

// ParentCoords returns the coordinates of the parent of a node at coords,
// i.e. the inverse of ChildCoords.
func ParentCoords(coords geom.IVec3) geom.IVec3 {
	return geom.IVec3{X: floorDiv2(coords.X), Y: floorDiv2(coords.Y), Z: floorDiv2(coords.Z)}
}

func floorDiv2(v int32) int32 {
	if v >= 0 {
		return v / 2
	}
	return -((-v + 1) / 2)
}

// Octant returns the child index of coords relative to its parent.
func Octant(coords geom.IVec3) int {
	x := coords.X & 1
	y := coords.Y & 1
	z := coords.Z & 1
	return int(x) | int(y)<<1 | int(z)<<2
}

// FindRoot returns the root pointer for key, if any.
func (t *Tree) FindRoot(key NodeKey) (Ptr, bool) {
	p, ok := t.roots[key]
	return p, ok
}

// FillRoot ensures a root entry exists at key, creating it with payload if
// absent, and returns its pointer.
func (t *Tree) FillRoot(key NodeKey, payload interface{}) Ptr {
	if p, ok := t.roots[key]; ok {
		return p
	}
	p := t.Arena.alloc(key.Level, key.Coords, Null, payload)
	t.roots[key] = p
	return p
}

// FillChild ensures the child at octant beneath parent exists, creating it
// with payload if absent, and returns its pointer.
func (t *Tree) FillChild(parent Ptr, octant int, payload interface{}) Ptr {
	e := t.Arena.get(parent)
	if c := e.children[octant]; c != Null {
		return c
	}
	childCoords := ChildCoords(e.coords, octant)
	c := t.Arena.alloc(e.level-1, childCoords, parent, payload)
	// alloc may grow the entries slice, so e can no longer be written to.
	t.Arena.get(parent).children[octant] = c
	return c
}

// FillPathToNode walks from the root containing key down to key itself,
// creating any missing intermediate nodes along the way with emptyPayload,
// and returns the full path from root to key inclusive.
func (t *Tree) FillPathToNode(rootKey NodeKey, target NodeKey, emptyPayload func() interface{}) []Ptr {
	root := t.FillRoot(rootKey, emptyPayload())
	path := []Ptr{root}
	cur := root
	for t.Arena.Level(cur) > target.Level {
		coords := t.Arena.Coords(cur)
		wantLevel := t.Arena.Level(cur) - 1
		shift := wantLevel - target.Level
		wantCoords := geom.IVec3{
			X: target.Coords.X >> shift,
			Y: target.Coords.Y >> shift,
			Z: target.Coords.Z >> shift,
		}
		octant := int(wantCoords.X-coords.X*2) | int(wantCoords.Y-coords.Y*2)<<1 | int(wantCoords.Z-coords.Z*2)<<2
		cur = t.FillChild(cur, octant, emptyPayload())
		path = append(path, cur)
	}
	return path
}

// RemoveSubtree detaches and frees p and everything beneath it. If p is a
// root, its root-map entry is removed too.
func (t *Tree) RemoveSubtree(p Ptr) {
	e := t.Arena.get(p)
	for _, c := range e.children {
		if c != Null {
			t.RemoveSubtree(c)
		}
	}
	if e.parent != Null {
		parentEntry := t.Arena.get(e.parent)
		for i, c := range parentEntry.children {
			if c == p {
				parentEntry.children[i] = Null
			}
		}
	} else {
		for k, rp := range t.roots {
			if rp == p {
				delete(t.roots, k)
				break
			}
		}
	}
	t.Arena.free_(p)
}

// VisitDepthFirst calls visit for p and then recursively for each non-null
// child, pre-order.
func (t *Tree) VisitDepthFirst(p Ptr, visit func(Ptr)) {
	visit(p)
	for _, c := range t.Arena.get(p).children {
		if c != Null {
			t.VisitDepthFirst(c, visit)
		}
	}
}

// VisitBreadthFirst calls visit for p and then each descendant, level by
// level.
func (t *Tree) VisitBreadthFirst(p Ptr, visit func(Ptr)) {
	queue := []Ptr{p}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visit(cur)
		for _, c := range t.Arena.get(cur).children {
			if c != Null {
				queue = append(queue, c)
			}
		}
	}
}

// VisitChildren calls visit for each non-null child of p along with its
// coordinates.
func (t *Tree) VisitChildren(p Ptr, visit func(childPtr Ptr, childCoords geom.IVec3)) {
	e := t.Arena.get(p)
	for octant, c := range e.children {
		if c != Null {
			visit(c, ChildCoords(e.coords, octant))
		}
		_ = octant
	}
}

// IterRoots calls visit for every root entry.
func (t *Tree) IterRoots(visit func(key NodeKey, p Ptr)) {
	for k, p := range t.roots {
		visit(k, p)
	}
}

// NumRoots reports how many root entries currently exist.
func (t *Tree) NumRoots() int { return len(t.roots) }
