// Package versiongraph stores the parent-pointer DAG of map versions and
// finds the path between any two versions for branch switching. The graph
// itself is held as a gonum directed graph (edges point from a version to
// its parent) so traversal reuses gonum's node/edge iterators instead of a
// hand-rolled adjacency list; the nearest-common-ancestor search on top is
// specific to this module's branch/commit semantics and isn't something
// gonum's path algorithms solve directly (they assume a single shortest
// path across a weighted graph, not "splice two ancestor chains").
package versiongraph

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"

	"golang.org/x/xerrors"
)

// Version identifies one committed snapshot of the map.
type Version uint64

// ErrNoPathExistsToRoot is returned when walking a version's ancestor chain
// runs off the graph before reaching a node with no parent recorded.
var ErrNoPathExistsToRoot = xerrors.New("versiongraph: no path exists to a root version")

// ErrNoPathExists is returned when two versions share no common ancestor.
var ErrNoPathExists = xerrors.New("versiongraph: no path exists between versions")

// Graph is the DAG of all versions ever committed.
type Graph struct {
	g       *simple.DirectedGraph
	parents map[Version]Version
	roots   map[Version]bool
}

func New() *Graph {
	return &Graph{
		g:       simple.NewDirectedGraph(),
		parents: make(map[Version]Version),
		roots:   make(map[Version]bool),
	}
}

// AddRoot records v as a version with no parent (the start of a version
// history, e.g. the very first commit of a map).
func (gr *Graph) AddRoot(v Version) {
	gr.g.AddNode(simple.Node(v))
	gr.roots[v] = true
}

// AddChild records v as a new version whose parent is parent. parent must
// already exist in the graph.
func (gr *Graph) AddChild(v, parent Version) {
	gr.g.AddNode(simple.Node(v))
	gr.g.SetEdge(gr.g.NewEdge(simple.Node(v), simple.Node(parent)))
	gr.parents[v] = parent
}

// Parent returns v's parent, if it has one.
func (gr *Graph) Parent(v Version) (Version, bool) {
	p, ok := gr.parents[v]
	return p, ok
}

// Has reports whether v is present in the graph.
func (gr *Graph) Has(v Version) bool {
	return gr.g.Node(int64(v)) != nil
}

// ancestorChain returns v and every ancestor of v, nearest first, by
// following parent edges via the gonum graph's own edge iterator (rather
// than the parents map directly) so the traversal is grounded in the graph
// structure itself.
func (gr *Graph) ancestorChain(v Version) ([]Version, error) {
	chain := []Version{v}
	cur := v
	for {
		if gr.roots[cur] {
			return chain, nil
		}
		n := gr.g.Node(int64(cur))
		if n == nil {
			return nil, ErrNoPathExistsToRoot
		}
		it := gr.g.From(int64(cur))
		if !it.Next() {
			return nil, ErrNoPathExistsToRoot
		}
		next := Version(it.Node().ID())
		chain = append(chain, next)
		cur = next
	}
}

// Path is the sequence of versions to traverse from `from` to `to`: first
// upward from `from` to their nearest common ancestor, then downward to
// `to`. Ups is in child-to-ancestor order; Downs is in ancestor-to-child
// order.
type Path struct {
	Ups, Downs []Version
	Ancestor   Version
}

// ShortestPath finds the nearest common ancestor of from and to by walking
// both ancestor chains to their respective roots and splicing at the
// deepest shared version, mirroring the original branch-switch algorithm
// (sled has no built-in graph traversal, so the original walks parent
// pointers by hand; here the walk is grounded on the graph's own edges via
// ancestorChain, just expressed with gonum's node/edge types instead of raw
// pointers).
func (gr *Graph) ShortestPath(from, to Version) (Path, error) {
	if from == to {
		return Path{Ancestor: from}, nil
	}
	fromChain, err := gr.ancestorChain(from)
	if err != nil {
		return Path{}, err
	}
	toChain, err := gr.ancestorChain(to)
	if err != nil {
		return Path{}, err
	}

	toIndex := make(map[Version]int, len(toChain))
	for i, v := range toChain {
		toIndex[v] = i
	}

	for i, v := range fromChain {
		if j, ok := toIndex[v]; ok {
			ups := fromChain[:i+1]
			downs := make([]Version, j+1)
			for k := 0; k <= j; k++ {
				downs[k] = toChain[j-k]
			}
			return Path{Ups: ups, Downs: downs, Ancestor: v}, nil
		}
	}
	return Path{}, ErrNoPathExists
}

var _ graph.Directed = (*simple.DirectedGraph)(nil)
