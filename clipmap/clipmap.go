// Package clipmap implements the streaming octree of chunk nodes: spatial
// predicates over chunk extents, the broad- and near-phase load searches
// that decide what to stream in around an observer, load completion, the
// render LOD search that turns occupancy into spawn/split/merge events, and
// ray casting against the sparse tree.
package clipmap

import (
	"github.com/feldspar/feldspar/chunk"
	"github.com/feldspar/feldspar/geom"
	"github.com/feldspar/feldspar/node"
	"github.com/feldspar/feldspar/octree"
)

// Config holds the streaming parameters that control how aggressively the
// clipmap subdivides around an observer.
type Config struct {
	// Detail is the target "chunks per unit of apparent size": a chunk
	// is considered high enough resolution once its distance to the
	// observer, divided by its bounding radius, exceeds Detail.
	Detail float32
	// ClipSphereRadius is the radius (in level-0 voxel units) of the
	// sphere around the observer within which chunks are loaded.
	ClipSphereRadius float32
	// TreeHeight is the number of levels in the octree, i.e. roots live
	// at level TreeHeight-1 and chunks at level 0.
	TreeHeight uint8
}

// DefaultConfig matches the external interface defaults.
func DefaultConfig() Config {
	return Config{
		Detail:           6.0,
		ClipSphereRadius: 1000.0,
		TreeHeight:       8,
	}
}

// ClipMap is the octree of chunk nodes plus the clip sphere bookkeeping
// needed to decide what to stream.
type ClipMap struct {
	Config Config
	Tree   *octree.Tree

	oldClipSphere geom.Sphere
	haveOld       bool
}

func New(cfg Config) *ClipMap {
	return &ClipMap{Config: cfg, Tree: octree.NewTree()}
}

// ChunkExtent returns the voxel-space extent covered by a node at level,
// coords (coords are in that level's chunk grid), grounded on
// chunk_extent_ivec3 in the original source.
func ChunkExtent(level uint8, coords geom.IVec3) geom.Extent {
	return geom.Extent{
		Min:   coords.Shl(level),
		Shape: geom.IVec3{X: chunk.Edge, Y: chunk.Edge, Z: chunk.Edge}.Shl(level),
	}
}

// BoundingSphere returns the bounding sphere of a node's chunk extent: its
// radius is half the extent's edge length times sqrt(3), the diagonal
// half-length of the enclosing cube.
func BoundingSphere(level uint8, coords geom.IVec3) geom.Sphere {
	extent := ChunkExtent(level, coords)
	const sqrt3 = 1.7320508
	return geom.Sphere{
		Center: extent.Center(),
		Radius: float32(extent.Shape.MaxElement()>>1) * sqrt3,
	}
}

// ClipSphere returns the sphere of interest around an observer position.
func (c *ClipMap) ClipSphere(observer geom.Vec3) geom.Sphere {
	return geom.Sphere{Center: observer, Radius: c.Config.ClipSphereRadius}
}

// nodePayload fetches the *node.Node stored at p, or nil if p is null.
func (c *ClipMap) nodePayload(p octree.Ptr) *node.Node {
	if p == octree.Null {
		return nil
	}
	v := c.Tree.Arena.Payload(p)
	if v == nil {
		return nil
	}
	return v.(*node.Node)
}
