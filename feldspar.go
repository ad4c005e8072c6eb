// Package feldspar ties the streaming clipmap, the LZ4+bbolt map database,
// and the buffered change encoder into the single control surface a host
// application drives: open a map, tick it against an observer position
// each frame, commit edits into new versions, and branch to any earlier
// version.
package feldspar

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/feldspar/feldspar/changeenc"
	"github.com/feldspar/feldspar/chunk"
	"github.com/feldspar/feldspar/clipmap"
	"github.com/feldspar/feldspar/db"
	"github.com/feldspar/feldspar/geom"
	"github.com/feldspar/feldspar/internal/tick"
	"github.com/feldspar/feldspar/mapdb"
	"github.com/feldspar/feldspar/octree"
	"github.com/feldspar/feldspar/versiongraph"
)

// Config bundles the clipmap streaming parameters with host-facing knobs
// that have no per-tick equivalent in the clipmap package itself.
type Config struct {
	Clip clipmap.Config
	// LoadBudget caps how many near-phase slots a single Tick may pick, at
	// any level; each render-candidate slot among them becomes one load.
	LoadBudget int
	// LoadConcurrency caps how many of those loads run as concurrent
	// storage reads; a value of 0 lets errgroup run them unbounded.
	LoadConcurrency int
}

// DefaultConfig matches clipmap.DefaultConfig with a modest load budget.
func DefaultConfig() Config {
	return Config{
		Clip:            clipmap.DefaultConfig(),
		LoadBudget:      64,
		LoadConcurrency: 8,
	}
}

// Map is the host-facing handle to one persistent voxel map: the in-memory
// streaming octree, the on-disk versioned chunk store, and the encoder
// buffering edits between commits.
type Map struct {
	Config  Config
	Clip    *clipmap.ClipMap
	Db      *mapdb.MapDb
	Changes *changeenc.Encoder
}

// Open opens (or creates) a map database at path and builds a fresh
// in-memory clipmap over it.
func Open(path string, cfg Config) (*Map, error) {
	d, err := mapdb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Map{
		Config:  cfg,
		Clip:    clipmap.New(cfg.Clip),
		Db:      d,
		Changes: changeenc.NewEncoder(),
	}, nil
}

func (m *Map) Close() error { return m.Db.Close() }

// Tick runs one streaming step: broad-phase finds newly entering root
// chunks, near-phase picks which unresolved nodes to load within the load
// budget, every pick is read from storage concurrently through an errgroup
// worker pool, and the render search turns the resulting occupancy into
// the LOD transitions a renderer should apply. A render-candidate slot is
// read from storage regardless of its level — a node far enough from the
// observer to clear Config.Detail is loaded directly at its own (coarser)
// level rather than recursing down to level 0. Downsample-ready interior
// nodes (occupied, no I/O needed) are skipped here: CompleteLoad already
// downsamples a parent in place as soon as its last child finishes loading.
func (m *Map) Tick(ctx context.Context, observer geom.Vec3) ([]clipmap.LodChange, error) {
	newRoots := m.Clip.BroadPhase(observer)
	// BroadPhase reports only the roots that just entered the clip sphere;
	// the near phase is also seeded with every root already in the tree.
	seeds := append([]octree.NodeKey(nil), newRoots...)
	seen := make(map[octree.NodeKey]bool, len(newRoots))
	for _, key := range newRoots {
		seen[key] = true
	}
	m.Clip.Tree.IterRoots(func(key octree.NodeKey, _ octree.Ptr) {
		if !seen[key] {
			seeds = append(seeds, key)
		}
	})
	slots := m.Clip.NearPhase(observer, seeds, m.Config.LoadBudget)

	g, ctx := errgroup.WithContext(ctx)
	if m.Config.LoadConcurrency > 0 {
		g.SetLimit(m.Config.LoadConcurrency)
	}

	for _, slot := range slots {
		slot := slot
		if !slot.IsRenderCandidate {
			continue
		}
		handle := m.Clip.PrepareLoad(slot)
		g.Go(func() error {
			return m.loadChunk(ctx, handle)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return m.Clip.RenderSearch(observer), nil
}

func (m *Map) loadChunk(ctx context.Context, handle clipmap.LoadHandle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := tick.Phase("feldspar.loadChunk", 1)
	defer done()

	key := db.ChunkDbKey{Level: handle.Key.Level, Coords: handle.Key.Coords}
	raw, ok, err := m.Db.Get(key)
	if err != nil {
		return err
	}

	var c *chunk.Chunk
	if !ok {
		c = chunk.NewAmbient()
	} else {
		c, err = chunk.Decompress(chunk.CompressedChunk{Bytes: raw})
		if err != nil {
			return err
		}
	}

	m.Clip.CompleteLoad(handle.Key, handle.Parent, handle.Octant, c)
	return nil
}

// Edit buffers an edit to a single chunk (last-write-wins against any
// other edit to the same key since the last Commit) and immediately
// reflects it in the working table so subsequent ReadChunk calls this tick
// see it.
func (m *Map) Edit(level uint8, coords geom.IVec3, c *chunk.Chunk) error {
	key := db.ChunkDbKey{Level: level, Coords: coords}
	cc, err := chunk.Compress(c)
	if err != nil {
		return err
	}
	m.Changes.Add(key, changeenc.Change{Op: changeenc.Insert, Value: cc})
	return m.Db.Write([]changeenc.EncodedChange{{Key: key, Change: changeenc.Change{Op: changeenc.Insert, Value: cc}}})
}

// RemoveEdit buffers the removal of a chunk (it reverts to homogeneous
// ambient) the same way Edit buffers an insert.
func (m *Map) RemoveEdit(level uint8, coords geom.IVec3) error {
	key := db.ChunkDbKey{Level: level, Coords: coords}
	m.Changes.Add(key, changeenc.Change{Op: changeenc.Remove})
	return m.Db.Write([]changeenc.EncodedChange{{Key: key, Change: changeenc.Change{Op: changeenc.Remove}}})
}

// Commit archives every edit buffered since the last Commit into a new
// version.
func (m *Map) Commit() (versiongraph.Version, error) {
	return m.Db.Commit(m.Changes.Encode())
}

// BranchFrom switches the map's working state to target, undoing and
// reapplying versions along the shortest path in the version graph.
func (m *Map) BranchFrom(target versiongraph.Version) error {
	return m.Db.BranchFrom(target)
}

// ReadChunk returns the chunk currently stored at key from the working
// table (which reflects every edit applied so far, committed or not), or
// the ambient chunk if the key has never been touched.
func (m *Map) ReadChunk(level uint8, coords geom.IVec3) (*chunk.Chunk, error) {
	key := db.ChunkDbKey{Level: level, Coords: coords}
	raw, ok, err := m.Db.Get(key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return chunk.NewAmbient(), nil
	}
	return chunk.Decompress(chunk.CompressedChunk{Bytes: raw})
}

// Raycast finds the leaf chunk the ray crosses first (see
// clipmap.EarliestIntersection; that leaf's occupancy is not checked) and
// reports its per-voxel hits via visit, the same contract as
// clipmap.RayIntersections.
func (m *Map) Raycast(ray geom.Ray, minLevel uint8, visit func(key octree.NodeKey, hit chunk.VoxelHit) (stop bool)) {
	m.Clip.RayIntersections(ray, minLevel, visit)
}
