// Package mapdb composes the five on-disk tables and the in-memory version
// graph into the map database's external operations: writing edits to the
// working table, committing the working table into a new version, and
// switching branches by replaying the shortest path between two versions.
package mapdb

import (
	"sync"

	"github.com/feldspar/feldspar/changeenc"
	"github.com/feldspar/feldspar/db"
	"github.com/feldspar/feldspar/internal/tick"
	"github.com/feldspar/feldspar/versiongraph"
)

// MapDb is the owning-thread handle to a map database: the on-disk tables,
// the in-memory version graph mirroring the version-graph bucket, and a
// cache of every key currently present in the backup table (rebuilt once at
// Open, maintained incrementally afterward) so Write can tell in O(1)
// whether a key has already been stashed for the current generation, and
// Commit knows it has nothing to archive without a linear bucket scan.
type MapDb struct {
	mu             sync.Mutex
	db             *db.DB
	graph          *versiongraph.Graph
	backupKeyCache map[db.ChunkDbKey]bool
}

// Open opens the database at path and rebuilds the in-memory graph and
// backup key cache from its on-disk state.
func Open(path string) (*MapDb, error) {
	d, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	m := &MapDb{
		db:             d,
		graph:          versiongraph.New(),
		backupKeyCache: make(map[db.ChunkDbKey]bool),
	}
	err = d.View(func(tx *db.Tx) error {
		if err := tx.ForEachVersionParent(func(v, parent uint64, hasParent bool) {
			if hasParent {
				m.graph.AddChild(versiongraph.Version(v), versiongraph.Version(parent))
			} else {
				m.graph.AddRoot(versiongraph.Version(v))
			}
		}); err != nil {
			return err
		}
		return tx.ForEachBackupKey(func(k db.ChunkDbKey) {
			m.backupKeyCache[k] = true
		})
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	return m, nil
}

func (m *MapDb) Close() error { return m.db.Close() }

// Metadata returns the current working/parent/grandparent version record.
func (m *MapDb) Metadata() (db.Metadata, error) {
	return m.db.GetMetadata()
}

// VersionEdges visits every (version, parent) edge in the version graph,
// for host inspection/debugging; hasParent is false for a root version.
func (m *MapDb) VersionEdges(visit func(v, parent uint64, hasParent bool)) error {
	return m.db.View(func(tx *db.Tx) error {
		return tx.ForEachVersionParent(visit)
	})
}

// Get returns the compressed bytes currently stored for key from the
// working table (the authoritative, persistent current-state table for
// every key ever touched), or ok == false if it has never been touched (an
// unoccupied/homogeneous chunk).
func (m *MapDb) Get(key db.ChunkDbKey) (raw []byte, ok bool, err error) {
	err = m.db.View(func(tx *db.Tx) error {
		if w := tx.GetWorking(key); w != nil {
			raw, ok = w, true
		}
		return nil
	})
	return raw, ok, err
}

// Write applies a batch of edits directly to the working table, and for
// every key not already touched since the last commit, stashes its
// pre-edit value (or a Remove sentinel, if it had none) into the backup
// table before overwriting it. backup is the current generation's undo
// baseline: applying it onto working at any quiescent moment reconstructs
// the parent version's state.
func (m *MapDb) Write(changes []changeenc.EncodedChange) error {
	defer tick.Transaction("mapdb.Write")()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Update(func(tx *db.Tx) error {
		for _, c := range changes {
			prevWorking := tx.GetWorking(c.Key)

			switch c.Change.Op {
			case changeenc.Insert:
				if err := tx.PutWorking(c.Key, c.Change.Value.Bytes); err != nil {
					return err
				}
			case changeenc.Remove:
				if err := tx.DeleteWorking(c.Key); err != nil {
					return err
				}
			}

			if m.backupKeyCache[c.Key] {
				continue
			}
			if prevWorking == nil {
				if err := tx.DeleteBackup(c.Key); err != nil {
					return err
				}
			} else if err := tx.PutBackup(c.Key, prevWorking); err != nil {
				return err
			}
			m.backupKeyCache[c.Key] = true
		}
		return nil
	})
}

// Commit archives every key touched since the last commit into a new
// version: for each one it records the change needed to reach the new
// (working) state and the change needed to undo it back to the backup
// value captured by Write, drains the backup table (the new generation
// starts with a clean undo baseline), links the new version into the graph
// as a child of the current parent, and advances the metadata triple
// (grandparent, parent, working) forward by one, with a freshly minted
// working id. A no-op, returning the current parent, if nothing was written
// since the last commit. The archived record is built from the backup and
// working tables; the changes argument is not read.
func (m *MapDb) Commit(changes []changeenc.EncodedChange) (versiongraph.Version, error) {
	defer tick.Transaction("mapdb.Commit")()
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.backupKeyCache) == 0 {
		meta, err := m.db.GetMetadata()
		if err != nil {
			return 0, err
		}
		return versiongraph.Version(meta.Parent), nil
	}

	var newVersion versiongraph.Version
	err := m.db.Update(func(tx *db.Tx) error {
		meta, err := tx.Metadata()
		if err != nil {
			return err
		}

		v, err := tx.NextVersion()
		if err != nil {
			return db.IoError("mapdb: allocate version: %w", err)
		}
		newVersion = versiongraph.Version(v)
		w, err := tx.NextVersion()
		if err != nil {
			return db.IoError("mapdb: allocate version: %w", err)
		}

		forward := make([]changeenc.EncodedChange, 0, len(m.backupKeyCache))
		inverse := make([]changeenc.EncodedChange, 0, len(m.backupKeyCache))
		for k := range m.backupKeyCache {
			forward = append(forward, invert(k, tx.GetWorking(k)))
			inverse = append(inverse, invert(k, tx.GetBackup(k)))
			if err := tx.DeleteBackup(k); err != nil {
				return err
			}
			delete(m.backupKeyCache, k)
		}

		record := versionRecord{forward: forward, inverse: inverse}
		if err := tx.PutVersionChanges(v, encodeVersionRecord(record)); err != nil {
			return err
		}
		if err := tx.PutVersionParent(v, meta.Parent, meta.HasParent); err != nil {
			return err
		}

		newMeta := db.Metadata{
			Working:        w,
			Parent:         v,
			Grandparent:    meta.Parent,
			HasParent:      true,
			HasGrandparent: meta.HasParent,
		}
		return tx.PutMetadata(newMeta)
	})
	if err != nil {
		return 0, err
	}

	if parent, hasParent, _ := m.lookupParent(newVersion); hasParent {
		m.graph.AddChild(newVersion, parent)
	} else {
		m.graph.AddRoot(newVersion)
	}
	return newVersion, nil
}

func (m *MapDb) lookupParent(v versiongraph.Version) (versiongraph.Version, bool, error) {
	var parent uint64
	var hasParent bool
	err := m.db.View(func(tx *db.Tx) error {
		p, has, err := tx.GetVersionParent(uint64(v))
		parent, hasParent = p, has
		return err
	})
	return versiongraph.Version(parent), hasParent, err
}

// BranchFrom switches the database's working state to target: it walks the
// shortest path in the version graph from the current parent version to
// target, undoing every version on the way up to their common ancestor and
// reapplying every version on the way down to target directly against the
// working table, then mints a fresh working version and updates the
// metadata triple to target's own ancestry.
func (m *MapDb) BranchFrom(target versiongraph.Version) error {
	defer tick.Transaction("mapdb.BranchFrom")()
	m.mu.Lock()
	defer m.mu.Unlock()

	meta, err := m.db.GetMetadata()
	if err != nil {
		return err
	}
	if !meta.HasParent {
		return db.NoPathExists("mapdb: database has no committed version to branch from")
	}

	path, err := m.graph.ShortestPath(versiongraph.Version(meta.Parent), target)
	if err != nil {
		return wrapGraphError(err)
	}

	return m.db.Update(func(tx *db.Tx) error {
		// Undo every version from the current parent up to (but not
		// including) the common ancestor, in child-to-parent order.
		for i := 0; i < len(path.Ups)-1; i++ {
			v := path.Ups[i]
			raw, err := tx.GetVersionChanges(uint64(v))
			if err != nil {
				return err
			}
			record, err := decodeVersionRecord(raw)
			if err != nil {
				return err
			}
			if err := applyToWorking(tx, record.inverse); err != nil {
				return err
			}
		}
		// Reapply every version from the common ancestor down to target,
		// in parent-to-child order.
		for i := 1; i < len(path.Downs); i++ {
			v := path.Downs[i]
			raw, err := tx.GetVersionChanges(uint64(v))
			if err != nil {
				return err
			}
			record, err := decodeVersionRecord(raw)
			if err != nil {
				return err
			}
			if err := applyToWorking(tx, record.forward); err != nil {
				return err
			}
		}

		grandparent, hasGrandparent, err := tx.GetVersionParent(uint64(target))
		if err != nil {
			return err
		}
		newWorking, err := tx.NextVersion()
		if err != nil {
			return db.IoError("mapdb: allocate version: %w", err)
		}

		newMeta := db.Metadata{
			Working:        newWorking,
			Parent:         uint64(target),
			Grandparent:    grandparent,
			HasParent:      true,
			HasGrandparent: hasGrandparent,
		}
		return tx.PutMetadata(newMeta)
	})
}

// wrapGraphError maps the version graph's own sentinel errors onto the
// database-boundary error kinds, so a caller doing errors.As(..., *db.Error)
// sees NoPathExists/NoPathExistsToRoot regardless of which layer detected it.
func wrapGraphError(err error) error {
	switch err {
	case versiongraph.ErrNoPathExists:
		return db.NoPathExists("mapdb: %w", err)
	case versiongraph.ErrNoPathExistsToRoot:
		return db.NoPathExistsToRoot("mapdb: %w", err)
	default:
		return err
	}
}

// applyToWorking replays changes directly against the working table: a
// branch switch's Ups/Downs replay operates on the authoritative
// current-state table, never on the per-generation backup buffer.
func applyToWorking(tx *db.Tx, changes []changeenc.EncodedChange) error {
	for _, c := range changes {
		switch c.Change.Op {
		case changeenc.Insert:
			if err := tx.PutWorking(c.Key, c.Change.Value.Bytes); err != nil {
				return err
			}
		case changeenc.Remove:
			if err := tx.DeleteWorking(c.Key); err != nil {
				return err
			}
		}
	}
	return nil
}
