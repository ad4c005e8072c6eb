package db

import (
	"encoding/binary"

	"go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

// The five bucket names, grounded on Erigon's kv table-naming convention
// (plain, upper-snake-ish constant names documenting their key/value
// shape) and mapped onto bbolt's nested-bucket model as the Go analogue of
// sled's named Trees.
var (
	BucketMeta            = []byte("meta")
	BucketWorking          = []byte("working")
	BucketBackup           = []byte("backup")
	BucketVersionChanges    = []byte("version-changes")
	BucketVersionGraph      = []byte("version-graph")
)

var allBuckets = [][]byte{BucketMeta, BucketWorking, BucketBackup, BucketVersionChanges, BucketVersionGraph}

// Metadata tracks which three versions the database cares about: the
// working version currently being edited, its parent (the last committed
// version it's based on), and that parent's parent. The grandparent is kept
// up to date by commits and branch switches and reported by feldsparctl
// inspect; no commit or branch logic reads it back.
type Metadata struct {
	Working     uint64
	Parent      uint64
	Grandparent uint64
	HasParent   bool
	HasGrandparent bool
}

var metaKey = []byte("metadata")

func encodeMetadata(m Metadata) []byte {
	buf := make([]byte, 8*3+2)
	binary.BigEndian.PutUint64(buf[0:8], m.Working)
	binary.BigEndian.PutUint64(buf[8:16], m.Parent)
	binary.BigEndian.PutUint64(buf[16:24], m.Grandparent)
	if m.HasParent {
		buf[24] = 1
	}
	if m.HasGrandparent {
		buf[25] = 1
	}
	return buf
}

func decodeMetadata(buf []byte) (Metadata, error) {
	if len(buf) != 8*3+2 {
		return Metadata{}, xerrors.Errorf("db: metadata record has wrong size %d", len(buf))
	}
	return Metadata{
		Working:        binary.BigEndian.Uint64(buf[0:8]),
		Parent:         binary.BigEndian.Uint64(buf[8:16]),
		Grandparent:    binary.BigEndian.Uint64(buf[16:24]),
		HasParent:      buf[24] == 1,
		HasGrandparent: buf[25] == 1,
	}, nil
}

// DB wraps a bbolt file holding the five map-database buckets.
type DB struct {
	bolt *bbolt.DB
}

// Open opens (creating if necessary) a map database at path, ensuring all
// five buckets exist.
func Open(path string) (*DB, error) {
	bdb, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, IoError("db: open %s: %w", path, err)
	}
	err = bdb.Update(func(tx *bbolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return nil, IoError("db: init buckets: %w", err)
	}
	return &DB{bolt: bdb}, nil
}

func (d *DB) Close() error { return d.bolt.Close() }

// GetMetadata reads the current metadata record, or the zero value if none
// has been written yet (a freshly created database).
func (d *DB) GetMetadata() (Metadata, error) {
	var m Metadata
	err := d.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(BucketMeta).Get(metaKey)
		if b == nil {
			return nil
		}
		decoded, err := decodeMetadata(b)
		if err != nil {
			return err
		}
		m = decoded
		return nil
	})
	if err != nil {
		return Metadata{}, IoError("db: get metadata: %w", err)
	}
	return m, nil
}

func putMetadata(tx *bbolt.Tx, m Metadata) error {
	return tx.Bucket(BucketMeta).Put(metaKey, encodeMetadata(m))
}

// Update runs fn inside a single read-write bbolt transaction spanning all
// five buckets, the direct analogue of sled's multi-tree transaction: if fn
// returns an error, every write it made is rolled back.
func (d *DB) Update(fn func(tx *Tx) error) error {
	err := d.bolt.Update(func(btx *bbolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
	if err != nil {
		if de, ok := err.(*Error); ok {
			return de
		}
		return IoError("db: update: %w", err)
	}
	return nil
}

// View runs fn inside a read-only bbolt transaction.
func (d *DB) View(fn func(tx *Tx) error) error {
	err := d.bolt.View(func(btx *bbolt.Tx) error {
		return fn(&Tx{btx: btx})
	})
	if err != nil {
		if de, ok := err.(*Error); ok {
			return de
		}
		return IoError("db: view: %w", err)
	}
	return nil
}

// Tx is a single transaction spanning all five buckets.
type Tx struct {
	btx *bbolt.Tx
}

func (t *Tx) bucket(name []byte) *bbolt.Bucket { return t.btx.Bucket(name) }

func (t *Tx) Metadata() (Metadata, error) {
	b := t.bucket(BucketMeta).Get(metaKey)
	if b == nil {
		return Metadata{}, nil
	}
	return decodeMetadata(b)
}

func (t *Tx) PutMetadata(m Metadata) error {
	return putMetadata(t.btx, m)
}

func (t *Tx) PutWorking(key ChunkDbKey, value []byte) error {
	return t.bucket(BucketWorking).Put(key.Encode(), value)
}

func (t *Tx) DeleteWorking(key ChunkDbKey) error {
	return t.bucket(BucketWorking).Delete(key.Encode())
}

func (t *Tx) GetWorking(key ChunkDbKey) []byte {
	return cloneBytes(t.bucket(BucketWorking).Get(key.Encode()))
}

func (t *Tx) PutBackup(key ChunkDbKey, value []byte) error {
	return t.bucket(BucketBackup).Put(key.Encode(), value)
}

func (t *Tx) DeleteBackup(key ChunkDbKey) error {
	return t.bucket(BucketBackup).Delete(key.Encode())
}

func (t *Tx) GetBackup(key ChunkDbKey) []byte {
	return cloneBytes(t.bucket(BucketBackup).Get(key.Encode()))
}

// ForEachBackupKey visits every key currently present in the backup
// bucket, used at Open to rebuild the in-memory backup key cache.
func (t *Tx) ForEachBackupKey(visit func(ChunkDbKey)) error {
	return t.bucket(BucketBackup).ForEach(func(k, _ []byte) error {
		key, err := DecodeChunkDbKey(k)
		if err != nil {
			return err
		}
		visit(key)
		return nil
	})
}

func (t *Tx) PutVersionChanges(v uint64, encoded []byte) error {
	return t.bucket(BucketVersionChanges).Put(versionKey(v), encoded)
}

func (t *Tx) GetVersionChanges(v uint64) ([]byte, error) {
	b := t.bucket(BucketVersionChanges).Get(versionKey(v))
	if b == nil {
		return nil, MissingVersionChanges("db: no version-changes record for version %d", v)
	}
	return cloneBytes(b), nil
}

func (t *Tx) PutVersionParent(v, parent uint64, hasParent bool) error {
	buf := make([]byte, 9)
	binary.BigEndian.PutUint64(buf, parent)
	if hasParent {
		buf[8] = 1
	}
	return t.bucket(BucketVersionGraph).Put(versionKey(v), buf)
}

func (t *Tx) GetVersionParent(v uint64) (parent uint64, hasParent bool, err error) {
	b := t.bucket(BucketVersionGraph).Get(versionKey(v))
	if b == nil {
		return 0, false, nil
	}
	if len(b) != 9 {
		return 0, false, xerrors.Errorf("db: malformed version-graph record for %d", v)
	}
	return binary.BigEndian.Uint64(b[:8]), b[8] == 1, nil
}

// ForEachVersionParent visits every (version, parent) edge recorded in the
// version-graph bucket, used at Open to rebuild the in-memory graph.
func (t *Tx) ForEachVersionParent(visit func(v, parent uint64, hasParent bool)) error {
	return t.bucket(BucketVersionGraph).ForEach(func(k, v []byte) error {
		if len(v) != 9 {
			return xerrors.Errorf("db: malformed version-graph record")
		}
		visit(decodeVersionKey(k), binary.BigEndian.Uint64(v[:8]), v[8] == 1)
		return nil
	})
}

// NextVersion allocates a new version id, analogous to sled's
// Tx::generate_id: a monotonically increasing counter stored in the meta
// bucket.
func (t *Tx) NextVersion() (uint64, error) {
	b := t.bucket(BucketMeta)
	seq, err := b.NextSequence()
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
