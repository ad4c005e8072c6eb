// Package changeenc buffers a batch of chunk edits into the sorted,
// last-write-wins form written to the working and backup tables and
// recorded as a version's change set.
package changeenc

import (
	"golang.org/x/exp/slices"

	"github.com/feldspar/feldspar/chunk"
	"github.com/feldspar/feldspar/db"
)

// ChangeOp distinguishes an insert from a removal; Change is a two-variant
// sum type expressed as a Go struct with a discriminant rather than an
// actual union.
type ChangeOp int

const (
	Insert ChangeOp = iota
	Remove
)

// Change is one edit to a chunk: either a new compressed payload to insert,
// or a removal (the chunk becomes unoccupied / homogeneous-ambient).
type Change struct {
	Op    ChangeOp
	Value chunk.CompressedChunk
}

// Encoder accumulates edits keyed by ChunkDbKey, keeping only the most
// recently applied edit per key (last-write-wins) until Encode flushes
// them in on-disk key order.
type Encoder struct {
	changes map[db.ChunkDbKey]Change
}

func NewEncoder() *Encoder {
	return &Encoder{changes: make(map[db.ChunkDbKey]Change)}
}

// Add records an edit, replacing any previously buffered edit for the same
// key.
func (e *Encoder) Add(key db.ChunkDbKey, c Change) {
	e.changes[key] = c
}

// Len reports how many distinct keys are currently buffered.
func (e *Encoder) Len() int { return len(e.changes) }

// EncodedChange is one (key, change) pair ready to be written to the
// working/backup buckets in on-disk key order.
type EncodedChange struct {
	Key    db.ChunkDbKey
	Change Change
}

// Encode sorts the buffered edits into level-major, then-Morton on-disk key
// order (the same order chunks are physically stored in, so a sequential
// bucket write touches pages in ascending order) and clears the encoder.
func (e *Encoder) Encode() []EncodedChange {
	out := make([]EncodedChange, 0, len(e.changes))
	for k, c := range e.changes {
		out = append(out, EncodedChange{Key: k, Change: c})
	}
	slices.SortFunc(out, func(a, b EncodedChange) bool {
		return lessKey(a.Key, b.Key)
	})
	e.changes = make(map[db.ChunkDbKey]Change)
	return out
}

// lessKey orders two keys the way they sit on disk: level-major (lower,
// finer levels first), then by their encoded Morton byte order within a level.
func lessKey(a, b db.ChunkDbKey) bool {
	if a.Level != b.Level {
		return a.Level < b.Level
	}
	return compareBytes(a.Encode(), b.Encode()) < 0
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
