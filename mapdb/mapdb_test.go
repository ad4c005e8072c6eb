package mapdb

import (
	"path/filepath"
	"testing"

	"github.com/feldspar/feldspar/changeenc"
	"github.com/feldspar/feldspar/chunk"
	"github.com/feldspar/feldspar/db"
	"github.com/feldspar/feldspar/geom"
	"github.com/feldspar/feldspar/versiongraph"
)

func openTestMapDb(t *testing.T) *MapDb {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.db")
	m, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func key(x, y, z int32) db.ChunkDbKey {
	return db.ChunkDbKey{Level: 0, Coords: geom.IVec3{X: x, Y: y, Z: z}}
}

func compress(t *testing.T, fill func(*chunk.Chunk)) chunk.CompressedChunk {
	t.Helper()
	c := chunk.NewAmbient()
	if fill != nil {
		fill(c)
	}
	cc, err := chunk.Compress(c)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	return cc
}

func TestVersionRecordRoundTrip(t *testing.T) {
	cc := compress(t, func(c *chunk.Chunk) { c.SetVoxel(1, 2, 3, 10, 1) })
	record := versionRecord{
		forward: []changeenc.EncodedChange{
			{Key: key(0, 0, 0), Change: changeenc.Change{Op: changeenc.Insert, Value: cc}},
			{Key: key(1, 0, 0), Change: changeenc.Change{Op: changeenc.Remove}},
		},
		inverse: []changeenc.EncodedChange{
			{Key: key(0, 0, 0), Change: changeenc.Change{Op: changeenc.Remove}},
			{Key: key(1, 0, 0), Change: changeenc.Change{Op: changeenc.Insert, Value: cc}},
		},
	}
	buf := encodeVersionRecord(record)
	got, err := decodeVersionRecord(buf)
	if err != nil {
		t.Fatalf("decodeVersionRecord: %v", err)
	}
	if len(got.forward) != 2 || len(got.inverse) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got.forward[0].Change.Op != changeenc.Insert || got.inverse[0].Change.Op != changeenc.Remove {
		t.Fatalf("op mismatch after round trip: %+v", got)
	}
}

// writeAndCommit is the two-step sequence a real host always drives: Write
// stashes the pre-edit value into backup and applies the edit to working,
// then Commit archives whatever Write accumulated since the last commit.
func writeAndCommit(t *testing.T, m *MapDb, changes []changeenc.EncodedChange) versiongraph.Version {
	t.Helper()
	if err := m.Write(changes); err != nil {
		t.Fatalf("Write: %v", err)
	}
	v, err := m.Commit(changes)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return v
}

func TestCommitThenBranchFromUndoesInsert(t *testing.T) {
	m := openTestMapDb(t)
	k := key(0, 0, 0)

	firstPayload := compress(t, func(c *chunk.Chunk) { c.SetVoxel(0, 0, 0, 5, 1) })
	v1 := writeAndCommit(t, m, []changeenc.EncodedChange{
		{Key: k, Change: changeenc.Change{Op: changeenc.Insert, Value: firstPayload}},
	})

	secondPayload := compress(t, func(c *chunk.Chunk) { c.SetVoxel(0, 0, 0, -5, 2) })
	writeAndCommit(t, m, []changeenc.EncodedChange{
		{Key: k, Change: changeenc.Change{Op: changeenc.Insert, Value: secondPayload}},
	})

	var afterV2 []byte
	if err := m.db.View(func(tx *db.Tx) error {
		afterV2 = tx.GetWorking(k)
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
	if string(afterV2) != string(secondPayload.Bytes) {
		t.Fatalf("expected working to hold v2's payload after committing v2")
	}

	if err := m.BranchFrom(v1); err != nil {
		t.Fatalf("BranchFrom: %v", err)
	}

	var afterBranch []byte
	if err := m.db.View(func(tx *db.Tx) error {
		afterBranch = tx.GetWorking(k)
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
	if string(afterBranch) != string(firstPayload.Bytes) {
		t.Fatalf("expected BranchFrom(v1) to restore v1's payload, got a %d-byte value equal to v2? %v",
			len(afterBranch), string(afterBranch) == string(secondPayload.Bytes))
	}
}

func TestBranchFromUndoesInsertBackToAbsent(t *testing.T) {
	m := openTestMapDb(t)
	k := key(9, 9, 9)
	sentinel := key(0, 0, 0)

	sentinelPayload := compress(t, nil)
	v0 := writeAndCommit(t, m, []changeenc.EncodedChange{
		{Key: sentinel, Change: changeenc.Change{Op: changeenc.Insert, Value: sentinelPayload}},
	})

	payload := compress(t, nil)
	writeAndCommit(t, m, []changeenc.EncodedChange{
		{Key: k, Change: changeenc.Change{Op: changeenc.Insert, Value: payload}},
	})

	if err := m.BranchFrom(v0); err != nil {
		t.Fatalf("BranchFrom: %v", err)
	}

	var after []byte
	if err := m.db.View(func(tx *db.Tx) error {
		after = tx.GetWorking(k)
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
	if after != nil {
		t.Fatalf("expected key to be absent after undoing its only insert, got %d bytes", len(after))
	}
	if m.backupKeyCache[k] {
		t.Fatalf("expected backupKeyCache to hold nothing outstanding after a clean branch switch")
	}
}

func TestWriteStashesPreEditValueOnFirstTouchOnly(t *testing.T) {
	m := openTestMapDb(t)
	k := key(4, 4, 4)

	first := compress(t, func(c *chunk.Chunk) { c.SetVoxel(0, 0, 0, 1, 1) })
	second := compress(t, func(c *chunk.Chunk) { c.SetVoxel(0, 0, 0, 2, 2) })

	if err := m.Write([]changeenc.EncodedChange{
		{Key: k, Change: changeenc.Change{Op: changeenc.Insert, Value: first}},
	}); err != nil {
		t.Fatalf("Write 1: %v", err)
	}
	if err := m.Write([]changeenc.EncodedChange{
		{Key: k, Change: changeenc.Change{Op: changeenc.Insert, Value: second}},
	}); err != nil {
		t.Fatalf("Write 2: %v", err)
	}

	var working, backup []byte
	if err := m.db.View(func(tx *db.Tx) error {
		working = tx.GetWorking(k)
		backup = tx.GetBackup(k)
		return nil
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
	if string(working) != string(second.Bytes) {
		t.Fatalf("expected working to hold the latest write")
	}
	if backup != nil {
		t.Fatalf("expected backup to still hold the Remove sentinel from the first write (key never existed before this generation), got %d bytes", len(backup))
	}
	if !m.backupKeyCache[k] {
		t.Fatalf("expected backupKeyCache to mark the key touched")
	}
}
