package feldspar

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/feldspar/feldspar/chunk"
	"github.com/feldspar/feldspar/clipmap"
	"github.com/feldspar/feldspar/geom"
)

func smallConfig() Config {
	return Config{
		Clip: clipmap.Config{
			Detail:           6.0,
			ClipSphereRadius: 20,
			TreeHeight:       2,
		},
		LoadBudget:      16,
		LoadConcurrency: 4,
	}
}

func openTestMap(t *testing.T) *Map {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.db")
	m, err := Open(path, smallConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestTickLoadsChunksAroundObserver(t *testing.T) {
	m := openTestMap(t)
	_, err := m.Tick(context.Background(), geom.Vec3{X: 0, Y: 0, Z: 0})
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if m.Clip.Tree.NumRoots() == 0 {
		t.Fatalf("expected at least one root to be seeded around the observer")
	}
}

func TestEditCommitBranchRoundTrip(t *testing.T) {
	m := openTestMap(t)
	coords := geom.IVec3{X: 0, Y: 0, Z: 0}

	edited := chunk.NewAmbient()
	edited.SetVoxel(1, 1, 1, 42, 7)
	if err := m.Edit(0, coords, edited); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	v1, err := m.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := m.ReadChunk(0, coords)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	sdf, pal := got.Voxel(1, 1, 1)
	if sdf != 42 || pal != 7 {
		t.Fatalf("got voxel (%v, %v), want (42, 7)", sdf, pal)
	}

	if err := m.RemoveEdit(0, coords); err != nil {
		t.Fatalf("RemoveEdit: %v", err)
	}
	if _, err := m.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err = m.ReadChunk(0, coords)
	if err != nil {
		t.Fatalf("ReadChunk after remove: %v", err)
	}
	ambient := chunk.NewAmbient()
	if sdf, _ := got.Voxel(1, 1, 1); sdf != ambient.SDF[0] {
		t.Fatalf("expected a removed key to read back as ambient, got sdf=%v", sdf)
	}

	if err := m.BranchFrom(v1); err != nil {
		t.Fatalf("BranchFrom: %v", err)
	}
	got, err = m.ReadChunk(0, coords)
	if err != nil {
		t.Fatalf("ReadChunk after branch: %v", err)
	}
	sdf, pal = got.Voxel(1, 1, 1)
	if sdf != 42 || pal != 7 {
		t.Fatalf("after branching back to v1, got voxel (%v, %v), want (42, 7)", sdf, pal)
	}
}
