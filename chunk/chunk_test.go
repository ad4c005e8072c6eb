package chunk

import (
	"testing"

	"github.com/feldspar/feldspar/geom"
	"github.com/feldspar/feldspar/sd8"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	c := NewAmbient()
	c.SetVoxel(3, 4, 5, -42, 7)

	cc, err := Compress(c)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	got, err := Decompress(cc)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if *got != *c {
		t.Fatalf("round trip mismatch")
	}
}

func TestAmbientChunkCompressesUnder1Percent(t *testing.T) {
	c := NewAmbient()
	cc, err := Compress(c)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	ratio := float64(len(cc.Bytes)) / float64(2*NumVoxels)
	if ratio >= 0.008 {
		t.Fatalf("ambient chunk compression ratio = %v, want < 0.008", ratio)
	}
}

func TestSphereChunkCompressesUnder19Percent(t *testing.T) {
	c := NewAmbient()
	center := float32(Edge) / 2
	radius := float32(Edge) / 3
	for z := 0; z < Edge; z++ {
		for y := 0; y < Edge; y++ {
			for x := 0; x < Edge; x++ {
				dx, dy, dz := float32(x)-center, float32(y)-center, float32(z)-center
				dist := dx*dx + dy*dy + dz*dz
				var v sd8.Sd8
				if dist < radius*radius {
					v = sd8.FromFloat(-1 + (dist / (radius * radius)))
				} else {
					v = sd8.Ambient
				}
				c.SetVoxel(x, y, z, v, 1)
			}
		}
	}
	cc, err := Compress(c)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	ratio := float64(len(cc.Bytes)) / float64(2*NumVoxels)
	if ratio >= 0.19 {
		t.Fatalf("sphere chunk compression ratio = %v, want < 0.19", ratio)
	}
}

func TestDownsampleIntoUniformChunkHalvesSDF(t *testing.T) {
	child := NewAmbient()
	for i := range child.Palette {
		child.Palette[i] = 9
	}
	parent := NewAmbient()
	DownsampleInto(parent, 0, child)
	// A uniform Ambient (127) octant rescales to round(127*8/16) == 64, not
	// 127: downsampling halves the field's magnitude at each coarser level
	// rather than preserving it (sd8.DownsampleMean).
	const wantSDF = sd8.Sd8(64)
	for z := 0; z < Edge/2; z++ {
		for y := 0; y < Edge/2; y++ {
			for x := 0; x < Edge/2; x++ {
				v, p := parent.Voxel(x, y, z)
				if v != wantSDF || p != 9 {
					t.Fatalf("downsample of uniform chunk: got (%d,%d,%d): %v %v, want %v 9", x, y, z, v, p, wantSDF)
				}
			}
		}
	}
}

func TestDownsampleIntoModeTieBreaksFirstSeen(t *testing.T) {
	child := NewAmbient()
	// The 2x2x2 block at origin gets ids [5,5,3,3,...] in (x,y,z) scan
	// order: 5 is seen first, so a 50/50 tie must resolve to 5.
	ids := []PaletteID{5, 5, 3, 3, 5, 5, 3, 3}
	n := 0
	for dz := 0; dz < 2; dz++ {
		for dy := 0; dy < 2; dy++ {
			for dx := 0; dx < 2; dx++ {
				child.SetVoxel(dx, dy, dz, 0, ids[n])
				n++
			}
		}
	}
	parent := NewAmbient()
	DownsampleInto(parent, 0, child)
	_, p := parent.Voxel(0, 0, 0)
	if p != 5 {
		t.Fatalf("tie-break mode = %v, want 5 (first seen)", p)
	}
}

func TestRayIntersectionsThroughChunk(t *testing.T) {
	ray := geom.NewRay(geom.Vec3{X: -1, Y: 0.5, Z: 0.5}, geom.Vec3{X: 1, Y: 0, Z: 0})
	box := geom.AABB{Min: geom.Vec3{0, 0, 0}, Max: geom.Vec3{Edge, Edge, Edge}}
	tmin, tmax, ok := ray.CastAtAABB(box)
	if !ok {
		t.Fatalf("expected ray to hit chunk bounds")
	}
	c := NewAmbient()
	var hits []VoxelHit
	RayIntersections(c, ray, tmin, tmax, func(h VoxelHit) bool {
		hits = append(hits, h)
		return false
	})
	if len(hits) != Edge {
		t.Fatalf("got %d voxel hits along a straight traversal, want %d", len(hits), Edge)
	}
	for i, h := range hits {
		if h.X != i || h.Y != 0 || h.Z != 0 {
			t.Fatalf("hit %d = %+v, want X=%d Y=0 Z=0", i, h, i)
		}
	}
}

func TestRayIntersectionsStopsOnMarkedVoxel(t *testing.T) {
	ray := geom.NewRay(geom.Vec3{X: -1, Y: 0.5, Z: 0.5}, geom.Vec3{X: 1, Y: 0, Z: 0})
	box := geom.AABB{Min: geom.Vec3{0, 0, 0}, Max: geom.Vec3{Edge, Edge, Edge}}
	tmin, tmax, _ := ray.CastAtAABB(box)
	c := NewAmbient()
	c.SetVoxel(4, 0, 0, -1, 1)
	var stoppedAt VoxelHit
	count := 0
	RayIntersections(c, ray, tmin, tmax, func(h VoxelHit) bool {
		count++
		v, _ := c.Voxel(h.X, h.Y, h.Z)
		if v.IsNegative() {
			stoppedAt = h
			return true
		}
		return false
	})
	if stoppedAt.X != 4 {
		t.Fatalf("stopped at X=%d, want 4", stoppedAt.X)
	}
	if count != 5 {
		t.Fatalf("visited %d voxels before stopping, want 5", count)
	}
}
