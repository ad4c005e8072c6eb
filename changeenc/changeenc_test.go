package changeenc

import (
	"testing"

	"github.com/feldspar/feldspar/chunk"
	"github.com/feldspar/feldspar/db"
	"github.com/feldspar/feldspar/geom"
)

func key(level uint8, x, y, z int32) db.ChunkDbKey {
	return db.ChunkDbKey{Level: level, Coords: geom.IVec3{X: x, Y: y, Z: z}}
}

func TestAddIsLastWriteWins(t *testing.T) {
	e := NewEncoder()
	k := key(0, 1, 1, 1)
	e.Add(k, Change{Op: Remove})
	e.Add(k, Change{Op: Insert})
	if e.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", e.Len())
	}
	encoded := e.Encode()
	if len(encoded) != 1 || encoded[0].Change.Op != Insert {
		t.Fatalf("expected the later Insert to win, got %+v", encoded)
	}
}

func TestEncodeOrdersLevelMajor(t *testing.T) {
	e := NewEncoder()
	e.Add(key(2, 0, 0, 0), Change{Op: Remove})
	e.Add(key(0, 5, 5, 5), Change{Op: Remove})
	e.Add(key(1, 0, 0, 0), Change{Op: Remove})

	out := e.Encode()
	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	for i := 0; i < len(out)-1; i++ {
		if out[i].Key.Level > out[i+1].Key.Level {
			t.Fatalf("output not level-major sorted: %+v", out)
		}
	}
}

func TestEncodeClearsBuffer(t *testing.T) {
	e := NewEncoder()
	e.Add(key(0, 0, 0, 0), Change{Op: Remove})
	e.Encode()
	if e.Len() != 0 {
		t.Fatalf("expected encoder to be empty after Encode, got %d", e.Len())
	}
}

func TestChangeCarriesCompressedPayload(t *testing.T) {
	c := chunk.NewAmbient()
	cc, err := chunk.Compress(c)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	e := NewEncoder()
	e.Add(key(0, 0, 0, 0), Change{Op: Insert, Value: cc})
	out := e.Encode()
	if len(out[0].Change.Value.Bytes) == 0 {
		t.Fatalf("expected the insert's compressed payload to be preserved")
	}
}
