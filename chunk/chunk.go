// Package chunk implements the fixed-size voxel chunk: a 16x16x16 block of
// signed-distance and palette values, its LZ4 on-disk encoding, octant
// downsampling into a parent chunk, and grid ray traversal.
package chunk

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/feldspar/feldspar/sd8"
)

// Edge is the number of voxels along one axis of a chunk.
const Edge = 16

// NumVoxels is the total number of voxels in a chunk (16^3).
const NumVoxels = Edge * Edge * Edge

// PaletteID indexes into a host-owned material palette; it carries no
// meaning inside this package beyond being stored and downsampled alongside
// the SDF value.
type PaletteID = uint8

// Chunk holds one level's worth of voxel data as two parallel arrays, the
// same layout as the original's SdfChunk/PaletteIdChunk pair.
type Chunk struct {
	SDF     [NumVoxels]sd8.Sd8
	Palette [NumVoxels]PaletteID
}

// NewAmbient returns a chunk filled entirely with the ambient (outside the
// surface) value and palette id 0.
func NewAmbient() *Chunk {
	c := &Chunk{}
	for i := range c.SDF {
		c.SDF[i] = sd8.Ambient
	}
	return c
}

// Index converts local voxel coordinates (each in [0, Edge)) to a flat
// array offset. x is the fastest-varying axis.
func Index(x, y, z int) int {
	return x + Edge*(y+Edge*z)
}

func (c *Chunk) Voxel(x, y, z int) (sd8.Sd8, PaletteID) {
	i := Index(x, y, z)
	return c.SDF[i], c.Palette[i]
}

func (c *Chunk) SetVoxel(x, y, z int, v sd8.Sd8, p PaletteID) {
	i := Index(x, y, z)
	c.SDF[i] = v
	c.Palette[i] = p
}

func sdfBytes(sdf *[NumVoxels]sd8.Sd8) []byte {
	b := make([]byte, NumVoxels)
	for i, v := range sdf {
		b[i] = byte(v)
	}
	return b
}

func paletteBytes(p *[NumVoxels]PaletteID) []byte {
	return p[:]
}

// CompressedChunk is a chunk's LZ4-frame-compressed on-disk representation:
// the concatenation of the raw SDF bytes followed by the raw palette bytes,
// run through a single LZ4 frame.
type CompressedChunk struct {
	Bytes []byte
}

// Compress encodes c as an LZ4 frame over sdf-bytes-then-palette-bytes.
func Compress(c *Chunk) (CompressedChunk, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(sdfBytes(&c.SDF)); err != nil {
		return CompressedChunk{}, err
	}
	if _, err := zw.Write(paletteBytes(&c.Palette)); err != nil {
		return CompressedChunk{}, err
	}
	if err := zw.Close(); err != nil {
		return CompressedChunk{}, err
	}
	return CompressedChunk{Bytes: buf.Bytes()}, nil
}

// Decompress reverses Compress, returning a freshly allocated Chunk.
func Decompress(cc CompressedChunk) (*Chunk, error) {
	zr := lz4.NewReader(bytes.NewReader(cc.Bytes))
	raw := make([]byte, 2*NumVoxels)
	if _, err := io.ReadFull(zr, raw); err != nil {
		return nil, err
	}
	c := &Chunk{}
	for i := 0; i < NumVoxels; i++ {
		c.SDF[i] = sd8.Sd8(raw[i])
	}
	copy(c.Palette[:], raw[NumVoxels:2*NumVoxels])
	return c, nil
}
