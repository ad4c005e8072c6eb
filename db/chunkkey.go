// Package db defines the on-disk key/value encodings and the five bbolt
// buckets (meta, working, backup, version-changes, version-graph) that back
// a map database, plus the transactions built on top of them.
package db

import (
	"encoding/binary"

	"golang.org/x/xerrors"

	"github.com/feldspar/feldspar/geom"
)

// ChunkDbKeySize is the length in bytes of an encoded ChunkDbKey: 1 level
// byte followed by 12 bytes of Morton-interleaved coordinates.
const ChunkDbKeySize = 13

// ChunkDbKey addresses one chunk node on disk: its octree level and
// coordinates, ordered so that a level-major, then-Morton-order disk scan
// visits chunks depth first by level and locality within a level.
type ChunkDbKey struct {
	Level  uint8
	Coords geom.IVec3
}

// bias shifts a signed 32-bit coordinate into an unsigned range that sorts
// identically, so Morton interleaving of negative coordinates preserves
// their relative order on disk.
const bias = uint32(1) << 31

func biasedUint(v int32) uint32 {
	return uint32(v) + bias
}

func unbias(v uint32) int32 {
	return int32(v - bias)
}

// morton3 interleaves the bits of three 32-bit unsigned values into a
// 96-bit Morton code, returned as a 12-byte big-endian buffer.
func morton3(x, y, z uint32) [12]byte {
	var out [12]byte
	var bitIndex uint
	for i := 0; i < 32; i++ {
		for axis, v := range [3]uint32{x, y, z} {
			bit := (v >> uint(i)) & 1
			if bit != 0 {
				byteIdx := 11 - bitIndex/8
				out[byteIdx] |= 1 << (bitIndex % 8)
			}
			bitIndex++
			_ = axis
		}
	}
	return out
}

func unmorton3(buf [12]byte) (x, y, z uint32) {
	var bitIndex uint
	for i := 0; i < 32; i++ {
		for axis := 0; axis < 3; axis++ {
			byteIdx := 11 - bitIndex/8
			bit := (buf[byteIdx] >> (bitIndex % 8)) & 1
			switch axis {
			case 0:
				x |= uint32(bit) << uint(i)
			case 1:
				y |= uint32(bit) << uint(i)
			case 2:
				z |= uint32(bit) << uint(i)
			}
			bitIndex++
		}
	}
	return x, y, z
}

// Encode serializes k into its 13-byte disk key.
func (k ChunkDbKey) Encode() []byte {
	buf := make([]byte, ChunkDbKeySize)
	buf[0] = k.Level
	m := morton3(biasedUint(k.Coords.X), biasedUint(k.Coords.Y), biasedUint(k.Coords.Z))
	copy(buf[1:], m[:])
	return buf
}

// DecodeChunkDbKey parses a 13-byte disk key produced by Encode.
func DecodeChunkDbKey(buf []byte) (ChunkDbKey, error) {
	if len(buf) != ChunkDbKeySize {
		return ChunkDbKey{}, xerrors.Errorf("db: chunk key must be %d bytes, got %d", ChunkDbKeySize, len(buf))
	}
	var m [12]byte
	copy(m[:], buf[1:])
	x, y, z := unmorton3(m)
	return ChunkDbKey{
		Level:  buf[0],
		Coords: geom.IVec3{X: unbias(x), Y: unbias(y), Z: unbias(z)},
	}, nil
}

// MinKey and MaxKey bound the range of all keys at a given level, for a
// level-scoped bucket scan.
func MinKey(level uint8) []byte {
	k := make([]byte, ChunkDbKeySize)
	k[0] = level
	return k
}

func MaxKey(level uint8) []byte {
	k := MinKey(level)
	for i := 1; i < len(k); i++ {
		k[i] = 0xff
	}
	return k
}

// versionKey encodes a version id as an 8-byte big-endian key, the format
// used by the version-changes and version-graph buckets.
func versionKey(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

func decodeVersionKey(buf []byte) uint64 {
	return binary.BigEndian.Uint64(buf)
}
