// Package node implements the per-node chunk storage slot and the atomic
// node state bitset the clipmap uses to track occupancy, compression, and
// in-flight loads without a global lock.
package node

import (
	"sync"

	"github.com/feldspar/feldspar/chunk"
)

// SlotKind is the logical state of a ChunkSlot.
type SlotKind int

const (
	Empty SlotKind = iota
	Compressed
	Decompressed
)

// ChunkSlot holds a node's chunk payload, which is either absent, stored
// compressed, or decompressed for reading. Most readers only ever need the
// decompressed form; GetDecompressed elects exactly one goroutine to pay the
// decompression cost when several readers race a still-compressed slot.
type ChunkSlot struct {
	mu           sync.RWMutex
	kind         SlotKind
	compressed   chunk.CompressedChunk
	decompressed *chunk.Chunk
}

func NewEmptySlot() *ChunkSlot {
	return &ChunkSlot{kind: Empty}
}

func NewCompressedSlot(cc chunk.CompressedChunk) *ChunkSlot {
	return &ChunkSlot{kind: Compressed, compressed: cc}
}

func NewDecompressedSlot(c *chunk.Chunk) *ChunkSlot {
	return &ChunkSlot{kind: Decompressed, decompressed: c}
}

// Kind returns the slot's current logical state.
func (s *ChunkSlot) Kind() SlotKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kind
}

// GetDecompressed returns the slot's chunk in decompressed form, decoding it
// in place if necessary. Concurrent callers racing a Compressed slot only
// pay the decompression cost once: the first to acquire the write lock
// decodes and stores the result, and the rest observe the now-Decompressed
// slot. Returns nil if the slot is Empty.
func (s *ChunkSlot) GetDecompressed() (*chunk.Chunk, error) {
	s.mu.RLock()
	if s.kind == Decompressed {
		c := s.decompressed
		s.mu.RUnlock()
		return c, nil
	}
	if s.kind == Empty {
		s.mu.RUnlock()
		return nil, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check: another goroutine may have decompressed while we waited
	// for the write lock.
	if s.kind == Decompressed {
		return s.decompressed, nil
	}
	if s.kind == Empty {
		return nil, nil
	}
	c, err := chunk.Decompress(s.compressed)
	if err != nil {
		return nil, err
	}
	s.decompressed = c
	s.kind = Decompressed
	return c, nil
}

// PutCompressed replaces the slot's contents with cc. The replaced value is
// dropped, not returned.
func (s *ChunkSlot) PutCompressed(cc chunk.CompressedChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kind = Compressed
	s.compressed = cc
	s.decompressed = nil
}

// PutDecompressed replaces the slot's contents with c.
func (s *ChunkSlot) PutDecompressed(c *chunk.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kind = Decompressed
	s.decompressed = c
	s.compressed = chunk.CompressedChunk{}
}

// TakeChunk empties the slot, returning whichever form it held.
func (s *ChunkSlot) TakeChunk() (kind SlotKind, compressed chunk.CompressedChunk, decompressed *chunk.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kind, compressed, decompressed = s.kind, s.compressed, s.decompressed
	s.kind = Empty
	s.compressed = chunk.CompressedChunk{}
	s.decompressed = nil
	return kind, compressed, decompressed
}

// EnsureCompressed forces the slot into Compressed form, compressing any
// decompressed payload it currently holds.
func (s *ChunkSlot) EnsureCompressed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.kind != Decompressed {
		return nil
	}
	cc, err := chunk.Compress(s.decompressed)
	if err != nil {
		return err
	}
	s.kind = Compressed
	s.compressed = cc
	s.decompressed = nil
	return nil
}
