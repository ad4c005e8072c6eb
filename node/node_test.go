package node

import (
	"sync"
	"testing"

	"github.com/feldspar/feldspar/chunk"
)

func TestGetDecompressedConcurrentReadersDecompressOnce(t *testing.T) {
	c := chunk.NewAmbient()
	c.SetVoxel(1, 1, 1, -5, 2)
	cc, err := chunk.Compress(c)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	slot := NewCompressedSlot(cc)

	const readers = 10
	var wg sync.WaitGroup
	results := make([]*chunk.Chunk, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := slot.GetDecompressed()
			if err != nil {
				t.Errorf("GetDecompressed: %v", err)
				return
			}
			results[i] = got
		}(i)
	}
	wg.Wait()

	if slot.Kind() != Decompressed {
		t.Fatalf("slot kind = %v, want Decompressed", slot.Kind())
	}
	for i, got := range results {
		if got != results[0] {
			t.Fatalf("reader %d got a different chunk pointer than reader 0; decompression ran more than once", i)
		}
	}
	v, p := results[0].Voxel(1, 1, 1)
	if v != -5 || p != 2 {
		t.Fatalf("decompressed chunk voxel mismatch: %v %v", v, p)
	}
}

func TestTryClearLoadPendingIsOneShot(t *testing.T) {
	s := NewState()
	s.SetLoadPending()
	if !s.TryClearLoadPending() {
		t.Fatalf("first clear should succeed")
	}
	if s.TryClearLoadPending() {
		t.Fatalf("second clear should fail, the bit is already clear")
	}
}

func TestTreeIsLoading(t *testing.T) {
	s := NewState()
	if s.TreeIsLoading() {
		t.Fatalf("fresh state should not be loading")
	}
	s.SetChildLoading(3)
	if !s.TreeIsLoading() {
		t.Fatalf("expected tree to be loading once a child is marked loading")
	}
	s.ClearChildLoading(3)
	if s.TreeIsLoading() {
		t.Fatalf("expected tree to stop loading once the child is cleared")
	}
}

func TestMarkLoadedIgnoresStaleCompletion(t *testing.T) {
	n := NewEmpty()
	// No LoadPending was ever set, so this completion is stale/redundant.
	if n.MarkLoaded(chunk.NewAmbient()) {
		t.Fatalf("expected stale load completion to be rejected")
	}
}

func TestMarkLoadedAppliesPendingLoad(t *testing.T) {
	n := NewEmpty()
	n.State.SetLoadPending()
	c := chunk.NewAmbient()
	if !n.MarkLoaded(c) {
		t.Fatalf("expected pending load to be applied")
	}
	if n.State.SlotState() != Decompressed {
		t.Fatalf("slot state = %v, want Decompressed", n.State.SlotState())
	}
	got, err := n.Slot.GetDecompressed()
	if err != nil {
		t.Fatalf("GetDecompressed: %v", err)
	}
	if got != c {
		t.Fatalf("expected loaded chunk to be stored")
	}
}
