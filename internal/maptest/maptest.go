// Package maptest provides shared test fixtures for packages exercising a
// map database: a temp-dir-backed mapdb opened and torn down through
// testing.TB.Cleanup, the same pattern distri's internal/distritest uses
// for its exported test repositories.
package maptest

import (
	"path/filepath"
	"testing"

	"github.com/feldspar/feldspar/mapdb"
)

// OpenMapDb opens a fresh mapdb under a per-test temp directory and
// registers its Close with t.Cleanup.
func OpenMapDb(t testing.TB) *mapdb.MapDb {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.db")
	m, err := mapdb.Open(path)
	if err != nil {
		t.Fatalf("maptest: open %s: %v", path, err)
	}
	t.Cleanup(func() {
		if err := m.Close(); err != nil {
			t.Errorf("maptest: close: %v", err)
		}
	})
	return m
}
