package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/promote/internal/idgen"
	"github.com/roach88/promote/internal/testutil"
)

// createTestStore opens a store in a temp dir with deterministic flow ids
// ("live-1", "live-2", ...) and timestamps.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithIDGenerator(idgen.NewSequence("live")),
		WithClock(testutil.NewClock().Now),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
