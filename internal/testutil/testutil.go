// Package testutil provides shared test helpers for setting up plan stores.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/planner/internal/planstore"
	"github.com/starford/planner/internal/storage"
)

// Today is the fixed "now" of stores built by this package.
var Today = time.Date(2026, time.October, 19, 9, 30, 0, 0, time.UTC)

// Clock returns a clock frozen at Today.
func Clock() func() time.Time {
	return func() time.Time { return Today }
}

// SequentialIDs returns a generator yielding t1, t2, ...
func SequentialIDs() func() (string, error) {
	var n atomic.Int64
	return func() (string, error) {
		return fmt.Sprintf("t%d", n.Add(1)), nil
	}
}

// TestStore creates an in-memory plan store with a frozen clock and
// predictable task IDs.
func TestStore(t *testing.T, opts ...planstore.Option) (*planstore.Store, storage.Provider) {
	t.Helper()
	kv := storage.NewMemory()
	base := []planstore.Option{planstore.WithClock(Clock()), planstore.WithIDGenerator(SequentialIDs())}
	return planstore.New(kv, append(base, opts...)...), kv
}

// TestDataDir creates a temporary data directory with a file storage.Provider.
func TestDataDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}
