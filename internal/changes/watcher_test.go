package changes

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/planner/internal/planstore"
	"github.com/starford/planner/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(kind, date string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+date)
	r.mu.Unlock()
}

func (r *recorder) count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func watcherEnv(t *testing.T) (string, *planstore.Store, *Tracker, *recorder) {
	t.Helper()
	dir, fs := testutil.TestDataDir(t)
	tracker := NewTracker()
	rec := &recorder{}
	store := planstore.New(fs, planstore.WithChangeHook(tracker.Hook(rec.record)))

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = Watch(ctx, store, dir, planstore.PlansKey, tracker, logger, rec.record) }()
	time.Sleep(100 * time.Millisecond)
	return dir, store, tracker, rec
}

func TestWatcher_ExternalWriteReported(t *testing.T) {
	dir, _, _, rec := watcherEnv(t)

	external := `{"2026-10-19":[{"id":"1","text":"from another process","completed":false,"createdAt":"2026-10-19T08:00:00Z","completedAt":null}]}`
	_ = os.WriteFile(filepath.Join(dir, planstore.PlansKey), []byte(external), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.count("created:2026-10-19") == 1
	}, "external write not reported")
}

func TestWatcher_OwnWriteReportedOnce(t *testing.T) {
	_, store, _, rec := watcherEnv(t)

	if _, err := store.Add(context.Background(), "2026-10-20", "local"); err != nil {
		t.Fatal(err)
	}
	if n := rec.count("created:2026-10-20"); n != 1 {
		t.Fatalf("hook events = %d, want 1", n)
	}

	time.Sleep(500 * time.Millisecond)
	if n := rec.count("created:2026-10-20"); n != 1 {
		t.Errorf("events after reload = %d, want 1", n)
	}
}

func TestWatcher_ExternalDeleteReported(t *testing.T) {
	dir, store, _, rec := watcherEnv(t)

	if _, err := store.Add(context.Background(), "2026-10-21", "soon gone"); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(dir, planstore.PlansKey), []byte(`{}`), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.count("deleted:2026-10-21") == 1
	}, "external removal not reported")
}
