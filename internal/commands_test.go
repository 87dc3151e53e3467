package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/planner/internal/planstore"
)

var testNow = time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)

func fileConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "data")
	return cfg
}

func TestOpenStorage_Backends(t *testing.T) {
	dir := t.TempDir()
	cases := []StorageConfig{
		{Backend: BackendFile, Path: filepath.Join(dir, "files")},
		{Backend: BackendSQLite, Path: filepath.Join(dir, "planner.db")},
		{Backend: BackendMemory},
	}
	for _, c := range cases {
		t.Run(c.Backend, func(t *testing.T) {
			be, err := openStorage(c)
			require.NoError(t, err)
			defer be.Close()

			require.NoError(t, be.kv.Set("theme", []byte("dark")))
			got, err := be.kv.Get("theme")
			require.NoError(t, err)
			assert.Equal(t, "dark", string(got))
			assert.Equal(t, c.Backend == BackendFile, be.fs != nil)
		})
	}

	_, err := openStorage(StorageConfig{Backend: "tape"})
	assert.Error(t, err)
}

func TestOpenStorage_Quota(t *testing.T) {
	be, err := openStorage(StorageConfig{Backend: BackendMemory, QuotaBytes: 16})
	require.NoError(t, err)
	assert.Error(t, be.kv.Set(planstore.PlansKey, bytes.Repeat([]byte("x"), 32)))
}

func TestShow(t *testing.T) {
	cfg := fileConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Storage.Path, 0o755))
	be, err := openStorage(cfg.Storage)
	require.NoError(t, err)
	store := planstore.New(be.kv, planstore.WithClock(func() time.Time { return testNow }))
	ctx := context.Background()
	_, err = store.Add(ctx, "2026-10-19", "buy milk")
	require.NoError(t, err)
	paid, err := store.Add(ctx, "2026-10-19", "pay bills")
	require.NoError(t, err)
	_, err = store.ToggleCompletion(ctx, "2026-10-19", paid.ID)
	require.NoError(t, err)

	var out bytes.Buffer
	var logs bytes.Buffer
	opts := []Option{WithConfig(cfg), WithOutput(&out), WithLogOutput(&logs), WithClock(func() time.Time { return testNow })}

	require.NoError(t, Show(ctx, "", "", opts...))
	text := out.String()
	assert.Contains(t, text, "Monday, October 19, 2026 (Today)")
	assert.Contains(t, text, "[ ]  buy milk")
	assert.Contains(t, text, "[x]  pay bills")
	assert.Contains(t, text, "2 total, 1 completed, 1 pending, 50%")

	out.Reset()
	require.NoError(t, Show(ctx, "2026-10-19", "pending", opts...))
	assert.NotContains(t, out.String(), "pay bills")

	out.Reset()
	require.NoError(t, Show(ctx, "2026-10-20", "", opts...))
	assert.Contains(t, out.String(), "(no tasks)")

	assert.Error(t, Show(ctx, "2026-02-30", "", opts...))
	assert.Error(t, Show(ctx, "2026-10-19", "done", opts...))
}

func TestRunRequiresConfig(t *testing.T) {
	assert.Error(t, Run(context.Background()))
	assert.Error(t, Show(context.Background(), "", ""))
}
