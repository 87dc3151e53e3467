package internal

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/planner/internal/format"
	"github.com/starford/planner/internal/planstore"
	"github.com/starford/planner/internal/prefs"
	"github.com/starford/planner/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{
		version: "dev",
		out:     os.Stdout,
		logOut:  os.Stdout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger and installs it as the default.
func (a *application) newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOut, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func (a *application) locale() format.Locale {
	l, err := format.ParseLocale(a.config.Planner.Locale)
	if err != nil {
		return format.English
	}
	return l
}

// backend is the opened storage plus what the rest of the wiring needs
// to know about it.
type backend struct {
	kv      storage.Provider
	fs      *storage.FS
	closeFn func() error
}

func (b *backend) Close() error {
	if b.closeFn == nil {
		return nil
	}
	return b.closeFn()
}

// openStorage opens the configured provider and applies the quota.
func openStorage(cfg StorageConfig) (*backend, error) {
	b := &backend{}
	switch cfg.Backend {
	case BackendFile:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		b.kv, b.fs = fs, fs
	case BackendSQLite:
		db, err := storage.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		b.kv, b.closeFn = db, db.Close
	case BackendMemory:
		b.kv = storage.NewMemory()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	b.kv = storage.WithQuota(b.kv, cfg.QuotaBytes)
	return b, nil
}

// openPlanner opens storage and builds the plan store and theme preferences.
func (a *application) openPlanner(logger *slog.Logger, opts ...planstore.Option) (*backend, *planstore.Store, *prefs.Themes, error) {
	b, err := openStorage(a.config.Storage)
	if err != nil {
		return nil, nil, nil, err
	}
	base := []planstore.Option{planstore.WithClock(a.now), planstore.WithLogger(logger)}
	store := planstore.New(b.kv, append(base, opts...)...)
	return b, store, prefs.NewThemes(b.kv), nil
}
