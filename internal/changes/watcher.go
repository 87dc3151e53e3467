package changes

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/models"
)

// PlanSource reads the whole plan mapping.
type PlanSource interface {
	Plans(ctx context.Context) (models.Plans, error)
}

const debounce = 100 * time.Millisecond

// Watch observes dir with fsnotify and, whenever the file named file is
// written, created or renamed into place, re-reads the plans and reports
// the dates that differ from what tracker last saw. It runs until ctx is
// cancelled.
//
// Writes made through this process are reported by the store's change hook
// first, so the tracker suppresses them here.
func Watch(ctx context.Context, src PlanSource, dir, file string, tracker *Tracker, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("dir", dir), slog.String("file", file))

	// timer debounces bursts of events from a single atomic write.
	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			reload(ctx, src, tracker, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != file {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				logger.Debug("watcher: plans file changed", slog.String("op", ev.Op.String()))
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reload(ctx context.Context, src PlanSource, tracker *Tracker, logger *slog.Logger, cb EventCallback) {
	plans, err := src.Plans(ctx)
	if err != nil {
		// Leave the tracked state alone until the file parses again.
		level := slog.LevelWarn
		if !apperr.IsReadFailure(err) {
			level = slog.LevelError
		}
		logger.Log(ctx, level, "watcher: reload failed", slog.String("error", err.Error()))
		return
	}
	tracker.Reconcile(plans, func(kind, date string) {
		logger.Debug("watcher: plan changed", slog.String("date", date), slog.String("kind", kind))
		if cb != nil {
			cb(kind, date)
		}
	})
}
