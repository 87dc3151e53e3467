// Package planstore owns the persisted mapping from calendar date to the
// ordered list of tasks planned for that day. It is the only writer of
// plan data.
//
// Every operation reads the whole mapping and every mutation writes it
// back in full. Concurrent writers are not coordinated: the last save wins.
package planstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/metrics"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/storage"
	"github.com/starford/planner/internal/taskview"
)

// PlansKey is the storage key holding the serialized mapping.
const PlansKey = "plannerDatePlans"

// DefaultRecentLimit is how many dates Recent returns when asked for none.
const DefaultRecentLimit = 5

// ChangeHook is called after a bucket has been saved successfully.
// tasks is empty when the date was removed from the mapping.
type ChangeHook func(date string, tasks []models.Task)

// Store is the plan repository.
type Store struct {
	kv       storage.Provider
	now      func() time.Time
	newID    func() (string, error)
	logger   *slog.Logger
	onChange ChangeHook
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for task timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides task ID generation.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLogger sets the logger for recoverable storage problems.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithChangeHook registers fn to run after each successful save.
func WithChangeHook(fn ChangeHook) Option {
	return func(s *Store) { s.onChange = fn }
}

// New creates a Store persisting to kv.
func New(kv storage.Provider, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		now:    time.Now,
		newID:  newUUID,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// readAll loads the full mapping. Missing data is an empty mapping.
// Malformed data is an empty mapping plus a PersistenceReadError; a
// provider failure is returned as a plain error.
func (s *Store) readAll() (models.Plans, error) {
	data, err := s.kv.Get(PlansKey)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			metrics.PlanReads.WithLabelValues(metrics.StatusOK).Inc()
			return models.Plans{}, nil
		}
		metrics.PlanReads.WithLabelValues(metrics.StatusError).Inc()
		s.logger.Error("planstore: storage read failed", slog.String("error", err.Error()))
		return models.Plans{}, fmt.Errorf("planstore: read: %w", err)
	}
	var plans models.Plans
	if err := json.Unmarshal(data, &plans); err != nil {
		metrics.PlanReads.WithLabelValues(metrics.StatusReadRecovery).Inc()
		s.logger.Warn("planstore: stored plans are malformed, treating as empty",
			slog.String("key", PlansKey), slog.String("error", err.Error()))
		return models.Plans{}, &apperr.PersistenceReadError{Key: PlansKey, Err: err}
	}
	if plans == nil {
		plans = models.Plans{}
	}
	metrics.PlanReads.WithLabelValues(metrics.StatusOK).Inc()
	return plans, nil
}

// Load returns the bucket for date, or an empty slice when it has none.
// A PersistenceReadError is returned alongside an empty bucket when the
// stored mapping could not be read; callers treat it as a warning.
func (s *Store) Load(_ context.Context, date string) ([]models.Task, error) {
	if err := checkDate(date); err != nil {
		return nil, fmt.Errorf("planstore: load %q: %w", date, err)
	}
	plans, err := s.readAll()
	if err != nil {
		if !apperr.IsReadFailure(err) {
			err = &apperr.PersistenceReadError{Key: PlansKey, Err: err}
		}
		return []models.Task{}, err
	}
	tasks := plans[date]
	if tasks == nil {
		return []models.Task{}, nil
	}
	return tasks, nil
}

// Save replaces the bucket for date, or removes the date when tasks is empty.
// The mapping is re-read first so other dates written since the caller's
// load are kept.
func (s *Store) Save(_ context.Context, date string, tasks []models.Task) error {
	if err := checkDate(date); err != nil {
		return fmt.Errorf("planstore: save %q: %w", date, err)
	}
	plans, err := s.readAll()
	switch {
	case err == nil:
	case apperr.IsReadFailure(err):
		// Malformed data is discarded, matching the empty bucket Load returned.
		plans = models.Plans{}
	default:
		return &apperr.PersistenceWriteError{Key: PlansKey, Err: err}
	}
	if len(tasks) > 0 {
		plans[date] = tasks
	} else {
		delete(plans, date)
	}
	data, err := json.Marshal(plans)
	if err != nil {
		return &apperr.PersistenceWriteError{Key: PlansKey, Err: err}
	}
	if err := s.kv.Set(PlansKey, data); err != nil {
		s.logger.Error("planstore: write rejected",
			slog.String("date", date), slog.String("error", err.Error()))
		return &apperr.PersistenceWriteError{Key: PlansKey, Err: err}
	}
	if s.onChange != nil {
		s.onChange(date, tasks)
	}
	return nil
}

// mutation edits a private copy of a bucket. It reports whether anything
// changed; unchanged buckets are not written.
type mutation func(tasks []models.Task) ([]models.Task, bool, error)

func (s *Store) mutate(ctx context.Context, op, date string, fn mutation) ([]models.Task, error) {
	start := time.Now()
	if err := checkDate(date); err != nil {
		metrics.Observe(op, start, metrics.StatusInvalid)
		return nil, fmt.Errorf("planstore: %s %q: %w", op, date, err)
	}
	// A read failure continues from the empty bucket Load returned and is
	// reported with the result so callers can warn the user.
	current, readErr := s.Load(ctx, date)
	next, changed, err := fn(models.Clone(current))
	if err != nil {
		metrics.Observe(op, start, metrics.StatusOf(err))
		return current, err
	}
	if !changed {
		metrics.Observe(op, start, metrics.StatusNoop)
		return current, readErr
	}
	if err := s.Save(ctx, date, next); err != nil {
		metrics.Observe(op, start, metrics.StatusOf(err))
		return next, err
	}
	metrics.Observe(op, start, metrics.StatusOK)
	return next, readErr
}

// Add validates text and inserts a new pending task at the front of the
// bucket. On a write failure the created task is still returned together
// with the PersistenceWriteError.
//
// Mutations that had to discard unreadable stored data succeed but return
// the PersistenceReadError with their result.
func (s *Store) Add(ctx context.Context, date, text string) (models.Task, error) {
	normalized, err := NormalizeText(text)
	if err != nil {
		metrics.Observe("add", time.Now(), metrics.StatusInvalid)
		return models.Task{}, err
	}
	var created models.Task
	_, err = s.mutate(ctx, "add", date, func(tasks []models.Task) ([]models.Task, bool, error) {
		id, err := s.uniqueID(tasks)
		if err != nil {
			return nil, false, err
		}
		created = models.Task{
			ID:        id,
			Text:      normalized,
			CreatedAt: s.now().UTC(),
		}
		return append([]models.Task{created}, tasks...), true, nil
	})
	if err != nil && !apperr.IsWriteFailure(err) && !apperr.IsReadFailure(err) {
		return models.Task{}, err
	}
	if !apperr.IsWriteFailure(err) {
		metrics.TaskTextLength.Observe(float64(len([]rune(normalized))))
	}
	return created, err
}

func (s *Store) uniqueID(tasks []models.Task) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id, err := s.newID()
		if err != nil {
			return "", fmt.Errorf("planstore: generate id: %w", err)
		}
		if indexOf(tasks, id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("planstore: generate id: %w", apperr.ErrConflict)
}

// ToggleCompletion flips the completion state of task id. Completed tasks
// move to the end of the bucket and reactivated ones to the front; the
// relative order of the other tasks is unchanged. Unknown ids are ignored.
func (s *Store) ToggleCompletion(ctx context.Context, date, id string) ([]models.Task, error) {
	return s.mutate(ctx, "toggle", date, func(tasks []models.Task) ([]models.Task, bool, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return tasks, false, nil
		}
		t := tasks[i]
		t.Completed = !t.Completed
		if t.Completed {
			at := s.now().UTC()
			t.CompletedAt = &at
		} else {
			t.CompletedAt = nil
		}
		rest := slices.Delete(tasks, i, i+1)
		if t.Completed {
			return append(rest, t), true, nil
		}
		return append([]models.Task{t}, rest...), true, nil
	})
}

// Edit replaces the text of task id in place. Unchanged text and unknown
// ids are no-ops.
func (s *Store) Edit(ctx context.Context, date, id, text string) ([]models.Task, error) {
	normalized, err := NormalizeText(text)
	if err != nil {
		metrics.Observe("edit", time.Now(), metrics.StatusInvalid)
		return nil, err
	}
	return s.mutate(ctx, "edit", date, func(tasks []models.Task) ([]models.Task, bool, error) {
		i := indexOf(tasks, id)
		if i < 0 || tasks[i].Text == normalized {
			return tasks, false, nil
		}
		tasks[i].Text = normalized
		return tasks, true, nil
	})
}

// Remove deletes task id. Removing the last task removes the date.
func (s *Store) Remove(ctx context.Context, date, id string) ([]models.Task, error) {
	return s.mutate(ctx, "remove", date, func(tasks []models.Task) ([]models.Task, bool, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return tasks, false, nil
		}
		return slices.Delete(tasks, i, i+1), true, nil
	})
}

// Plans returns the whole mapping.
func (s *Store) Plans(_ context.Context) (models.Plans, error) {
	return s.readAll()
}

// Recent summarises the latest dates that hold tasks, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.PlanSummary, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	plans, err := s.Plans(ctx)
	dates := make([]string, 0, len(plans))
	for d, tasks := range plans {
		if len(tasks) > 0 && checkDate(d) == nil {
			dates = append(dates, d)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if len(dates) > limit {
		dates = dates[:limit]
	}
	out := make([]models.PlanSummary, len(dates))
	for i, d := range dates {
		out[i] = taskview.Summarise(d, plans[d])
	}
	return out, err
}

func indexOf(tasks []models.Task, id string) int {
	return slices.IndexFunc(tasks, func(t models.Task) bool { return t.ID == id })
}
