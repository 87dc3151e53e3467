package planstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/metrics"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/storage"
	"github.com/starford/planner/internal/taskview"
)

const day = "2026-10-19"

type fixture struct {
	kv    storage.Provider
	store *Store
	clock time.Time
}

func newFixture(t *testing.T, kv storage.Provider, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{kv: kv, clock: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	seq := 0
	base := []Option{
		WithClock(func() time.Time {
			f.clock = f.clock.Add(time.Second)
			return f.clock
		}),
		WithIDGenerator(func() (string, error) {
			seq++
			return fmt.Sprintf("id-%d", seq), nil
		}),
	}
	f.store = New(kv, append(base, opts...)...)
	return f
}

func texts(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Text
	}
	return out
}

func storedPlans(t *testing.T, kv storage.Provider) models.Plans {
	t.Helper()
	data, err := kv.Get(PlansKey)
	require.NoError(t, err)
	var plans models.Plans
	require.NoError(t, json.Unmarshal(data, &plans))
	return plans
}

func TestAddThenLoad(t *testing.T) {
	f := newFixture(t, storage.NewMemory())
	ctx := context.Background()

	task, err := f.store.Add(ctx, day, "  buy milk \n")
	require.NoError(t, err)
	assert.Equal(t, "buy milk", task.Text)
	assert.False(t, task.Completed)
	assert.Nil(t, task.CompletedAt)

	tasks, err := f.store.Load(ctx, day)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)
	assert.Equal(t, "buy milk", tasks[0].Text)
	assert.True(t, task.CreatedAt.Equal(tasks[0].CreatedAt))
}

func TestAddIsNewestFirstWithUniqueIDs(t *testing.T) {
	f := newFixture(t, storage.NewMemory())
	ctx := context.Background()

	seen := map[string]bool{}
	for _, text := range []string{"one", "two", "three"} {
		task, err := f.store.Add(ctx, day, text)
		require.NoError(t, err)
		assert.False(t, seen[task.ID], "duplicate id %s", task.ID)
		seen[task.ID] = true
	}
	tasks, _ := f.store.Load(ctx, day)
	assert.Equal(t, []string{"three", "two", "one"}, texts(tasks))
}

func TestAddRetriesCollidingID(t *testing.T) {
	ids := []string{"dup", "dup", "fresh"}
	f := newFixture(t, storage.NewMemory(), WithIDGenerator(func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}))
	ctx := context.Background()

	first, err := f.store.Add(ctx, day, "a")
	require.NoError(t, err)
	second, err := f.store.Add(ctx, day, "b")
	require.NoError(t, err)
	assert.Equal(t, "dup", first.ID)
	assert.Equal(t, "fresh", second.ID)
}

func TestAddValidation(t *testing.T) {
	kv := storage.NewMemory()
	f := newFixture(t, kv)
	ctx := context.Background()

	tests := []struct {
		name       string
		text       string
		constraint string
	}{
		{"empty", "", apperr.ConstraintRequired},
		{"blank", "   \t", apperr.ConstraintRequired},
		{"too long", strings.Repeat("x", MaxTextLength+1), apperr.ConstraintMaxLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.store.Add(ctx, day, tt.text)
			var ve *apperr.ValidationError
			require.True(t, errors.As(err, &ve), "err = %v", err)
			assert.Equal(t, tt.constraint, ve.Constraint)
			assert.Equal(t, "text", ve.Field)
		})
	}

	_, err := kv.Get(PlansKey)
	assert.True(t, errors.Is(err, apperr.ErrNotFound), "storage must be untouched")
}

func TestAddAcceptsLimitInCharacters(t *testing.T) {
	f := newFixture(t, storage.NewMemory())
	text := strings.Repeat("ğ", MaxTextLength)
	task, err := f.store.Add(context.Background(), day, text)
	require.NoError(t, err)
	assert.Equal(t, text, task.Text)
}

func TestInvalidDateRejected(t *testing.T) {
	f := newFixture(t, storage.NewMemory())
	ctx := context.Background()

	_, err := f.store.Add(ctx, "2026-02-30", "x")
	assert.True(t, errors.Is(err, apperr.ErrInvalidDate))
	_, err = f.store.Load(ctx, "")
	assert.True(t, errors.Is(err, apperr.ErrInvalidDate))
}

func TestToggleCompletionRepositions(t *testing.T) {
	f := newFixture(t, storage.NewMemory())
	ctx := context.Background()
	_, _ = f.store.Add(ctx, day, "c")
	b, _ := f.store.Add(ctx, day, "b")
	a, _ := f.store.Add(ctx, day, "a")
	// bucket: a b c

	tasks, err := f.store.ToggleCompletion(ctx, day, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, texts(tasks))
	assert.True(t, tasks[2].Completed)
	require.NotNil(t, tasks[2].CompletedAt)

	tasks, _ = f.store.ToggleCompletion(ctx, day, b.ID)
	assert.Equal(t, []string{"c", "a", "b"}, texts(tasks))

	tasks, _ = f.store.ToggleCompletion(ctx, day, a.ID)
	assert.Equal(t, []string{"a", "c", "b"}, texts(tasks))
	assert.False(t, tasks[0].Completed)
	assert.Nil(t, tasks[0].CompletedAt)

	loaded, _ := f.store.Load(ctx, day)
	assert.Equal(t, texts(tasks), texts(loaded))
}

func TestToggleTwiceRestoresState(t *testing.T) {
	f := newFixture(t, storage.NewMemory())
	ctx := context.Background()
	task, _ := f.store.Add(ctx, day, "water plants")

	_, err := f.store.ToggleCompletion(ctx, day, task.ID)
	require.NoError(t, err)
	tasks, err := f.store.ToggleCompletion(ctx, day, task.ID)
	require.NoError(t, err)

	require.Len(t, tasks, 1)
	assert.False(t, tasks[0].Completed)
	assert.Nil(t, tasks[0].CompletedAt)
}

func TestCompletedAtMatchesCompleted(t *testing.T) {
	f := newFixture(t, storage.NewMemory())
	ctx := context.Background()
	for _, s := range []string{"a", "b", "c", "d"} {
		_, _ = f.store.Add(ctx, day, s)
	}
	tasks, _ := f.store.Load(ctx, day)
	_, _ = f.store.ToggleCompletion(ctx, day, tasks[1].ID)
	_, _ = f.store.ToggleCompletion(ctx, day, tasks[3].ID)
	_, _ = f.store.ToggleCompletion(ctx, day, tasks[1].ID)

	loaded, _ := f.store.Load(ctx, day)
	for _, task := range loaded {
		assert.Equal(t, task.Completed, task.CompletedAt != nil, task.Text)
	}
}

func TestUnknownIDsAreNoops(t *testing.T) {
	kv := storage.NewMemory()
	f := newFixture(t, kv)
	ctx := context.Background()
	_, _ = f.store.Add(ctx, day, "only")
	before, _ := kv.Get(PlansKey)

	_, err := f.store.ToggleCompletion(ctx, day, "missing")
	require.NoError(t, err)
	_, err = f.store.Edit(ctx, day, "missing", "new text")
	require.NoError(t, err)
	_, err = f.store.Remove(ctx, day, "missing")
	require.NoError(t, err)

	after, _ := kv.Get(PlansKey)
	assert.Equal(t, string(before), string(after))
}

func TestEdit(t *testing.T) {
	f := newFixture(t, storage.NewMemory())
	ctx := context.Background()
	_, _ = f.store.Add(ctx, day, "second")
	first, _ := f.store.Add(ctx, day, "first")

	tasks, err := f.store.Edit(ctx, day, first.ID, "  first, edited ")
	require.NoError(t, err)
	assert.Equal(t, []string{"first, edited", "second"}, texts(tasks))
	assert.Equal(t, first.ID, tasks[0].ID)
	assert.True(t, first.CreatedAt.Equal(tasks[0].CreatedAt))

	_, err = f.store.Edit(ctx, day, first.ID, " ")
	assert.True(t, apperr.IsValidation(err))
	_, err = f.store.Edit(ctx, day, first.ID, strings.Repeat("y", 201))
	assert.True(t, apperr.IsValidation(err))

	loaded, _ := f.store.Load(ctx, day)
	assert.Equal(t, "first, edited", loaded[0].Text)
}

func TestEditUnchangedDoesNotWrite(t *testing.T) {
	var saves int
	f := newFixture(t, storage.NewMemory(), WithChangeHook(func(string, []models.Task) { saves++ }))
	ctx := context.Background()
	task, _ := f.store.Add(ctx, day, "same")
	require.Equal(t, 1, saves)

	_, err := f.store.Edit(ctx, day, task.ID, "  same  ")
	require.NoError(t, err)
	assert.Equal(t, 1, saves)
}

func TestRemoveLastTaskPrunesDate(t *testing.T) {
	kv := storage.NewMemory()
	f := newFixture(t, kv)
	ctx := context.Background()
	keep, _ := f.store.Add(ctx, "2026-10-20", "tomorrow")
	gone, _ := f.store.Add(ctx, day, "today")

	tasks, err := f.store.Remove(ctx, day, gone.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	plans := storedPlans(t, kv)
	_, present := plans[day]
	assert.False(t, present, "empty bucket must be pruned")
	require.Len(t, plans["2026-10-20"], 1)
	assert.Equal(t, keep.ID, plans["2026-10-20"][0].ID)

	loaded, err := f.store.Load(ctx, day)
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestSaveKeepsOtherDates(t *testing.T) {
	kv := storage.NewMemory()
	f := newFixture(t, kv)
	ctx := context.Background()
	_, _ = f.store.Add(ctx, day, "mine")

	// Another writer adds a date after our load.
	other := New(kv)
	_, err := other.Add(ctx, "2026-11-01", "theirs")
	require.NoError(t, err)

	require.NoError(t, f.store.Save(ctx, day, []models.Task{{ID: "x", Text: "replaced", CreatedAt: f.clock}}))
	plans := storedPlans(t, kv)
	assert.Len(t, plans, 2)
	assert.Equal(t, "replaced", plans[day][0].Text)
}

func TestMalformedStorageLoadsEmpty(t *testing.T) {
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(PlansKey, []byte("{not json")))
	f := newFixture(t, kv)
	ctx := context.Background()

	tasks, err := f.store.Load(ctx, day)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
	assert.True(t, apperr.IsReadFailure(err))

	// The next mutation starts over from an empty mapping and reports that
	// the old data was discarded.
	task, err := f.store.Add(ctx, day, "fresh start")
	assert.True(t, apperr.IsReadFailure(err))
	assert.Equal(t, "fresh start", task.Text)
	tasks, err = f.store.Load(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh start"}, texts(tasks))
}

func TestWrongShapeIsReadFailure(t *testing.T) {
	kv := storage.NewMemory()
	require.NoError(t, kv.Set(PlansKey, []byte(`["2026-10-19"]`)))
	f := newFixture(t, kv)
	_, err := f.store.Load(context.Background(), day)
	assert.True(t, apperr.IsReadFailure(err))
}

func TestWriteFailureKeepsInMemoryState(t *testing.T) {
	kv := storage.WithQuota(storage.NewMemory(), 300)
	f := newFixture(t, kv)
	ctx := context.Background()

	_, err := f.store.Add(ctx, day, "fits")
	require.NoError(t, err)

	task, err := f.store.Add(ctx, day, strings.Repeat("z", 150))
	require.Error(t, err)
	assert.True(t, apperr.IsWriteFailure(err))
	assert.True(t, errors.Is(err, apperr.ErrQuotaExceeded))
	assert.Equal(t, strings.Repeat("z", 150), task.Text, "created task is still returned")

	tasks, err := f.store.Load(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, []string{"fits"}, texts(tasks))
}

func TestChangeHookReportsPrunedDate(t *testing.T) {
	var got []string
	f := newFixture(t, storage.NewMemory(), WithChangeHook(func(date string, tasks []models.Task) {
		got = append(got, fmt.Sprintf("%s:%d", date, len(tasks)))
	}))
	ctx := context.Background()
	task, _ := f.store.Add(ctx, day, "a")
	_, _ = f.store.Remove(ctx, day, task.ID)
	assert.Equal(t, []string{day + ":1", day + ":0"}, got)
}

func TestRecent(t *testing.T) {
	f := newFixture(t, storage.NewMemory())
	ctx := context.Background()
	dates := []string{"2026-10-01", "2026-10-19", "2026-09-30", "2026-12-24", "2026-10-05", "2026-10-02"}
	for _, d := range dates {
		_, err := f.store.Add(ctx, d, "task on "+d)
		require.NoError(t, err)
	}
	done, _ := f.store.Add(ctx, "2026-12-24", "second")
	_, _ = f.store.ToggleCompletion(ctx, "2026-12-24", done.ID)

	recent, err := f.store.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recent, DefaultRecentLimit)
	assert.Equal(t, "2026-12-24", recent[0].Date)
	assert.Equal(t, 2, recent[0].Total)
	assert.Equal(t, 1, recent[0].Completed)
	assert.Equal(t, "2026-10-01", recent[4].Date)

	recent, _ = f.store.Recent(ctx, 2)
	assert.Len(t, recent, 2)
}

func TestEndToEnd(t *testing.T) {
	f := newFixture(t, storage.NewMemory())
	ctx := context.Background()

	milk, err := f.store.Add(ctx, day, "buy milk")
	require.NoError(t, err)
	_, err = f.store.Add(ctx, day, "pay bills")
	require.NoError(t, err)
	_, err = f.store.ToggleCompletion(ctx, day, milk.ID)
	require.NoError(t, err)

	tasks, err := f.store.Load(ctx, day)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	completed := taskview.Apply(tasks, taskview.Completed)
	require.Len(t, completed, 1)
	assert.Equal(t, "buy milk", completed[0].Text)
	assert.Equal(t, taskview.Statistics{Total: 2, Completed: 1, Pending: 1, CompletionRate: 50}, taskview.Stats(tasks))
}

func TestDefaultIDsAreUUIDs(t *testing.T) {
	s := New(storage.NewMemory())
	task, err := s.Add(context.Background(), day, "uuid")
	require.NoError(t, err)
	assert.Len(t, task.ID, 36)
}

func TestMutationsReportDiscardedData(t *testing.T) {
	kv := storage.NewMemory()
	f := newFixture(t, kv)
	ctx := context.Background()

	require.NoError(t, kv.Set(PlansKey, []byte("{broken")))
	tasks, err := f.store.ToggleCompletion(ctx, day, "missing")
	assert.True(t, apperr.IsReadFailure(err), "no-op still reports the unreadable data")
	assert.Empty(t, tasks)

	require.NoError(t, kv.Set(PlansKey, []byte("{broken")))
	_, err = f.store.Edit(ctx, day, "missing", "text")
	assert.True(t, apperr.IsReadFailure(err))

	require.NoError(t, kv.Set(PlansKey, []byte("{broken")))
	task, err := f.store.Add(ctx, day, "kept")
	assert.True(t, apperr.IsReadFailure(err))
	assert.False(t, apperr.IsWriteFailure(err))
	assert.Equal(t, []string{"kept"}, texts(storedPlans(t, kv)[day]))

	// Once the data is readable again, mutations report no error.
	tasks, err = f.store.ToggleCompletion(ctx, day, task.ID)
	require.NoError(t, err)
	assert.True(t, tasks[0].Completed)
}

func textLengthSamples(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, metrics.TaskTextLength.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestTextLengthCountsOnlySavedTasks(t *testing.T) {
	f := newFixture(t, storage.WithQuota(storage.NewMemory(), 64))
	ctx := context.Background()

	before := textLengthSamples(t)
	_, err := f.store.Add(ctx, day, "this task does not fit in the storage budget")
	require.True(t, apperr.IsWriteFailure(err))
	_, err = f.store.Add(ctx, day, "   ")
	require.Error(t, err)
	assert.Equal(t, before, textLengthSamples(t))

	ok := newFixture(t, storage.NewMemory())
	_, err = ok.store.Add(ctx, day, "saved")
	require.NoError(t, err)
	assert.Equal(t, before+1, textLengthSamples(t))
}
