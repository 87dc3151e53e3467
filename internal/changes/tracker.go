// Package changes detects which plan dates changed, whether the change came
// from this process or from another writer of the same storage.
package changes

import (
	"sync"

	"github.com/starford/planner/internal/checksum"
	"github.com/starford/planner/internal/models"
)

// Change kinds reported to callbacks.
const (
	Created = "created"
	Updated = "updated"
	Deleted = "deleted"
)

// EventCallback is called once per changed date.
type EventCallback func(kind, date string)

// Tracker remembers a checksum per date so that a bucket is reported only
// when its content actually differs from the last one seen.
type Tracker struct {
	mu   sync.Mutex
	sums map[string]string
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{sums: make(map[string]string)}
}

// Prime records plans as the baseline without reporting anything.
func (t *Tracker) Prime(plans models.Plans) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for date, tasks := range plans {
		if len(tasks) > 0 {
			t.sums[date] = sum(tasks)
		}
	}
}

// Observe records the current bucket for date and returns the change kind,
// or "" when nothing changed.
func (t *Tracker) Observe(date string, tasks []models.Task) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.observeLocked(date, tasks)
}

func (t *Tracker) observeLocked(date string, tasks []models.Task) string {
	prev, had := t.sums[date]
	if len(tasks) == 0 {
		if !had {
			return ""
		}
		delete(t.sums, date)
		return Deleted
	}
	cs := sum(tasks)
	if had && prev == cs {
		return ""
	}
	t.sums[date] = cs
	if had {
		return Updated
	}
	return Created
}

// Reconcile compares a full mapping against the tracked state, calling cb
// for every date that was created, updated, or removed.
func (t *Tracker) Reconcile(plans models.Plans, cb EventCallback) {
	t.mu.Lock()
	var kinds [][2]string
	for date := range t.sums {
		if len(plans[date]) == 0 {
			kinds = append(kinds, [2]string{t.observeLocked(date, nil), date})
		}
	}
	for date, tasks := range plans {
		if kind := t.observeLocked(date, tasks); kind != "" {
			kinds = append(kinds, [2]string{kind, date})
		}
	}
	t.mu.Unlock()

	if cb == nil {
		return
	}
	for _, k := range kinds {
		cb(k[0], k[1])
	}
}

// Hook adapts the tracker to a store change hook, reporting through cb.
func (t *Tracker) Hook(cb EventCallback) func(date string, tasks []models.Task) {
	return func(date string, tasks []models.Task) {
		if kind := t.Observe(date, tasks); kind != "" && cb != nil {
			cb(kind, date)
		}
	}
}

func sum(tasks []models.Task) string {
	cs, _ := checksum.SumJSON(tasks)
	return cs
}
