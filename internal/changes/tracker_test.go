package changes

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/planner/internal/models"
)

func tasks(texts ...string) []models.Task {
	out := make([]models.Task, len(texts))
	for i, s := range texts {
		out[i] = models.Task{ID: s, Text: s}
	}
	return out
}

func TestObserve(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, Created, tr.Observe("2026-10-19", tasks("a")))
	assert.Equal(t, "", tr.Observe("2026-10-19", tasks("a")))
	assert.Equal(t, Updated, tr.Observe("2026-10-19", tasks("a", "b")))
	assert.Equal(t, Deleted, tr.Observe("2026-10-19", nil))
	assert.Equal(t, "", tr.Observe("2026-10-19", nil))
}

func TestReconcile(t *testing.T) {
	tr := NewTracker()
	tr.Prime(models.Plans{
		"2026-10-18": tasks("old"),
		"2026-10-19": tasks("same"),
		"2026-10-20": tasks("before"),
	})

	var got []string
	tr.Reconcile(models.Plans{
		"2026-10-19": tasks("same"),
		"2026-10-20": tasks("after"),
		"2026-10-21": tasks("new"),
	}, func(kind, date string) {
		got = append(got, kind+":"+date)
	})
	sort.Strings(got)
	assert.Equal(t, []string{"created:2026-10-21", "deleted:2026-10-18", "updated:2026-10-20"}, got)
}

func TestHookSuppressesRepeats(t *testing.T) {
	tr := NewTracker()
	var got []string
	hook := tr.Hook(func(kind, date string) { got = append(got, kind) })

	hook("2026-10-19", tasks("a"))
	hook("2026-10-19", tasks("a"))
	// A later reload of the same content reports nothing.
	tr.Reconcile(models.Plans{"2026-10-19": tasks("a")}, func(kind, date string) { got = append(got, "reload:"+kind) })
	assert.Equal(t, []string{Created}, got)
}
