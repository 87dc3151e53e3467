// Package taskview derives filtered lists and statistics from a plan bucket.
// Everything here is a pure function of its input.
package taskview

import (
	"fmt"

	"github.com/starford/planner/internal/models"
)

// Filter selects which tasks of a bucket are visible.
type Filter string

// Filter modes.
const (
	All       Filter = "all"
	Pending   Filter = "pending"
	Completed Filter = "completed"
)

// Filters lists every mode in display order.
var Filters = []Filter{All, Pending, Completed}

// ParseFilter maps a query value to a Filter. An empty value means All.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", All:
		return All, nil
	case Pending:
		return Pending, nil
	case Completed:
		return Completed, nil
	}
	return "", fmt.Errorf("taskview: unknown filter %q", s)
}

// Apply returns the tasks matching mode, preserving bucket order.
// The result never aliases the input slice.
func Apply(tasks []models.Task, mode Filter) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		switch mode {
		case Pending:
			if t.Completed {
				continue
			}
		case Completed:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// Statistics summarises a bucket.
type Statistics struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	Pending        int `json:"pending"`
	CompletionRate int `json:"completionRate"`
}

// Stats counts tasks and computes the completion percentage,
// rounded half up to the nearest integer.
func Stats(tasks []models.Task) Statistics {
	s := Statistics{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		}
	}
	s.Pending = s.Total - s.Completed
	if s.Total > 0 {
		s.CompletionRate = (200*s.Completed + s.Total) / (2 * s.Total)
	}
	return s
}

// Summarise reduces a bucket to its date summary.
func Summarise(date string, tasks []models.Task) models.PlanSummary {
	s := Stats(tasks)
	return models.PlanSummary{Date: date, Total: s.Total, Completed: s.Completed}
}
