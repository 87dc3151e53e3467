// Package models defines the domain types for the planner.
package models

import "time"

// DateLayout is the textual form of plan keys.
const DateLayout = "2006-01-02"

// Task is a single entry in a day's plan.
type Task struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
}

// Plans maps a date key to its ordered bucket of tasks.
type Plans map[string][]Task

// PlanSummary is a lightweight view of one date's bucket.
type PlanSummary struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
}

// Clone returns a deep copy of the bucket so callers can mutate it freely.
func Clone(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t
		if t.CompletedAt != nil {
			ts := *t.CompletedAt
			out[i].CompletedAt = &ts
		}
	}
	return out
}
