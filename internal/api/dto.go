package api

import (
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/taskview"
)

// TaskTextRequest is the request body for adding or editing a task.
type TaskTextRequest struct {
	Text string `json:"text" example:"buy milk" validate:"required"`
}

// ThemeRequest is the request body for changing the theme.
type ThemeRequest struct {
	Theme string `json:"theme" example:"dark" validate:"required"`
}

// ThemeResponse reports the active theme.
type ThemeResponse struct {
	Theme string `json:"theme" example:"light" validate:"required"`
}

// PlanResponse is one date's plan as seen through a filter.
type PlanResponse struct {
	Date    string              `json:"date" example:"2026-10-19" validate:"required"`
	Label   string              `json:"label" example:"Monday, October 19, 2026 (Today)" validate:"required"`
	Filter  taskview.Filter     `json:"filter" example:"all" validate:"required"`
	Tasks   []models.Task       `json:"tasks" validate:"required"`
	Stats   taskview.Statistics `json:"stats" validate:"required"`
	Warning string              `json:"warning,omitempty"`
}

// TaskListResponse is the bucket after a mutation.
type TaskListResponse struct {
	Date    string              `json:"date" example:"2026-10-19" validate:"required"`
	Tasks   []models.Task       `json:"tasks" validate:"required"`
	Stats   taskview.Statistics `json:"stats" validate:"required"`
	Warning string              `json:"warning,omitempty"`
}

// TaskCreatedResponse is the task returned by AddTask.
type TaskCreatedResponse struct {
	models.Task
	Warning string `json:"warning,omitempty"`
}

// PlanSummaryItem is one entry of the recent plans list.
type PlanSummaryItem struct {
	models.PlanSummary
	Label string `json:"label" example:"Tomorrow"`
}

// PlanListResponse wraps the recent plans list.
type PlanListResponse struct {
	Plans []PlanSummaryItem `json:"plans" validate:"required"`
}
