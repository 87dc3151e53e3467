// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes planner tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/format"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/planstore"
	"github.com/starford/planner/internal/taskview"
)

// TaskFormatURI is the resource describing task and date conventions.
const TaskFormatURI = "planner://task-format"

// Server wraps the MCP server with planner tools.
type Server struct {
	mcp    *server.MCPServer
	store  *planstore.Store
	locale format.Locale
	now    func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLocale sets the locale of date labels in tool output.
func WithLocale(l format.Locale) Option {
	return func(s *Server) { s.locale = l }
}

// WithClock sets the clock that resolves an omitted date to today.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a new MCP server with all planner tools registered.
func New(store *planstore.Store, version string, opts ...Option) *Server {
	s := &Server{store: store, locale: format.English, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer(
		"Planner",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	dateArg := mcp.WithString("date", mcp.Description("Plan date as YYYY-MM-DD; defaults to today"))

	s.mcp.AddTool(mcp.NewTool("list_plans",
		mcp.WithDescription("List the most recent dates that have tasks, newest first, with task counts."),
		mcp.WithNumber("limit", mcp.Description("Number of dates to return (default 5)")),
	), s.listPlans)

	s.mcp.AddTool(mcp.NewTool("get_plan",
		mcp.WithDescription("Return one date's tasks and completion statistics."),
		dateArg,
		mcp.WithString("filter", mcp.Description("all, pending or completed"), mcp.Enum("all", "pending", "completed")),
	), s.getPlan)

	s.mcp.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Add a pending task to the top of a date's plan. "+
			"Text is trimmed and must be 1 to 200 characters. Read "+TaskFormatURI+" first."),
		dateArg,
		mcp.WithString("text", mcp.Required(), mcp.Description("Task text")),
	), s.addTask)

	s.mcp.AddTool(mcp.NewTool("edit_task",
		mcp.WithDescription("Replace the text of an existing task."),
		dateArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Task ID")),
		mcp.WithString("text", mcp.Required(), mcp.Description("New task text")),
	), s.editTask)

	s.mcp.AddTool(mcp.NewTool("toggle_task",
		mcp.WithDescription("Mark a task completed, or pending again if it was completed."),
		dateArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Task ID")),
	), s.toggleTask)

	s.mcp.AddTool(mcp.NewTool("remove_task",
		mcp.WithDescription("Delete a task. A date whose last task is removed disappears from list_plans."),
		dateArg,
		mcp.WithString("id", mcp.Required(), mcp.Description("Task ID")),
	), s.removeTask)

	s.mcp.AddTool(mcp.NewTool("get_task_format",
		mcp.WithDescription("Returns the task and date conventions. Call this before adding or editing tasks."),
	), s.getTaskFormat)

	s.mcp.AddResource(
		mcp.NewResource(TaskFormatURI, "Task Format",
			mcp.WithResourceDescription("Task text limits, date format and ordering rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTaskFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// planResult is the JSON payload of get_plan and the mutating tools.
type planResult struct {
	Date    string              `json:"date"`
	Label   string              `json:"label"`
	Tasks   []models.Task       `json:"tasks"`
	Stats   taskview.Statistics `json:"stats"`
	Warning string              `json:"warning,omitempty"`
}

// addResult is the payload of add_task.
type addResult struct {
	models.Task
	Warning string `json:"warning,omitempty"`
}

const readWarning = "stored tasks could not be read; starting from an empty plan"

func (s *Server) date(req mcp.CallToolRequest) (string, time.Time, error) {
	raw := req.GetString("date", "")
	if raw == "" {
		today := s.now()
		return format.DateKey(today), today, nil
	}
	d, err := format.ParseDate(raw)
	return raw, d, err
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func errorResult(err error) *mcp.CallToolResult {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		return mcp.NewToolResultError(ve.Error())
	case errors.Is(err, apperr.ErrInvalidDate):
		return mcp.NewToolResultError("invalid date, expected YYYY-MM-DD")
	case apperr.IsWriteFailure(err):
		return mcp.NewToolResultError("tasks could not be saved: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listPlans(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	summaries, err := s.store.Recent(ctx, req.GetInt("limit", planstore.DefaultRecentLimit))
	if err != nil && !apperr.IsReadFailure(err) {
		return errorResult(err), nil
	}
	if len(summaries) == 0 {
		return mcp.NewToolResultText("no plans found"), nil
	}
	return jsonResult(summaries), nil
}

func (s *Server) getPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, d, err := s.date(req)
	if err != nil {
		return errorResult(err), nil
	}
	filter, err := taskview.ParseFilter(req.GetString("filter", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tasks, err := s.store.Load(ctx, date)
	res := planResult{
		Date:  date,
		Label: format.FormatRelativeDate(d, s.now(), s.locale),
		Tasks: taskview.Apply(tasks, filter),
		Stats: taskview.Stats(tasks),
	}
	if err != nil {
		if !apperr.IsReadFailure(err) {
			return errorResult(err), nil
		}
		res.Warning = readWarning
	}
	return jsonResult(res), nil
}

func (s *Server) addTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, _, err := s.date(req)
	if err != nil {
		return errorResult(err), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	task, err := s.store.Add(ctx, date, text)
	if err != nil && !apperr.IsReadFailure(err) {
		return errorResult(err), nil
	}
	res := addResult{Task: task}
	if err != nil {
		res.Warning = readWarning
	}
	return jsonResult(res), nil
}

func (s *Server) editTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.mutate(ctx, req, func(date, id string) error {
		_, err := s.store.Edit(ctx, date, id, text)
		return err
	})
}

func (s *Server) toggleTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.mutate(ctx, req, func(date, id string) error {
		_, err := s.store.ToggleCompletion(ctx, date, id)
		return err
	})
}

func (s *Server) removeTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.mutate(ctx, req, func(date, id string) error {
		_, err := s.store.Remove(ctx, date, id)
		return err
	})
}

// mutate resolves the date and id arguments, runs fn and reports the
// resulting bucket.
func (s *Server) mutate(ctx context.Context, req mcp.CallToolRequest, fn func(date, id string) error) (*mcp.CallToolResult, error) {
	date, _, err := s.date(req)
	if err != nil {
		return errorResult(err), nil
	}
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	before, readErr := s.store.Load(ctx, date)
	if err := fn(date, id); err != nil && !apperr.IsReadFailure(err) {
		return errorResult(err), nil
	}
	if readErr != nil {
		return mcp.NewToolResultError(readWarning), nil
	}
	if !slices.ContainsFunc(before, func(t models.Task) bool { return t.ID == id }) {
		return mcp.NewToolResultError(fmt.Sprintf("task %s not found on %s", id, date)), nil
	}
	return s.getPlan(ctx, req)
}

func (s *Server) getTaskFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TaskFormatContract), nil
}

func (s *Server) readTaskFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      TaskFormatURI,
			MIMEType: "text/markdown",
			Text:     TaskFormatContract,
		},
	}, nil
}
