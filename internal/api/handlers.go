package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/checksum"
	"github.com/starford/planner/internal/format"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/planstore"
	"github.com/starford/planner/internal/prefs"
	"github.com/starford/planner/internal/taskview"
)

const maxBodyBytes = 64 << 10

// ThemeListener is told about theme changes.
type ThemeListener func(theme prefs.Theme)

// Handler holds API route handlers.
type Handler struct {
	store       *planstore.Store
	themes      *prefs.Themes
	locale      format.Locale
	recentLimit int
	now         func() time.Time
	onTheme     ThemeListener
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithLocale sets the locale of date labels.
func WithLocale(l format.Locale) HandlerOption {
	return func(h *Handler) { h.locale = l }
}

// WithRecentLimit sets how many dates ListPlans returns by default.
func WithRecentLimit(n int) HandlerOption {
	return func(h *Handler) { h.recentLimit = n }
}

// WithClock sets the clock that defines "today".
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// WithThemeListener registers fn to run after the theme changes.
func WithThemeListener(fn ThemeListener) HandlerOption {
	return func(h *Handler) { h.onTheme = fn }
}

// NewHandler creates a new Handler.
func NewHandler(store *planstore.Store, themes *prefs.Themes, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:       store,
		themes:      themes,
		locale:      format.English,
		recentLimit: planstore.DefaultRecentLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// dateParam returns the {date} URL parameter after validating it.
func dateParam(r *http.Request) (string, time.Time, error) {
	raw := chi.URLParam(r, "date")
	d, err := format.ParseDate(raw)
	return raw, d, err
}

func decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req TaskTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return "", false
	}
	return req.Text, true
}

// ListPlans handles GET /api/plans.
//
//	@Summary		Recent dates that hold tasks, newest first
//	@Tags			plans
//	@Produce		json
//	@Param			limit	query		int	false	"Number of dates"
//	@Success		200		{object}	PlanListResponse
//	@Security		BearerAuth
//	@Router			/plans [get]
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = h.recentLimit
	}
	summaries, err := h.store.Recent(r.Context(), limit)
	if err != nil && !apperr.IsReadFailure(err) {
		slog.Error("list plans failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	today := h.now()
	items := make([]PlanSummaryItem, 0, len(summaries))
	for _, s := range summaries {
		d, _ := format.ParseDate(s.Date)
		items = append(items, PlanSummaryItem{PlanSummary: s, Label: format.FormatShortDate(d, today, h.locale)})
	}
	writeJSON(w, http.StatusOK, PlanListResponse{Plans: items})
}

// GetPlan handles GET /api/plans/{date}.
//
//	@Summary		One date's tasks through a filter, with statistics
//	@Tags			plans
//	@Produce		json
//	@Param			date	path		string	true	"Date (YYYY-MM-DD)"
//	@Param			filter	query		string	false	"Filter"	Enums(all, pending, completed)
//	@Success		200		{object}	PlanResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plans/{date} [get]
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	date, d, err := dateParam(r)
	if err != nil {
		writeOpError(w, "get plan", date, nil, err)
		return
	}
	filter, err := taskview.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("filter must be all, pending or completed"))
		return
	}

	tasks, err := h.store.Load(r.Context(), date)
	resp := PlanResponse{
		Date:   date,
		Label:  format.FormatRelativeDate(d, h.now(), h.locale),
		Filter: filter,
		Tasks:  taskview.Apply(tasks, filter),
		Stats:  taskview.Stats(tasks),
	}
	if err != nil {
		if !apperr.IsReadFailure(err) {
			writeOpError(w, "get plan", date, nil, err)
			return
		}
		resp.Warning = readWarning
	}

	if etag, err := checksum.SumJSON(resp); err == nil {
		etag = `"` + etag + `"`
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddTask handles POST /api/plans/{date}/tasks.
//
//	@Summary		Add a task to the front of a date's plan
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string			true	"Date (YYYY-MM-DD)"
//	@Param			body	body		TaskTextRequest	true	"Task text"
//	@Success		201		{object}	TaskCreatedResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Failure		507		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plans/{date}/tasks [post]
func (h *Handler) AddTask(w http.ResponseWriter, r *http.Request) {
	date, _, err := dateParam(r)
	if err != nil {
		writeOpError(w, "add task", date, nil, err)
		return
	}
	text, ok := decodeText(w, r)
	if !ok {
		return
	}
	task, err := h.store.Add(r.Context(), date, text)
	if operationFailed(err) {
		var bucket []models.Task
		if apperr.IsWriteFailure(err) {
			saved, _ := h.store.Load(r.Context(), date)
			bucket = append([]models.Task{task}, saved...)
		}
		writeOpError(w, "add task", date, bucket, err)
		return
	}
	resp := TaskCreatedResponse{Task: task}
	if err != nil {
		resp.Warning = readWarning
	}
	writeJSON(w, http.StatusCreated, resp)
}

// EditTask handles PUT /api/plans/{date}/tasks/{id}.
//
//	@Summary		Replace a task's text
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			date	path		string			true	"Date (YYYY-MM-DD)"
//	@Param			id		path		string			true	"Task ID"
//	@Param			body	body		TaskTextRequest	true	"New text"
//	@Success		200		{object}	TaskListResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/plans/{date}/tasks/{id} [put]
func (h *Handler) EditTask(w http.ResponseWriter, r *http.Request) {
	date, _, err := dateParam(r)
	if err != nil {
		writeOpError(w, "edit task", date, nil, err)
		return
	}
	text, ok := decodeText(w, r)
	if !ok {
		return
	}
	tasks, err := h.store.Edit(r.Context(), date, chi.URLParam(r, "id"), text)
	if operationFailed(err) {
		writeOpError(w, "edit task", date, tasks, err)
		return
	}
	writeJSON(w, http.StatusOK, bucketResponse(date, tasks, err))
}

// ToggleTask handles POST /api/plans/{date}/tasks/{id}/toggle.
//
//	@Summary		Flip a task between pending and completed
//	@Tags			tasks
//	@Produce		json
//	@Param			date	path		string	true	"Date (YYYY-MM-DD)"
//	@Param			id		path		string	true	"Task ID"
//	@Success		200		{object}	TaskListResponse
//	@Security		BearerAuth
//	@Router			/plans/{date}/tasks/{id}/toggle [post]
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	date, _, err := dateParam(r)
	if err != nil {
		writeOpError(w, "toggle task", date, nil, err)
		return
	}
	tasks, err := h.store.ToggleCompletion(r.Context(), date, chi.URLParam(r, "id"))
	if operationFailed(err) {
		writeOpError(w, "toggle task", date, tasks, err)
		return
	}
	writeJSON(w, http.StatusOK, bucketResponse(date, tasks, err))
}

// RemoveTask handles DELETE /api/plans/{date}/tasks/{id}.
//
//	@Summary		Delete a task
//	@Tags			tasks
//	@Produce		json
//	@Param			date	path		string	true	"Date (YYYY-MM-DD)"
//	@Param			id		path		string	true	"Task ID"
//	@Success		200		{object}	TaskListResponse
//	@Security		BearerAuth
//	@Router			/plans/{date}/tasks/{id} [delete]
func (h *Handler) RemoveTask(w http.ResponseWriter, r *http.Request) {
	date, _, err := dateParam(r)
	if err != nil {
		writeOpError(w, "remove task", date, nil, err)
		return
	}
	tasks, err := h.store.Remove(r.Context(), date, chi.URLParam(r, "id"))
	if operationFailed(err) {
		writeOpError(w, "remove task", date, tasks, err)
		return
	}
	writeJSON(w, http.StatusOK, bucketResponse(date, tasks, err))
}

// GetTheme handles GET /api/theme.
func (h *Handler) GetTheme(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: string(h.themes.Get())})
}

// PutTheme handles PUT /api/theme.
func (h *Handler) PutTheme(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	theme, err := prefs.ParseTheme(req.Theme)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody("theme must be light or dark"))
		return
	}
	if err := h.themes.Set(theme); err != nil {
		writeOpError(w, "set theme", "", nil, err)
		return
	}
	if h.onTheme != nil {
		h.onTheme(theme)
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: string(theme)})
}

// ResetTheme handles DELETE /api/theme.
func (h *Handler) ResetTheme(w http.ResponseWriter, r *http.Request) {
	if err := h.themes.Reset(); err != nil {
		writeOpError(w, "reset theme", "", nil, err)
		return
	}
	theme := h.themes.Get()
	if h.onTheme != nil {
		h.onTheme(theme)
	}
	writeJSON(w, http.StatusOK, ThemeResponse{Theme: string(theme)})
}
