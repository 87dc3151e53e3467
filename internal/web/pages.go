package web

import (
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/format"
	"github.com/starford/planner/internal/models"
	"github.com/starford/planner/internal/notify"
	"github.com/starford/planner/internal/planstore"
	"github.com/starford/planner/internal/prefs"
	"github.com/starford/planner/internal/taskview"
)

var funcs = template.FuncMap{
	"maxText": func() int { return planstore.MaxTextLength },
}

// quickDate is a shortcut button on the home page.
type quickDate struct {
	Label string
	Date  string
}

// recentPlan is one row of the home page's recent plans list.
type recentPlan struct {
	models.PlanSummary
	Label string
}

// filterTab is one of the filter links on the plans page.
type filterTab struct {
	Filter taskview.Filter
	Active bool
}

// pageState is everything a page needs, built fresh for each request.
type pageState struct {
	Theme        prefs.Theme
	Notification *notify.Notification
	Path         string

	// home
	Today  string
	Quick  []quickDate
	Recent []recentPlan

	// plans
	Date    string
	Label   string
	Filter  taskview.Filter
	Filters []filterTab
	Tasks   []models.Task
	Stats   taskview.Statistics
}

func (s *Server) newState(w http.ResponseWriter, r *http.Request) *pageState {
	st := &pageState{Theme: s.themes.Get(), Path: r.URL.RequestURI()}
	if n, ok := notify.PopFlash(w, r); ok {
		st.Notification = n
	}
	return st
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	st := s.newState(w, r)
	today := s.now()
	st.Today = format.DateKey(today)
	for _, q := range []struct {
		offset int
		label  string
	}{
		{0, format.RelativeLabel(today, today, s.locale)},
		{1, format.RelativeLabel(today.AddDate(0, 0, 1), today, s.locale)},
		{7, format.RelativeLabel(today.AddDate(0, 0, 7), today, s.locale)},
	} {
		st.Quick = append(st.Quick, quickDate{Label: q.label, Date: format.DateKey(today.AddDate(0, 0, q.offset))})
	}

	summaries, err := s.store.Recent(r.Context(), s.recentLimit)
	if err != nil && st.Notification == nil {
		n := notify.FromError(err)
		st.Notification = &n
	}
	for _, sum := range summaries {
		d, _ := format.ParseDate(sum.Date)
		st.Recent = append(st.Recent, recentPlan{PlanSummary: sum, Label: format.FormatShortDate(d, today, s.locale)})
	}
	s.render(w, "index.html", st)
}

func (s *Server) plans(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	d, err := format.ParseDate(date)
	if err != nil {
		notify.SetFlash(w, notify.InvalidDate())
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	filter, err := taskview.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		filter = taskview.All
	}

	st := s.newState(w, r)
	st.Date = date
	st.Label = format.FormatRelativeDate(d, s.now(), s.locale)
	st.Filter = filter
	for _, f := range taskview.Filters {
		st.Filters = append(st.Filters, filterTab{Filter: f, Active: f == filter})
	}

	tasks, err := s.store.Load(r.Context(), date)
	if err != nil {
		if !apperr.IsReadFailure(err) {
			s.logger.Error("load plan failed", slog.String("date", date), slog.String("error", err.Error()))
		}
		n := notify.FromError(err)
		st.Notification = &n
	}
	st.Tasks = taskview.Apply(tasks, filter)
	st.Stats = taskview.Stats(tasks)
	s.render(w, "plans.html", st)
}

// formTarget reads the date and filter fields every task form carries.
func formTarget(r *http.Request) (date string, filter taskview.Filter, ok bool) {
	date = r.PostFormValue("date")
	if !format.IsValidCalendarDate(date) {
		return date, taskview.All, false
	}
	filter, err := taskview.ParseFilter(r.PostFormValue("filter"))
	if err != nil {
		filter = taskview.All
	}
	return date, filter, true
}

func plansURL(date string, filter taskview.Filter) string {
	q := url.Values{"date": {date}}
	if filter != taskview.All {
		q.Set("filter", string(filter))
	}
	return "/plans?" + q.Encode()
}

// finish stores the outcome notification and redirects back to the plan.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, date string, filter taskview.Filter, n notify.Notification, err error) {
	if err != nil {
		switch {
		case apperr.IsValidation(err):
		case apperr.IsReadFailure(err):
			s.logger.Warn("plan operation discarded unreadable data", slog.String("date", date))
		default:
			s.logger.Error("plan operation failed", slog.String("date", date), slog.String("error", err.Error()))
		}
		n = notify.FromError(err)
	}
	notify.SetFlash(w, n)
	http.Redirect(w, r, plansURL(date, filter), http.StatusSeeOther)
}

func (s *Server) invalidForm(w http.ResponseWriter, r *http.Request) {
	notify.SetFlash(w, notify.InvalidDate())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) addTask(w http.ResponseWriter, r *http.Request) {
	date, filter, ok := formTarget(r)
	if !ok {
		s.invalidForm(w, r)
		return
	}
	_, err := s.store.Add(r.Context(), date, r.PostFormValue("text"))
	n := notify.TaskAdded()
	if filter == taskview.Completed {
		n = notify.TaskAddedHidden()
	}
	s.finish(w, r, date, filter, n, err)
}

func (s *Server) toggleTask(w http.ResponseWriter, r *http.Request) {
	date, filter, ok := formTarget(r)
	if !ok {
		s.invalidForm(w, r)
		return
	}
	id := chi.URLParam(r, "id")
	tasks, err := s.store.ToggleCompletion(r.Context(), date, id)
	completed := false
	for _, t := range tasks {
		if t.ID == id {
			completed = t.Completed
		}
	}
	s.finish(w, r, date, filter, notify.TaskToggled(completed), err)
}

func (s *Server) editTask(w http.ResponseWriter, r *http.Request) {
	date, filter, ok := formTarget(r)
	if !ok {
		s.invalidForm(w, r)
		return
	}
	_, err := s.store.Edit(r.Context(), date, chi.URLParam(r, "id"), r.PostFormValue("text"))
	s.finish(w, r, date, filter, notify.TaskUpdated(), err)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	date, filter, ok := formTarget(r)
	if !ok {
		s.invalidForm(w, r)
		return
	}
	_, err := s.store.Remove(r.Context(), date, chi.URLParam(r, "id"))
	s.finish(w, r, date, filter, notify.TaskDeleted(), err)
}

func (s *Server) toggleTheme(w http.ResponseWriter, r *http.Request) {
	next, err := s.themes.Toggle()
	n := notify.ThemeChanged(string(next))
	if err != nil {
		s.logger.Error("save theme failed", slog.String("error", err.Error()))
		n = notify.FromError(err)
	} else if s.onTheme != nil {
		s.onTheme(next)
	}
	notify.SetFlash(w, n)
	http.Redirect(w, r, safeReturn(r.PostFormValue("return")), http.StatusSeeOther)
}

// safeReturn keeps redirects on this site.
func safeReturn(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
