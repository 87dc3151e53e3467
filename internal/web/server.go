// Package web serves the server-rendered planner pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	texttemplate "text/template"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/planner/internal/format"
	"github.com/starford/planner/internal/planstore"
	"github.com/starford/planner/internal/prefs"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed templates/service-worker.js.tmpl
var serviceWorkerSrc string

//go:embed static
var staticFS embed.FS

// precached lists the same-origin assets the service worker installs.
var precached = []string{"/static/style.css", "/static/app.js"}

// ThemeListener is told about theme changes.
type ThemeListener func(theme prefs.Theme)

// Server renders the home and plans pages and handles their forms.
type Server struct {
	store        *planstore.Store
	themes       *prefs.Themes
	locale       format.Locale
	now          func() time.Time
	recentLimit  int
	cacheVersion string
	onTheme      ThemeListener
	logger       *slog.Logger
	authEnabled  bool
	token        string

	pages map[string]*template.Template
	sw    []byte
}

// Option configures a Server.
type Option func(*Server)

func WithLocale(l format.Locale) Option         { return func(s *Server) { s.locale = l } }
func WithClock(now func() time.Time) Option     { return func(s *Server) { s.now = now } }
func WithRecentLimit(n int) Option              { return func(s *Server) { s.recentLimit = n } }
func WithCacheVersion(v string) Option          { return func(s *Server) { s.cacheVersion = v } }
func WithThemeListener(fn ThemeListener) Option { return func(s *Server) { s.onTheme = fn } }
func WithLogger(l *slog.Logger) Option          { return func(s *Server) { s.logger = l } }

// New parses the page templates and renders the service worker.
func New(store *planstore.Store, themes *prefs.Themes, opts ...Option) (*Server, error) {
	s := &Server{
		store:        store,
		themes:       themes,
		locale:       format.English,
		now:          time.Now,
		recentLimit:  planstore.DefaultRecentLimit,
		cacheVersion: "planner-v1",
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.pages = make(map[string]*template.Template)
	for _, page := range []string{"index.html", "plans.html"} {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", page, err)
		}
		s.pages[page] = t
	}

	sw, err := texttemplate.New("sw").Parse(serviceWorkerSrc)
	if err != nil {
		return nil, fmt.Errorf("web: parse service worker: %w", err)
	}
	var buf bytes.Buffer
	err = sw.Execute(&buf, map[string]any{"CacheName": s.cacheVersion, "Assets": precached})
	if err != nil {
		return nil, fmt.Errorf("web: render service worker: %w", err)
	}
	s.sw = buf.Bytes()
	return s, nil
}

// Routes returns the page, form, and asset routes.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(s.requireToken)
		r.Get("/", s.home)
		r.Get("/plans", s.plans)
		r.Post("/plans/tasks", s.addTask)
		r.Post("/plans/tasks/{id}/toggle", s.toggleTask)
		r.Post("/plans/tasks/{id}/edit", s.editTask)
		r.Post("/plans/tasks/{id}/delete", s.deleteTask)
		r.Post("/theme/toggle", s.toggleTheme)
	})
	r.Get("/service-worker.js", s.serviceWorker)

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	return r
}

func (s *Server) render(w http.ResponseWriter, page string, data any) {
	var buf bytes.Buffer
	if err := s.pages[page].Execute(&buf, data); err != nil {
		s.logger.Error("render failed", slog.String("page", page), slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) serviceWorker(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(s.sw)
}
