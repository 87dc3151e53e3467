package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/plans", h.ListPlans)
	r.Route("/plans/{date}", func(r chi.Router) {
		r.Get("/", h.GetPlan)
		r.Post("/tasks", h.AddTask)
		r.Put("/tasks/{id}", h.EditTask)
		r.Post("/tasks/{id}/toggle", h.ToggleTask)
		r.Delete("/tasks/{id}", h.RemoveTask)
	})

	r.Get("/theme", h.GetTheme)
	r.Put("/theme", h.PutTheme)
	r.Delete("/theme", h.ResetTheme)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
