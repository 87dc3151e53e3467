package web

import (
	"net/http"

	"github.com/starford/planner/internal/api"
)

// WithAuth gates pages and forms behind the API token. A browser opens a
// session once with ?token=<token>; the token is then kept in an HttpOnly
// cookie that the event stream also accepts.
func WithAuth(enabled bool, token string) Option {
	return func(s *Server) {
		s.authEnabled = enabled
		s.token = token
	}
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authEnabled {
			next.ServeHTTP(w, r)
			return
		}

		q := r.URL.Query()
		if r.Method == http.MethodGet && q.Has("token") {
			if !api.TokenMatches(q.Get("token"), s.token) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     api.TokenCookie,
				Value:    s.token,
				Path:     "/",
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteStrictMode,
			})
			q.Del("token")
			u := *r.URL
			u.RawQuery = q.Encode()
			http.Redirect(w, r, u.RequestURI(), http.StatusSeeOther)
			return
		}

		c, err := r.Cookie(api.TokenCookie)
		if err != nil || !api.TokenMatches(c.Value, s.token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
