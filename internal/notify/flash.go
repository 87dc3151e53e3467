package notify

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

// FlashCookie carries one notification across a redirect.
const FlashCookie = "planner_flash"

// SetFlash stores n for the next page render.
func SetFlash(w http.ResponseWriter, n Notification) {
	raw, err := json.Marshal(n)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// PopFlash returns the pending notification, if any, and clears it.
func PopFlash(w http.ResponseWriter, r *http.Request) (*Notification, bool) {
	c, err := r.Cookie(FlashCookie)
	if err != nil {
		return nil, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil, false
	}
	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil || n.Message == "" {
		return nil, false
	}
	return &n, true
}
