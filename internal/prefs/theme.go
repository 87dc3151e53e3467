// Package prefs stores user preferences that live beside the plan data.
package prefs

import (
	"errors"
	"fmt"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/storage"
)

// ThemeKey is the storage key of the theme preference.
const ThemeKey = "theme"

// Theme is the page color scheme.
type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// ParseTheme accepts "light" or "dark".
func ParseTheme(s string) (Theme, error) {
	switch Theme(s) {
	case Light, Dark:
		return Theme(s), nil
	}
	return "", fmt.Errorf("prefs: unknown theme %q", s)
}

// Opposite returns the other theme.
func (t Theme) Opposite() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Themes reads and writes the theme preference.
type Themes struct {
	kv storage.Provider
}

// NewThemes returns a Themes backed by kv.
func NewThemes(kv storage.Provider) *Themes {
	return &Themes{kv: kv}
}

// Get returns the saved theme. Missing or unknown values read as Light.
func (s *Themes) Get() Theme {
	data, err := s.kv.Get(ThemeKey)
	if err != nil {
		return Light
	}
	t, err := ParseTheme(string(data))
	if err != nil {
		return Light
	}
	return t
}

// Set saves t.
func (s *Themes) Set(t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	if err := s.kv.Set(ThemeKey, []byte(t)); err != nil {
		if errors.Is(err, apperr.ErrQuotaExceeded) {
			return &apperr.PersistenceWriteError{Key: ThemeKey, Err: err}
		}
		return fmt.Errorf("prefs: save theme: %w", err)
	}
	return nil
}

// Reset forgets the saved theme so Get falls back to Light.
func (s *Themes) Reset() error {
	if err := s.kv.Delete(ThemeKey); err != nil {
		return fmt.Errorf("prefs: reset theme: %w", err)
	}
	return nil
}

// Toggle switches to the opposite theme and returns it.
func (s *Themes) Toggle() (Theme, error) {
	next := s.Get().Opposite()
	return next, s.Set(next)
}
