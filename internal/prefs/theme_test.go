package prefs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/planner/internal/storage"
)

func TestThemeDefaultsToLight(t *testing.T) {
	kv := storage.NewMemory()
	themes := NewThemes(kv)
	assert.Equal(t, Light, themes.Get())

	require.NoError(t, kv.Set(ThemeKey, []byte("purple")))
	assert.Equal(t, Light, themes.Get())
}

func TestThemeToggle(t *testing.T) {
	themes := NewThemes(storage.NewMemory())

	next, err := themes.Toggle()
	require.NoError(t, err)
	assert.Equal(t, Dark, next)
	assert.Equal(t, Dark, themes.Get())

	next, err = themes.Toggle()
	require.NoError(t, err)
	assert.Equal(t, Light, next)
}

func TestThemeSetRejectsUnknown(t *testing.T) {
	themes := NewThemes(storage.NewMemory())
	assert.Error(t, themes.Set("sepia"))
}

func TestThemeResetDeletesKey(t *testing.T) {
	kv := storage.NewMemory()
	themes := NewThemes(kv)
	require.NoError(t, themes.Set(Dark))

	require.NoError(t, themes.Reset())
	assert.Equal(t, Light, themes.Get())
	keys, err := kv.Keys()
	require.NoError(t, err)
	assert.NotContains(t, keys, ThemeKey)

	require.NoError(t, themes.Reset(), "resetting twice is fine")
}
