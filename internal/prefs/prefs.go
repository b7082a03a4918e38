// Package prefs handles user preferences persistence: the UI theme and the
// display language, stored in ~/.config/examtie/prefs.toml.
package prefs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/breadtm/examtie/internal/store"
)

// Themes understood by the UI.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Languages the client can display.
const (
	LangEnglish = "en"
	LangThai    = "th"
)

type record struct {
	Theme    string `toml:"theme"`
	Language string `toml:"language"`
}

// Store holds the reactive theme and language values and writes every change
// back to disk.
type Store struct {
	path     string
	theme    *store.Store[string]
	language *store.Store[string]
}

// New loads preferences from path and resolves initial values: an explicit
// stored preference wins, then an environment hint, then the defaults (dark
// theme, English). A missing or corrupt file is not an error.
func New(path string) *Store {
	rec := load(path)

	s := &Store{
		path:     path,
		theme:    store.New(resolveTheme(rec.Theme)),
		language: store.New(resolveLanguage(rec.Language)),
	}

	s.theme.Subscribe(func(string) { s.persist() })
	s.language.Subscribe(func(string) { s.persist() })
	return s
}

// Theme returns the current theme name.
func (s *Store) Theme() string {
	return s.theme.Get()
}

// SetTheme switches the theme. Unknown names are ignored.
func (s *Store) SetTheme(theme string) {
	if theme != ThemeDark && theme != ThemeLight {
		return
	}
	s.theme.Set(theme)
}

// ToggleTheme flips between dark and light.
func (s *Store) ToggleTheme() {
	if s.theme.Get() == ThemeDark {
		s.theme.Set(ThemeLight)
		return
	}
	s.theme.Set(ThemeDark)
}

// SubscribeTheme registers fn to observe theme changes.
func (s *Store) SubscribeTheme(fn func(string)) func() {
	return s.theme.Subscribe(fn)
}

// Language returns the current language code.
func (s *Store) Language() string {
	return s.language.Get()
}

// SetLanguage switches the language. Unknown codes are ignored.
func (s *Store) SetLanguage(lang string) {
	if lang != LangEnglish && lang != LangThai {
		return
	}
	s.language.Set(lang)
}

// SubscribeLanguage registers fn to observe language changes.
func (s *Store) SubscribeLanguage(fn func(string)) func() {
	return s.language.Subscribe(fn)
}

func (s *Store) persist() {
	rec := record{
		Theme:    s.theme.Get(),
		Language: s.language.Get(),
	}
	data, err := toml.Marshal(rec)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(s.path, data, 0o644)
}

func load(path string) record {
	var rec record
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return record{}
		}
		return record{}
	}
	if err := toml.Unmarshal(data, &rec); err != nil {
		return record{}
	}
	return rec
}

func resolveTheme(stored string) string {
	switch stored {
	case ThemeDark, ThemeLight:
		return stored
	}
	return ThemeDark
}

func resolveLanguage(stored string) string {
	switch stored {
	case LangEnglish, LangThai:
		return stored
	}
	// No stored preference: fall back to the locale hint, then English.
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := strings.ToLower(os.Getenv(key)); strings.HasPrefix(v, "th") {
			return LangThai
		}
	}
	return LangEnglish
}
