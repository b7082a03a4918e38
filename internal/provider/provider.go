// Package provider persists the bring-your-own AI-provider configuration
// used by the grading endpoints.
package provider

import (
	"net/http"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/breadtm/examtie/internal/store"
)

// Config selects and configures the AI provider. All fields are optional;
// the server falls back to its own default provider when headers are absent.
type Config struct {
	Provider string `toml:"provider"` // azure, gemini, openrouter, cerebras, openai_compatible, ollama
	APIKey   string `toml:"api_key"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
}

// Store holds the reactive provider configuration and writes changes back to
// disk.
type Store struct {
	path  string
	state *store.Store[Config]
}

// New loads the configuration from path. A missing or corrupt file loads as
// the zero config.
func New(path string) *Store {
	var cfg Config
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			cfg = Config{}
		}
	}

	s := &Store{path: path, state: store.New(cfg)}
	s.state.Subscribe(func(Config) { s.persist() })
	return s
}

// Current returns the provider configuration.
func (s *Store) Current() Config {
	return s.state.Get()
}

// Set replaces the provider configuration.
func (s *Store) Set(cfg Config) {
	s.state.Set(cfg)
}

// Subscribe registers fn to observe configuration changes.
func (s *Store) Subscribe(fn func(Config)) func() {
	return s.state.Subscribe(fn)
}

// Headers returns the request headers advertising the configured provider.
func (c Config) Headers() http.Header {
	h := http.Header{}
	if c.Provider != "" {
		h.Set("X-Provider", c.Provider)
	}
	if c.APIKey != "" {
		h.Set("X-API-Key", c.APIKey)
	}
	if c.Model != "" {
		h.Set("X-Model", c.Model)
	}
	if c.BaseURL != "" {
		h.Set("X-Base-Url", c.BaseURL)
	}
	return h
}

func (s *Store) persist() {
	cfg := s.state.Get()
	data, err := toml.Marshal(cfg)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return
	}
	// The file may hold an API key; keep it private to the user.
	_ = os.WriteFile(s.path, data, 0o600)
}
