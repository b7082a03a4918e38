package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures everything the client needs to reach the ExamTie API and
// to find its local files.
type Config struct {
	APIBaseURL string
	StateDir   string
	PrefsPath  string
}

const (
	defaultAPIBaseURL = "https://examtieapi.breadtm.xyz"
	defaultStateDir   = "~/.local/share/examtie"
	defaultPrefsPath  = "~/.config/examtie/prefs.toml"
)

// Load reads configuration from a .env file (when present) and the process
// environment, falling back to defaults. envPath overrides the .env location;
// empty means ./.env.
func Load(envPath string) (Config, error) {
	if strings.TrimSpace(envPath) != "" {
		if err := godotenv.Load(envPath); err != nil {
			return Config{}, fmt.Errorf("load env file %s: %w", envPath, err)
		}
	} else {
		// Missing ./.env is fine; the environment alone is enough.
		_ = godotenv.Load()
	}

	cfg := Config{
		APIBaseURL: getEnv("EXAMTIE_API_URL", defaultAPIBaseURL),
		StateDir:   getEnv("EXAMTIE_STATE_DIR", defaultStateDir),
		PrefsPath:  getEnv("EXAMTIE_PREFS_PATH", defaultPrefsPath),
	}

	stateDir, err := expandPath(cfg.StateDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve state dir: %w", err)
	}
	cfg.StateDir = stateDir

	prefsPath, err := expandPath(cfg.PrefsPath)
	if err != nil {
		return Config{}, fmt.Errorf("resolve prefs path: %w", err)
	}
	cfg.PrefsPath = prefsPath

	return cfg, nil
}

// TokenPath returns the path of the persisted token record.
func (c Config) TokenPath() string {
	return filepath.Join(c.StateDir, "token.toml")
}

// RoleCachePath returns the path of the persisted role cache.
func (c Config) RoleCachePath() string {
	return filepath.Join(c.StateDir, "roles.toml")
}

// SyncPath returns the path of the cross-process bookmark sync slot.
func (c Config) SyncPath() string {
	return filepath.Join(c.StateDir, "bookmark-sync.json")
}

// ProviderPath returns the path of the persisted provider configuration.
func (c Config) ProviderPath() string {
	return filepath.Join(c.StateDir, "provider.toml")
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
