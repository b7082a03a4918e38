// Package tokenstore persists the bearer token between runs.
//
// The token lives in a TOML record alongside its creation and expiry times.
// A legacy bare-token file is still read as a fallback and mirrored on save
// so older builds keep working against the same state directory. Expiry is
// lazy: no timer runs here, expired records are purged on the next read.
// Storage trouble is never fatal; a store that cannot read or write simply
// behaves as if no token exists.
package tokenstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultTTL is the token lifetime used when callers do not supply one:
// 43200 minutes, thirty days.
const DefaultTTL = 43200 * time.Minute

// expiringSoonWindow is how close to expiry a token must be before Info
// reports it as expiring soon.
const expiringSoonWindow = 24 * time.Hour

// Info describes a stored, still-valid token.
type Info struct {
	Token        string
	ExpiresAt    time.Time
	ExpiringSoon bool
}

// Store reads and writes the persisted token record.
type Store struct {
	recordPath string
	legacyPath string
	now        func() time.Time
}

type record struct {
	Token     string    `toml:"token"`
	CreatedAt time.Time `toml:"created_at"`
	ExpiresAt time.Time `toml:"expires_at"`
}

// New builds a Store keeping its record at recordPath. The legacy bare-token
// file sits next to it under the name "token".
func New(recordPath string) *Store {
	return &Store{
		recordPath: recordPath,
		legacyPath: filepath.Join(filepath.Dir(recordPath), "token"),
		now:        time.Now,
	}
}

// Save persists the token with the given lifetime. Zero or negative ttl uses
// DefaultTTL. The bare token is mirrored to the legacy file.
func (s *Store) Save(token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()
	rec := record{
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	data, err := toml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal token record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.recordPath), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := os.WriteFile(s.recordPath, data, 0o600); err != nil {
		return fmt.Errorf("write token record: %w", err)
	}
	if err := os.WriteFile(s.legacyPath, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write legacy token: %w", err)
	}
	return nil
}

// Load returns the stored token when one exists and has not expired. An
// expired record purges both files. A corrupt record purges itself and falls
// back to the legacy file.
func (s *Store) Load() (string, bool) {
	info, ok := s.read()
	if !ok {
		return "", false
	}
	return info.Token, true
}

// Info is Load plus expiry metadata.
func (s *Store) Info() (Info, bool) {
	return s.read()
}

// Clear removes both the record and the legacy file.
func (s *Store) Clear() {
	_ = os.Remove(s.recordPath)
	_ = os.Remove(s.legacyPath)
}

func (s *Store) read() (Info, bool) {
	data, err := os.ReadFile(s.recordPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Info{}, false
		}
		return s.readLegacy()
	}

	var rec record
	if err := toml.Unmarshal(data, &rec); err != nil || strings.TrimSpace(rec.Token) == "" {
		// Corrupt record: self-heal by dropping it, then try the legacy file.
		_ = os.Remove(s.recordPath)
		return s.readLegacy()
	}

	now := s.now()
	if now.After(rec.ExpiresAt) {
		s.Clear()
		return Info{}, false
	}

	return Info{
		Token:        rec.Token,
		ExpiresAt:    rec.ExpiresAt,
		ExpiringSoon: rec.ExpiresAt.Sub(now) < expiringSoonWindow,
	}, true
}

func (s *Store) readLegacy() (Info, bool) {
	data, err := os.ReadFile(s.legacyPath)
	if err != nil {
		return Info{}, false
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return Info{}, false
	}
	// Legacy tokens carry no expiry metadata.
	return Info{Token: token}, true
}
