package tokenstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "token.toml"))
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.Save("abc123", 0); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	token, ok := s.Load()
	if !ok {
		t.Fatalf("Load reported no token after Save")
	}
	if token != "abc123" {
		t.Fatalf("Load token = %q, want abc123", token)
	}

	info, ok := s.Info()
	if !ok {
		t.Fatalf("Info reported no token after Save")
	}
	want := time.Now().Add(DefaultTTL)
	if diff := info.ExpiresAt.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("ExpiresAt = %v, want about %v", info.ExpiresAt, want)
	}
	if info.ExpiringSoon {
		t.Fatalf("fresh default-TTL token reported as expiring soon")
	}
}

func TestSave_MirrorsLegacyFile(t *testing.T) {
	s := newTestStore(t)

	if err := s.Save("abc123", time.Hour); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	data, err := os.ReadFile(s.legacyPath)
	if err != nil {
		t.Fatalf("legacy file not written: %v", err)
	}
	if string(data) != "abc123" {
		t.Fatalf("legacy file = %q, want bare token", data)
	}
}

func TestLoad_ExpiredTokenPurged(t *testing.T) {
	s := newTestStore(t)

	if err := s.Save("abc123", time.Hour); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, ok := s.Load(); ok {
		t.Fatalf("Load returned an expired token")
	}
	if _, err := os.Stat(s.recordPath); !os.IsNotExist(err) {
		t.Fatalf("expired record not removed: %v", err)
	}
	if _, err := os.Stat(s.legacyPath); !os.IsNotExist(err) {
		t.Fatalf("expired legacy file not removed: %v", err)
	}
}

func TestInfo_ExpiringSoonWindow(t *testing.T) {
	s := newTestStore(t)

	if err := s.Save("abc123", 12*time.Hour); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	info, ok := s.Info()
	if !ok {
		t.Fatalf("Info reported no token")
	}
	if !info.ExpiringSoon {
		t.Fatalf("token expiring in 12h not reported as expiring soon")
	}
}

func TestLoad_LegacyFallback(t *testing.T) {
	s := newTestStore(t)

	if err := os.WriteFile(s.legacyPath, []byte("legacy-token\n"), 0o600); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}

	info, ok := s.Info()
	if !ok {
		t.Fatalf("Info did not fall back to the legacy file")
	}
	if info.Token != "legacy-token" {
		t.Fatalf("token = %q, want legacy-token", info.Token)
	}
	if !info.ExpiresAt.IsZero() || info.ExpiringSoon {
		t.Fatalf("legacy token carried expiry metadata: %#v", info)
	}
}

func TestLoad_CorruptRecordSelfHeals(t *testing.T) {
	s := newTestStore(t)

	if err := os.WriteFile(s.recordPath, []byte("{not toml"), 0o600); err != nil {
		t.Fatalf("write corrupt record: %v", err)
	}
	if err := os.WriteFile(s.legacyPath, []byte("fallback"), 0o600); err != nil {
		t.Fatalf("write legacy file: %v", err)
	}

	token, ok := s.Load()
	if !ok || token != "fallback" {
		t.Fatalf("Load = %q, %v; want fallback, true", token, ok)
	}
	if _, err := os.Stat(s.recordPath); !os.IsNotExist(err) {
		t.Fatalf("corrupt record not removed: %v", err)
	}
}

func TestClear_RemovesBothFiles(t *testing.T) {
	s := newTestStore(t)

	if err := s.Save("abc123", 0); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	s.Clear()

	if _, ok := s.Load(); ok {
		t.Fatalf("Load found a token after Clear")
	}
}
