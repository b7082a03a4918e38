package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/breadtm/examtie/internal/examtie"
	"github.com/breadtm/examtie/internal/rolecache"
	"github.com/breadtm/examtie/internal/tokenstore"
)

// fakeAPI implements examtie.API with per-call hooks.
type fakeAPI struct {
	login    func(username, password string) (*examtie.TokenResponse, error)
	register func(payload examtie.RegisterPayload) (*examtie.RegisterResult, error)
	profile  func(token string) (*examtie.User, error)
}

func (f *fakeAPI) Login(_ context.Context, username, password string) (*examtie.TokenResponse, error) {
	return f.login(username, password)
}

func (f *fakeAPI) Register(_ context.Context, payload examtie.RegisterPayload) (*examtie.RegisterResult, error) {
	return f.register(payload)
}

func (f *fakeAPI) FetchProfile(_ context.Context, token string) (*examtie.User, error) {
	return f.profile(token)
}

func (f *fakeAPI) FetchBookmarks(context.Context, string) ([]examtie.Bookmark, error) {
	return nil, nil
}

func (f *fakeAPI) AddBookmark(context.Context, string, string) (*examtie.Bookmark, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) RemoveBookmark(context.Context, string, string) error {
	return errors.New("not implemented")
}

func (f *fakeAPI) FetchStreak(context.Context, string) (*examtie.Streak, error) {
	return nil, errors.New("not implemented")
}

func newTestSession(t *testing.T, api examtie.API) (*Session, *tokenstore.Store, *rolecache.Cache) {
	t.Helper()
	dir := t.TempDir()
	tokens := tokenstore.New(filepath.Join(dir, "token.toml"))
	roles := rolecache.New(filepath.Join(dir, "roles.toml"))
	return New(api, tokens, roles), tokens, roles
}

func TestInitialize_NoToken(t *testing.T) {
	api := &fakeAPI{profile: func(string) (*examtie.User, error) {
		t.Fatal("profile fetched without a token")
		return nil, nil
	}}
	s, _, _ := newTestSession(t, api)

	s.Initialize(context.Background())

	st := s.Current()
	if !st.Initialized {
		t.Fatalf("Initialized = false after startup")
	}
	if st.Authenticated || st.Token != "" {
		t.Fatalf("session authenticated without a token: %#v", st)
	}
}

func TestInitialize_ValidToken(t *testing.T) {
	api := &fakeAPI{profile: func(token string) (*examtie.User, error) {
		if token != "tok" {
			t.Errorf("profile token = %q, want tok", token)
		}
		return &examtie.User{ID: "u1", Username: "alice", Roles: []string{"admin"}}, nil
	}}
	s, tokens, _ := newTestSession(t, api)
	if err := tokens.Save("tok", time.Hour); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	s.Initialize(context.Background())

	st := s.Current()
	if !st.Authenticated || st.Token != "tok" {
		t.Fatalf("session not authenticated: %#v", st)
	}
	if st.User == nil || st.User.ID != "u1" {
		t.Fatalf("user = %#v, want u1", st.User)
	}
	if !st.Initialized {
		t.Fatalf("Initialized = false")
	}
}

func TestInitialize_RejectedTokenPurged(t *testing.T) {
	api := &fakeAPI{profile: func(string) (*examtie.User, error) {
		return nil, &examtie.APIError{StatusCode: 401, Detail: "Invalid token"}
	}}
	s, tokens, _ := newTestSession(t, api)
	if err := tokens.Save("tok", time.Hour); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	s.Initialize(context.Background())

	st := s.Current()
	if st.Authenticated {
		t.Fatalf("session authenticated with a rejected token")
	}
	if !st.Initialized {
		t.Fatalf("Initialized = false")
	}
	if _, ok := tokens.Load(); ok {
		t.Fatalf("rejected token not purged")
	}
}

func TestLogin_Success(t *testing.T) {
	api := &fakeAPI{
		login: func(username, password string) (*examtie.TokenResponse, error) {
			if username != "alice" || password != "secret" {
				t.Errorf("credentials = %q/%q", username, password)
			}
			return &examtie.TokenResponse{AccessToken: "tok"}, nil
		},
		profile: func(string) (*examtie.User, error) {
			return &examtie.User{ID: "u1", Username: "alice"}, nil
		},
	}
	s, tokens, _ := newTestSession(t, api)

	if !s.Login(context.Background(), "alice", "secret") {
		t.Fatalf("Login reported failure")
	}

	st := s.Current()
	if !st.Authenticated || st.Token != "tok" || st.User == nil {
		t.Fatalf("session after login = %#v", st)
	}
	if !st.Initialized {
		t.Fatalf("Initialized = false after login")
	}
	if saved, ok := tokens.Load(); !ok || saved != "tok" {
		t.Fatalf("token not persisted: %q, %v", saved, ok)
	}
}

func TestLogin_RejectedStoresDetail(t *testing.T) {
	api := &fakeAPI{login: func(string, string) (*examtie.TokenResponse, error) {
		return nil, &examtie.APIError{StatusCode: 401, Detail: "Invalid credentials"}
	}}
	s, _, _ := newTestSession(t, api)

	if s.Login(context.Background(), "alice", "wrong") {
		t.Fatalf("Login reported success for rejected credentials")
	}

	st := s.Current()
	if st.Err != "Invalid credentials" {
		t.Fatalf("Err = %q, want server detail", st.Err)
	}
	if st.Authenticated || st.Token != "" || st.User != nil {
		t.Fatalf("rejected login left session state: %#v", st)
	}
}

func TestRegister_WithToken(t *testing.T) {
	api := &fakeAPI{
		register: func(examtie.RegisterPayload) (*examtie.RegisterResult, error) {
			return &examtie.RegisterResult{
				User:  examtie.User{ID: "u1", Username: "alice"},
				Token: "tok",
			}, nil
		},
		profile: func(string) (*examtie.User, error) {
			return &examtie.User{ID: "u1", Username: "alice"}, nil
		},
	}
	s, _, _ := newTestSession(t, api)

	if !s.Register(context.Background(), examtie.RegisterPayload{Username: "alice"}) {
		t.Fatalf("Register reported failure")
	}
	if st := s.Current(); !st.Authenticated || st.Token != "tok" {
		t.Fatalf("session after register = %#v, want logged in", st)
	}
}

func TestRegister_WithoutToken(t *testing.T) {
	api := &fakeAPI{register: func(examtie.RegisterPayload) (*examtie.RegisterResult, error) {
		return &examtie.RegisterResult{User: examtie.User{ID: "u1", Username: "alice"}}, nil
	}}
	s, _, _ := newTestSession(t, api)

	if !s.Register(context.Background(), examtie.RegisterPayload{Username: "alice"}) {
		t.Fatalf("Register reported failure")
	}

	st := s.Current()
	if st.Authenticated {
		t.Fatalf("session authenticated without a token")
	}
	if st.User == nil || st.User.ID != "u1" {
		t.Fatalf("user = %#v, want stored profile", st.User)
	}
	if st.Err != "Registration successful, but no token returned." {
		t.Fatalf("Err = %q", st.Err)
	}
}

func TestSetToken_ProfileFailureKeepsSession(t *testing.T) {
	api := &fakeAPI{profile: func(string) (*examtie.User, error) {
		return nil, errors.New("boom")
	}}
	s, _, _ := newTestSession(t, api)

	s.SetToken(context.Background(), "tok")

	st := s.Current()
	if !st.Authenticated || st.Token != "tok" {
		t.Fatalf("token presence should authenticate: %#v", st)
	}
	if st.User != nil {
		t.Fatalf("user = %#v, want nil after failed fetch", st.User)
	}
	if st.Err != "Failed to fetch user profile after setting token." {
		t.Fatalf("Err = %q", st.Err)
	}
}

func TestLogout(t *testing.T) {
	api := &fakeAPI{profile: func(string) (*examtie.User, error) {
		return &examtie.User{ID: "u1", Roles: []string{"admin"}}, nil
	}}
	s, tokens, roles := newTestSession(t, api)

	s.SetToken(context.Background(), "tok")
	s.Logout()

	st := s.Current()
	if st.Authenticated || st.Token != "" || st.User != nil {
		t.Fatalf("session after logout = %#v", st)
	}
	if !st.Initialized {
		t.Fatalf("Initialized dropped by logout")
	}
	if _, ok := tokens.Load(); ok {
		t.Fatalf("token survived logout")
	}
	if roles.Get("u1") != nil {
		t.Fatalf("cached roles survived logout")
	}
}

func TestRoleMerge_OmittedRolesUseCache(t *testing.T) {
	calls := 0
	api := &fakeAPI{profile: func(string) (*examtie.User, error) {
		calls++
		if calls == 1 {
			return &examtie.User{ID: "u1", Roles: []string{"admin"}}, nil
		}
		// Later responses omit roles.
		return &examtie.User{ID: "u1"}, nil
	}}
	s, _, _ := newTestSession(t, api)

	s.SetToken(context.Background(), "tok")
	s.RefreshProfile(context.Background())

	st := s.Current()
	if st.User == nil || len(st.User.Roles) != 1 || st.User.Roles[0] != "admin" {
		t.Fatalf("roles = %#v, want cached [admin]", st.User)
	}
}

func TestCheckTokenValidity(t *testing.T) {
	api := &fakeAPI{profile: func(string) (*examtie.User, error) {
		return &examtie.User{ID: "u1"}, nil
	}}
	s, tokens, _ := newTestSession(t, api)

	s.SetToken(context.Background(), "tok")
	if !s.CheckTokenValidity() {
		t.Fatalf("CheckTokenValidity = false for a valid token")
	}

	tokens.Clear()
	if s.CheckTokenValidity() {
		t.Fatalf("CheckTokenValidity = true for a missing token")
	}
	if st := s.Current(); st.Authenticated {
		t.Fatalf("session still authenticated after failed validity check")
	}
}

func TestUpdateUserRoles_CurrentUser(t *testing.T) {
	api := &fakeAPI{profile: func(string) (*examtie.User, error) {
		return &examtie.User{ID: "u1", Roles: []string{"user"}}, nil
	}}
	s, _, roles := newTestSession(t, api)

	s.SetToken(context.Background(), "tok")
	s.UpdateUserRoles("u1", []string{"admin"})

	if st := s.Current(); st.User == nil || len(st.User.Roles) != 1 || st.User.Roles[0] != "admin" {
		t.Fatalf("in-memory roles = %#v, want [admin]", st.User)
	}
	if got := roles.Get("u1"); len(got) != 1 || got[0] != "admin" {
		t.Fatalf("cached roles = %v, want [admin]", got)
	}
}

func TestUpdateUserRoles_OtherUserLeavesProfile(t *testing.T) {
	api := &fakeAPI{profile: func(string) (*examtie.User, error) {
		return &examtie.User{ID: "u1", Roles: []string{"user"}}, nil
	}}
	s, _, _ := newTestSession(t, api)

	s.SetToken(context.Background(), "tok")
	s.UpdateUserRoles("u2", []string{"admin"})

	if st := s.Current(); st.User == nil || len(st.User.Roles) != 1 || st.User.Roles[0] != "user" {
		t.Fatalf("profile changed for another user's update: %#v", st.User)
	}
}
