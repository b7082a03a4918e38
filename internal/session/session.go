// Package session is the single source of truth for who the current user is
// and whether they are logged in, plus the side effects of changing that:
// token persistence, profile fetches, and the cached-role merge.
package session

import (
	"context"
	"log"
	"time"

	"github.com/breadtm/examtie/internal/examtie"
	"github.com/breadtm/examtie/internal/rolecache"
	"github.com/breadtm/examtie/internal/store"
	"github.com/breadtm/examtie/internal/tokenstore"
)

// State is the observable session snapshot.
//
// Authenticated implies Token is non-empty. User may be nil while
// authenticated: a failed profile fetch degrades the view but does not end
// the session. Initialized turns true once the startup check has resolved
// and stays true for the life of the process, so UI code can gate on it
// without flashing a logged-out frame.
type State struct {
	User          *examtie.User
	Token         string
	ExpiresAt     time.Time
	ExpiringSoon  bool
	Authenticated bool
	Initialized   bool
	Err           string
}

// Session orchestrates authentication against the ExamTie API.
type Session struct {
	api    examtie.API
	tokens *tokenstore.Store
	roles  *rolecache.Cache
	state  *store.Store[State]
}

// New builds a Session from its collaborators. Nothing is loaded until
// Initialize runs.
func New(api examtie.API, tokens *tokenstore.Store, roles *rolecache.Cache) *Session {
	return &Session{
		api:    api,
		tokens: tokens,
		roles:  roles,
		state:  store.New(State{}),
	}
}

// Current returns the session snapshot.
func (s *Session) Current() State {
	return s.state.Get()
}

// Subscribe registers fn to observe every session change. The returned
// function cancels the subscription.
func (s *Session) Subscribe(fn func(State)) func() {
	return s.state.Subscribe(fn)
}

// Initialize runs the startup sequence: load the persisted token and, when
// one exists, attempt a profile fetch. A failed fetch purges the token and
// leaves the session logged out. Initialized is true on every exit path.
func (s *Session) Initialize(ctx context.Context) {
	info, ok := s.tokens.Info()
	if !ok {
		s.state.Update(func(st State) State {
			st.Initialized = true
			return st
		})
		return
	}

	user, err := s.fetchProfile(ctx, info.Token)
	if err != nil {
		// Token is likely invalid or expired on the server side.
		s.tokens.Clear()
		s.state.Set(State{Initialized: true})
		return
	}

	s.state.Set(State{
		User:          user,
		Token:         info.Token,
		ExpiresAt:     info.ExpiresAt,
		ExpiringSoon:  info.ExpiringSoon,
		Authenticated: true,
		Initialized:   true,
	})
}

// Login exchanges credentials for a token. A rejected login stores the
// server's detail message on the session and reports false; Login never
// returns an error to the caller.
func (s *Session) Login(ctx context.Context, identifier, secret string) bool {
	s.clearError()

	tok, err := s.api.Login(ctx, identifier, secret)
	if err != nil {
		s.state.Update(func(st State) State {
			st.Err = err.Error()
			st.Authenticated = false
			st.User = nil
			st.Token = ""
			st.Initialized = true
			return st
		})
		return false
	}

	s.SetToken(ctx, tok.AccessToken)
	s.state.Update(func(st State) State {
		st.Initialized = true
		return st
	})
	return true
}

// Register submits a registration payload. When the server issues a token
// the new user is logged in immediately; when it does not, the returned
// user is stored unauthenticated with a clarifying message, because the
// server contract leaves both behaviors possible.
func (s *Session) Register(ctx context.Context, payload examtie.RegisterPayload) bool {
	s.clearError()

	result, err := s.api.Register(ctx, payload)
	if err != nil {
		s.state.Update(func(st State) State {
			st.Err = err.Error()
			return st
		})
		return false
	}

	if result.Token != "" {
		s.SetToken(ctx, result.Token)
		return true
	}

	user := result.User
	s.state.Update(func(st State) State {
		st.User = &user
		st.Authenticated = false
		st.Err = "Registration successful, but no token returned."
		return st
	})
	return true
}

// SetToken persists the token and refreshes the profile. Token presence
// alone flips the session to authenticated; a failed profile fetch is
// recorded but does not revoke it.
func (s *Session) SetToken(ctx context.Context, token string) {
	if err := s.tokens.Save(token, 0); err != nil {
		// Persistence failure degrades to an in-memory session.
		log.Printf("token persist failed: %v", err)
	}
	info, _ := s.tokens.Info()

	user, err := s.fetchProfile(ctx, token)
	if err != nil {
		s.state.Update(func(st State) State {
			st.Token = token
			st.ExpiresAt = info.ExpiresAt
			st.ExpiringSoon = info.ExpiringSoon
			st.Authenticated = true
			st.User = nil
			st.Err = "Failed to fetch user profile after setting token."
			return st
		})
		return
	}

	s.state.Update(func(st State) State {
		st.Token = token
		st.ExpiresAt = info.ExpiresAt
		st.ExpiringSoon = info.ExpiringSoon
		st.Authenticated = true
		st.User = user
		st.Err = ""
		return st
	})
}

// SetUser stores a profile obtained by other means.
func (s *Session) SetUser(user *examtie.User) {
	s.state.Update(func(st State) State {
		st.User = user
		st.Authenticated = user != nil
		st.Err = ""
		return st
	})
}

// Logout purges the current user's cached roles and the persisted token,
// then resets the session. Initialized stays true: a session that finished
// starting up never re-enters the uninitialized phase.
func (s *Session) Logout() {
	if user := s.state.Get().User; user != nil {
		s.roles.Forget(user.ID)
	}
	s.tokens.Clear()
	s.state.Set(State{Initialized: true})
}

// RefreshProfile re-fetches the profile in the background. Failures are
// silent; the previous profile stays in place.
func (s *Session) RefreshProfile(ctx context.Context) {
	st := s.state.Get()
	if st.Token == "" {
		return
	}

	user, err := s.fetchProfile(ctx, st.Token)
	if err != nil {
		return
	}
	info, _ := s.tokens.Info()
	s.state.Update(func(st State) State {
		st.User = user
		st.ExpiresAt = info.ExpiresAt
		st.ExpiringSoon = info.ExpiringSoon
		return st
	})
}

// CheckTokenValidity re-reads the persisted token. A missing or expired
// token logs the session out and reports false; otherwise the expiry flags
// are refreshed. Meant to run on a timer and whenever the UI resumes.
func (s *Session) CheckTokenValidity() bool {
	info, ok := s.tokens.Info()
	if !ok {
		s.Logout()
		return false
	}
	s.state.Update(func(st State) State {
		st.ExpiresAt = info.ExpiresAt
		st.ExpiringSoon = info.ExpiringSoon
		return st
	})
	return true
}

// UpdateUserRoles writes roles through to the role cache and, when the
// affected user is the current one, updates the in-memory profile without a
// network call. Used to reflect an admin action performed elsewhere.
func (s *Session) UpdateUserRoles(userID string, roles []string) {
	s.roles.Put(userID, roles)
	s.state.Update(func(st State) State {
		if st.User == nil || st.User.ID != userID {
			return st
		}
		user := *st.User
		user.Roles = append([]string(nil), roles...)
		st.User = &user
		return st
	})
}

// ClearError drops the last operation's error message.
func (s *Session) ClearError() {
	s.clearError()
}

func (s *Session) clearError() {
	s.state.Update(func(st State) State {
		st.Err = ""
		return st
	})
}

func (s *Session) fetchProfile(ctx context.Context, token string) (*examtie.User, error) {
	user, err := s.api.FetchProfile(ctx, token)
	if err != nil {
		return nil, err
	}
	user.Roles = s.roles.Merge(user.ID, user.Roles)
	return user, nil
}
