// Package streak caches the user's practice streak counters. Read-only from
// this client's perspective; the server advances the streak as exams are
// taken.
package streak

import (
	"context"
	"time"

	"github.com/breadtm/examtie/internal/examtie"
	"github.com/breadtm/examtie/internal/session"
	"github.com/breadtm/examtie/internal/store"
)

// freshFor is how long a loaded streak is trusted before a non-forced Load
// refetches.
const freshFor = 60 * time.Second

// State is the observable streak snapshot.
type State struct {
	Streak     *examtie.Streak
	Loading    bool
	Err        string
	LastUpdate int64 // unix milliseconds
}

// Cache holds the streak for the authenticated user.
type Cache struct {
	api     examtie.API
	session *session.Session
	state   *store.Store[State]
}

// New builds a Cache.
func New(api examtie.API, sess *session.Session) *Cache {
	return &Cache{
		api:     api,
		session: sess,
		state:   store.New(State{}),
	}
}

// Current returns the streak snapshot.
func (c *Cache) Current() State {
	return c.state.Get()
}

// Subscribe registers fn to observe every change. The returned function
// cancels the subscription.
func (c *Cache) Subscribe(fn func(State)) func() {
	return c.state.Subscribe(fn)
}

// Load fetches the streak. Unauthenticated sessions and fresh data are
// no-ops unless forced. Unlike the bookmark cache a failed fetch keeps the
// previous value; a stale streak reads better than none.
func (c *Cache) Load(ctx context.Context, force bool) error {
	sess := c.session.Current()
	if !sess.Authenticated || sess.Token == "" {
		return nil
	}

	cur := c.state.Get()
	now := time.Now().UnixMilli()
	if !force && cur.Streak != nil && now-cur.LastUpdate < freshFor.Milliseconds() {
		return nil
	}

	c.state.Update(func(st State) State {
		st.Loading = true
		st.Err = ""
		return st
	})

	data, err := c.api.FetchStreak(ctx, sess.Token)
	if err != nil {
		c.state.Update(func(st State) State {
			st.Loading = false
			st.Err = err.Error()
			st.LastUpdate = now
			return st
		})
		return err
	}

	c.state.Update(func(st State) State {
		st.Streak = data
		st.Loading = false
		st.LastUpdate = now
		return st
	})
	return nil
}

// Refresh forces a reload.
func (c *Cache) Refresh(ctx context.Context) error {
	return c.Load(ctx, true)
}

// Clear resets the cache, used on logout.
func (c *Cache) Clear() {
	c.state.Set(State{})
}

// RefreshOnResume forces a reload when the UI regains focus or the host
// comes back online, matching the web client's window listeners.
func (c *Cache) RefreshOnResume(ctx context.Context) {
	if c.session.Current().Authenticated {
		go func() { _ = c.Refresh(ctx) }()
	}
}

// Start clears the cache whenever the session loses authentication. The
// returned function cancels the subscription.
func (c *Cache) Start() func() {
	return c.session.Subscribe(func(st session.State) {
		if !st.Authenticated {
			c.Clear()
		}
	})
}
