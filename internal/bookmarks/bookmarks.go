// Package bookmarks caches the user's saved exams: an authenticated
// read-through cache with optimistic mutations and cross-process sync.
package bookmarks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/breadtm/examtie/internal/broadcast"
	"github.com/breadtm/examtie/internal/examtie"
	"github.com/breadtm/examtie/internal/session"
	"github.com/breadtm/examtie/internal/store"
)

// freshFor is how long a loaded bookmark set is trusted before a non-forced
// Load is allowed to hit the network again.
const freshFor = 30 * time.Second

// ErrMutationInFlight is returned when a second mutation targets an exam
// whose previous mutation has not resolved yet. Serializing per key keeps
// optimistic rollback sound.
var ErrMutationInFlight = errors.New("bookmark change already in progress")

// ErrNotBookmarked is returned by Remove for an exam that is not in the set.
var ErrNotBookmarked = errors.New("Bookmark not found")

// State is the observable bookmark snapshot.
type State struct {
	Bookmarks  []examtie.Bookmark
	Loading    bool
	Err        string
	LastUpdate int64 // unix milliseconds of the last successful or failed sync
}

// Cache holds the bookmark collection for the authenticated user.
type Cache struct {
	api      examtie.API
	session  *session.Session
	pub      *broadcast.Publisher
	syncPath string
	state    *store.Store[State]

	mu       sync.Mutex
	inflight map[string]struct{}
	sub      *broadcast.Subscriber
}

// New builds a Cache. syncPath is the shared sync slot other processes
// watch; pub writes to it.
func New(api examtie.API, sess *session.Session, pub *broadcast.Publisher, syncPath string) *Cache {
	return &Cache{
		api:      api,
		session:  sess,
		pub:      pub,
		syncPath: syncPath,
		state:    store.New(State{}),
		inflight: make(map[string]struct{}),
	}
}

// Current returns the bookmark snapshot.
func (c *Cache) Current() State {
	return c.state.Get()
}

// Subscribe registers fn to observe every change. The returned function
// cancels the subscription.
func (c *Cache) Subscribe(fn func(State)) func() {
	return c.state.Subscribe(fn)
}

// Load fetches the bookmark set. Within the freshness window a non-forced
// call with data present is a no-op. A failed fetch clears the set, records
// the error, and still stamps LastUpdate so failures do not retry in a
// tight loop.
func (c *Cache) Load(ctx context.Context, force bool) error {
	cur := c.state.Get()
	now := broadcast.Now()
	if !force && len(cur.Bookmarks) > 0 && now-cur.LastUpdate < freshFor.Milliseconds() {
		return nil
	}

	c.state.Update(func(st State) State {
		st.Loading = true
		st.Err = ""
		return st
	})

	token := c.session.Current().Token
	items, err := c.api.FetchBookmarks(ctx, token)
	if err != nil {
		c.state.Update(func(st State) State {
			st.Bookmarks = nil
			st.Loading = false
			st.Err = err.Error()
			st.LastUpdate = now
			return st
		})
		return err
	}

	c.state.Update(func(st State) State {
		st.Bookmarks = items
		st.Loading = false
		st.LastUpdate = now
		return st
	})
	return nil
}

// Add saves an exam optimistically: a placeholder entry appears immediately
// and is replaced by the server's record on success. On failure the
// placeholder is removed and the mapped error is both stored and returned so
// callers can react inline.
func (c *Cache) Add(ctx context.Context, examID string) (*examtie.Bookmark, error) {
	if err := c.acquire(examID); err != nil {
		return nil, err
	}
	defer c.release(examID)

	placeholder := examtie.Bookmark{
		ID:        "temp-" + uuid.NewString(),
		ExamID:    examID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	c.state.Update(func(st State) State {
		st.Bookmarks = append(append([]examtie.Bookmark(nil), st.Bookmarks...), placeholder)
		st.Err = ""
		return st
	})

	token := c.session.Current().Token
	created, err := c.api.AddBookmark(ctx, token, examID)
	if err != nil {
		friendly := mapAddError(err)
		c.state.Update(func(st State) State {
			st.Bookmarks = without(st.Bookmarks, func(b examtie.Bookmark) bool {
				return b.ID == placeholder.ID
			})
			st.Err = friendly.Error()
			return st
		})
		return nil, friendly
	}

	ts := broadcast.Now()
	c.state.Update(func(st State) State {
		items := append([]examtie.Bookmark(nil), st.Bookmarks...)
		for i := range items {
			if items[i].ID == placeholder.ID {
				items[i] = *created
			}
		}
		st.Bookmarks = items
		st.LastUpdate = ts
		return st
	})
	c.pub.Publish(broadcast.Event{Action: broadcast.ActionAdded, ExamID: examID, Timestamp: ts})
	return created, nil
}

// Remove deletes the bookmark for an exam optimistically, restoring it when
// the server rejects the delete. Removing an exam that is not bookmarked
// fails without touching state.
func (c *Cache) Remove(ctx context.Context, examID string) error {
	var removed *examtie.Bookmark
	for _, b := range c.state.Get().Bookmarks {
		if b.ExamID == examID {
			bb := b
			removed = &bb
			break
		}
	}
	if removed == nil {
		return ErrNotBookmarked
	}

	if err := c.acquire(examID); err != nil {
		return err
	}
	defer c.release(examID)

	c.state.Update(func(st State) State {
		st.Bookmarks = without(st.Bookmarks, func(b examtie.Bookmark) bool {
			return b.ExamID == examID
		})
		st.Err = ""
		return st
	})

	token := c.session.Current().Token
	if err := c.api.RemoveBookmark(ctx, token, examID); err != nil {
		friendly := mapRemoveError(err)
		c.state.Update(func(st State) State {
			st.Bookmarks = append(append([]examtie.Bookmark(nil), st.Bookmarks...), *removed)
			st.Err = friendly.Error()
			return st
		})
		return friendly
	}

	ts := broadcast.Now()
	c.state.Update(func(st State) State {
		st.LastUpdate = ts
		return st
	})
	c.pub.Publish(broadcast.Event{Action: broadcast.ActionRemoved, ExamID: examID, Timestamp: ts})
	return nil
}

// Toggle adds or removes depending on current membership. It reports whether
// the exam ended up bookmarked. Not atomic against concurrent external
// mutation; the per-key guard only serializes this process's own calls.
func (c *Cache) Toggle(ctx context.Context, examID string) (bool, error) {
	if c.IsBookmarked(examID) {
		if err := c.Remove(ctx, examID); err != nil {
			return true, err
		}
		return false, nil
	}
	if _, err := c.Add(ctx, examID); err != nil {
		return false, err
	}
	return true, nil
}

// IsBookmarked reports membership against in-memory state only; within the
// freshness window the answer may be stale.
func (c *Cache) IsBookmarked(examID string) bool {
	for _, b := range c.state.Get().Bookmarks {
		if b.ExamID == examID {
			return true
		}
	}
	return false
}

// Clear resets the cache to its initial state.
func (c *Cache) Clear() {
	c.state.Set(State{})
}

// ClearError drops the last error message.
func (c *Cache) ClearError() {
	c.state.Update(func(st State) State {
		st.Err = ""
		return st
	})
}

// Start ties the cache to the session: the first authenticated state with an
// empty cache triggers a load and installs the cross-process listener;
// losing authentication clears the cache and removes the listener. The
// returned function tears everything down.
func (c *Cache) Start(ctx context.Context) func() {
	cancel := c.session.Subscribe(func(st session.State) {
		if st.Authenticated && st.Token != "" {
			c.ensureListener(ctx)
			cur := c.state.Get()
			if len(cur.Bookmarks) == 0 && !cur.Loading {
				go func() { _ = c.Load(ctx, false) }()
			}
			return
		}
		c.dropListener()
		c.Clear()
	})
	return func() {
		cancel()
		c.dropListener()
	}
}

func (c *Cache) ensureListener(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return
	}
	sub, err := broadcast.NewSubscriber(c.syncPath)
	if err != nil {
		return
	}
	c.sub = sub
	go func() {
		for ev := range sub.Events() {
			// Only events newer than our own state force a reload; this also
			// filters the echo of this process's publishes.
			if ev.Timestamp > c.state.Get().LastUpdate {
				_ = c.Load(ctx, true)
			}
		}
	}()
}

func (c *Cache) dropListener() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return
	}
	_ = c.sub.Close()
	c.sub = nil
}

func (c *Cache) acquire(examID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[examID]; busy {
		return ErrMutationInFlight
	}
	c.inflight[examID] = struct{}{}
	return nil
}

func (c *Cache) release(examID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, examID)
}

func mapAddError(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, examtie.ErrNoToken) || strings.Contains(msg, "No authentication"):
		return errors.New("Please log in to bookmark exams")
	case strings.Contains(msg, "Already bookmarked"):
		return errors.New("This exam is already bookmarked")
	}
	return err
}

func mapRemoveError(err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, examtie.ErrNoToken) || strings.Contains(msg, "No authentication"):
		return errors.New("Please log in to manage bookmarks")
	case strings.Contains(msg, "Bookmark not found"):
		return errors.New("Bookmark was already removed")
	}
	return err
}

func without(items []examtie.Bookmark, drop func(examtie.Bookmark) bool) []examtie.Bookmark {
	kept := make([]examtie.Bookmark, 0, len(items))
	for _, b := range items {
		if !drop(b) {
			kept = append(kept, b)
		}
	}
	return kept
}
