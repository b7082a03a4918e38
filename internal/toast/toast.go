// Package toast holds the transient notification queue shown by the UI.
package toast

import (
	"fmt"
	"sync"
	"time"

	"github.com/breadtm/examtie/internal/store"
)

// Kinds of toast, controlling how the UI styles the message.
const (
	KindSuccess = "success"
	KindError   = "error"
	KindInfo    = "info"
)

// defaultDuration is how long a toast stays visible when the caller does not
// choose.
const defaultDuration = 3 * time.Second

// Toast is one queued notification.
type Toast struct {
	ID       string
	Message  string
	Kind     string
	Duration time.Duration
}

// Queue is an ordered toast list with automatic expiry. IDs are unique for
// the life of the process only.
type Queue struct {
	state *store.Store[[]Toast]

	mu   sync.Mutex
	next int
}

// NewQueue builds an empty Queue.
func NewQueue() *Queue {
	return &Queue{state: store.New([]Toast(nil))}
}

// Current returns the queued toasts in display order.
func (q *Queue) Current() []Toast {
	return q.state.Get()
}

// Subscribe registers fn to observe every queue change. The returned
// function cancels the subscription.
func (q *Queue) Subscribe(fn func([]Toast)) func() {
	return q.state.Subscribe(fn)
}

// Add appends a toast and schedules its removal after duration. Zero or
// negative duration uses the default. The toast's ID is returned so callers
// can dismiss it early.
func (q *Queue) Add(message, kind string, duration time.Duration) string {
	if duration <= 0 {
		duration = defaultDuration
	}

	q.mu.Lock()
	q.next++
	id := fmt.Sprintf("toast-%d", q.next)
	q.mu.Unlock()

	t := Toast{ID: id, Message: message, Kind: kind, Duration: duration}
	q.state.Update(func(toasts []Toast) []Toast {
		return append(append([]Toast(nil), toasts...), t)
	})

	time.AfterFunc(duration, func() {
		q.Remove(id)
	})
	return id
}

// Remove dismisses the toast with the given ID. Unknown IDs are a no-op.
func (q *Queue) Remove(id string) {
	q.state.Update(func(toasts []Toast) []Toast {
		kept := make([]Toast, 0, len(toasts))
		for _, t := range toasts {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		return kept
	})
}

// Clear dismisses everything.
func (q *Queue) Clear() {
	q.state.Set(nil)
}

// Success queues a success toast with the default duration.
func (q *Queue) Success(message string) string {
	return q.Add(message, KindSuccess, 0)
}

// Error queues an error toast with the default duration.
func (q *Queue) Error(message string) string {
	return q.Add(message, KindError, 0)
}

// Info queues an info toast with the default duration.
func (q *Queue) Info(message string) string {
	return q.Add(message, KindInfo, 0)
}
