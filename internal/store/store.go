// Package store provides the reactive state container the rest of the client
// is built on: a mutex-guarded value with subscribe/update/set semantics.
// Containers are constructed explicitly and passed to their consumers; no
// package-level instances exist.
package store

import "sync"

// Store holds a single value of type T and notifies subscribers on change.
// The zero value is not usable; construct with New.
type Store[T any] struct {
	mu    sync.Mutex
	value T
	subs  map[int]func(T)
	next  int
}

// New builds a Store seeded with the given initial value.
func New[T any](initial T) *Store[T] {
	return &Store[T]{
		value: initial,
		subs:  make(map[int]func(T)),
	}
}

// Get returns the current value.
func (s *Store[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Set replaces the value and notifies subscribers.
func (s *Store[T]) Set(value T) {
	s.mu.Lock()
	s.value = value
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}
}

// Update applies fn to the current value under the lock and notifies
// subscribers with the result. fn must not call back into the store.
func (s *Store[T]) Update(fn func(T) T) {
	s.mu.Lock()
	s.value = fn(s.value)
	value := s.value
	subs := s.snapshotSubs()
	s.mu.Unlock()

	for _, sub := range subs {
		sub(value)
	}
}

// Subscribe registers fn to run after every mutation. fn is invoked
// immediately with the current value, matching the contract UI code and the
// per-domain caches rely on for startup. The returned function cancels the
// subscription.
func (s *Store[T]) Subscribe(fn func(T)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	value := s.value
	s.mu.Unlock()

	fn(value)

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// snapshotSubs copies the subscriber list so callbacks run outside the lock.
// Callers must hold s.mu.
func (s *Store[T]) snapshotSubs() []func(T) {
	subs := make([]func(T), 0, len(s.subs))
	for id := 0; id < s.next; id++ {
		if fn, ok := s.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}
