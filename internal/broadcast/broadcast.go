// Package broadcast propagates bookmark mutations between running clients
// that share a state directory.
//
// The mechanism mirrors the web client it replaces: the publisher writes a
// small sync record and deletes it shortly after, and every other process
// observes the write through a filesystem watcher. The record's timestamp
// lets receivers ignore events older than their own state, including the
// echo of their own publishes.
package broadcast

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Actions carried by sync events.
const (
	ActionAdded   = "added"
	ActionRemoved = "removed"
)

// linger is how long the sync record stays on disk before the publisher
// removes it again.
const linger = 100 * time.Millisecond

// Event is one bookmark mutation announcement.
type Event struct {
	Action    string `json:"action"`
	ExamID    string `json:"examId"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// Publisher writes sync records for other processes to observe.
type Publisher struct {
	path string
}

// NewPublisher builds a Publisher writing to the given sync slot path.
func NewPublisher(path string) *Publisher {
	return &Publisher{path: path}
}

// Publish writes the event to the sync slot and schedules its removal. The
// write-then-remove pair is the signal; the slot is not meant to be durable.
func (p *Publisher) Publish(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return
	}
	if err := os.WriteFile(p.path, data, 0o644); err != nil {
		log.Printf("bookmark sync publish failed: %v", err)
		return
	}
	time.AfterFunc(linger, func() {
		_ = os.Remove(p.path)
	})
}

// Subscriber watches the sync slot and delivers decoded events.
type Subscriber struct {
	path    string
	watcher *fsnotify.Watcher
	events  chan Event
}

// NewSubscriber starts watching the sync slot's directory. The directory is
// created if needed so the watch can be established before any publish.
func NewSubscriber(path string) (*Subscriber, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	s := &Subscriber{
		path:    path,
		watcher: watcher,
		events:  make(chan Event, 16),
	}
	go s.run()
	return s, nil
}

// Events returns the channel of observed sync events.
func (s *Subscriber) Events() <-chan Event {
	return s.events
}

// Close stops watching. The events channel is closed once the watcher
// drains.
func (s *Subscriber) Close() error {
	return s.watcher.Close()
}

func (s *Subscriber) run() {
	defer close(s.events)
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			ev, ok := s.decode()
			if !ok {
				continue
			}
			select {
			case s.events <- ev:
			default:
				// Receiver is behind; dropping is safe because any newer
				// event forces the same full reload.
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("bookmark sync watch error: %v", err)
		}
	}
}

func (s *Subscriber) decode() (Event, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		// The publisher may have removed the slot already.
		return Event{}, false
	}
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Printf("bookmark sync record unreadable: %v", err)
		return Event{}, false
	}
	return ev, true
}

// Now returns the current time in the unix-millisecond resolution sync
// records use.
func Now() int64 {
	return time.Now().UnixMilli()
}
