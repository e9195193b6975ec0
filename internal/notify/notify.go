// Package notify fans committed event changes out to live watchers.
package notify

import (
	"sync"

	"github.com/abrezinsky/pbplanner/internal/models"
)

// Broadcaster receives committed changes
type Broadcaster interface {
	BroadcastChange(change models.Change)
}

// Fanout delivers each change to every registered broadcaster in order
type Fanout struct {
	mu      sync.RWMutex
	targets []Broadcaster
}

// NewFanout creates a Fanout over the given targets. Nil targets are skipped.
func NewFanout(targets ...Broadcaster) *Fanout {
	f := &Fanout{}
	for _, t := range targets {
		f.Add(t)
	}
	return f
}

// Add registers another target
func (f *Fanout) Add(b Broadcaster) {
	if b == nil {
		return
	}
	f.mu.Lock()
	f.targets = append(f.targets, b)
	f.mu.Unlock()
}

// BroadcastChange implements services.Broadcaster
func (f *Fanout) BroadcastChange(change models.Change) {
	f.mu.RLock()
	targets := f.targets
	f.mu.RUnlock()

	for _, t := range targets {
		t.BroadcastChange(change)
	}
}

// Waker lets long-lived readers of one event sleep until it changes.
// Signals coalesce: a subscriber that is slow to wake sees one pending signal.
type Waker struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewWaker creates an empty Waker
func NewWaker() *Waker {
	return &Waker{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe returns a channel signalled after each change to eventID, and a
// func that must be called to release it.
func (w *Waker) Subscribe(eventID string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	w.mu.Lock()
	if w.subs[eventID] == nil {
		w.subs[eventID] = make(map[chan struct{}]struct{})
	}
	w.subs[eventID][ch] = struct{}{}
	w.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs[eventID], ch)
			if len(w.subs[eventID]) == 0 {
				delete(w.subs, eventID)
			}
			w.mu.Unlock()
		})
	}
}

// Subscribers returns the number of live subscriptions for eventID
func (w *Waker) Subscribers(eventID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs[eventID])
}

// BroadcastChange implements services.Broadcaster
func (w *Waker) BroadcastChange(change models.Change) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for ch := range w.subs[change.EventID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
