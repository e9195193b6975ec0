package services

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/models"
	"github.com/abrezinsky/pbplanner/internal/repository"
)

// EventLocks serializes read-modify-write cycles per event id within this process.
// Services that mutate the same events must share one EventLocks.
type EventLocks struct {
	mu    sync.Mutex
	locks map[string]*eventLock
}

type eventLock struct {
	mu   sync.Mutex
	refs int
}

// NewEventLocks creates an empty lock table
func NewEventLocks() *EventLocks {
	return &EventLocks{locks: make(map[string]*eventLock)}
}

// Lock acquires the lock for id and returns its release func
func (l *EventLocks) Lock(id string) func() {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &eventLock{}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()
		l.mu.Lock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// mutator runs load-mutate-persist-broadcast cycles against one event
type mutator struct {
	log         logger.Logger
	repo        repository.EventRepository
	locks       *EventLocks
	broadcaster Broadcaster
}

// SetBroadcaster sets the broadcaster notified after each committed mutation
func (m *mutator) SetBroadcaster(b Broadcaster) {
	m.broadcaster = b
}

// load fetches an event, mapping a missing record to ErrEventNotFound
func (m *mutator) load(ctx context.Context, id string) (*models.Event, error) {
	event, err := m.repo.GetEvent(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	return event, err
}

// mutate applies fn under the event's lock. fn reports whether it changed the
// event; unchanged events are neither written nor broadcast. A changed event
// gets its version bumped by exactly one before it is persisted.
func (m *mutator) mutate(ctx context.Context, id, kind string, fn func(*models.Event) (bool, error)) (*models.Event, error) {
	unlock := m.locks.Lock(id)
	defer unlock()

	event, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, err := fn(event)
	if err != nil {
		return nil, err
	}
	if !changed {
		return event, nil
	}

	event.Version++
	if err := m.repo.PutEvent(ctx, event); err != nil {
		return nil, err
	}

	m.log.Debug("Event mutated", "event_id", id, "kind", kind, "version", event.Version)
	m.broadcast(models.Change{
		Kind:        kind,
		EventID:     id,
		Version:     event.Version,
		Assignments: event.Assignments.Clone(),
	})
	return event, nil
}

func (m *mutator) broadcast(change models.Change) {
	if m.broadcaster != nil {
		m.broadcaster.BroadcastChange(change)
	}
}

// checkVersion enforces an optional optimistic-concurrency expectation
func checkVersion(event *models.Event, expected *int) error {
	if expected != nil && *expected != event.Version {
		return ErrVersionConflict
	}
	return nil
}
