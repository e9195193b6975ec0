package repository

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/abrezinsky/pbplanner/internal/kvstore"
	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/models"
)

// Reserved keys. Every other key in the store is an event id.
const (
	IndexKey  = "PB_INDEX"
	SecretKey = "OFFICER_PASSWORD"
)

// Repository stores events as JSON documents in a key-value store,
// with a separate index record listing live ids in creation order.
type Repository struct {
	store kvstore.Store
	log   logger.Logger

	// indexMu serializes read-modify-write of the index record
	indexMu sync.Mutex

	now   func() time.Time
	newID func() string
}

// New creates a Repository over store
func New(store kvstore.Store, log logger.Logger) *Repository {
	return &Repository{
		store: store,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Store returns the underlying key-value store
func (r *Repository) Store() kvstore.Store {
	return r.store
}

// Close closes the underlying store
func (r *Repository) Close() error {
	return r.store.Close()
}

// CreateEvent writes a fresh event with an empty roster and appends it to the index
func (r *Repository) CreateEvent(ctx context.Context, meta models.Metadata) (*models.Event, error) {
	event := &models.Event{
		ID:      r.newID(),
		Created: r.now().UnixMilli(),
		Roster:  []models.Participant{},
	}
	event.ApplyMetadata(meta)

	if err := r.PutEvent(ctx, event); err != nil {
		return nil, err
	}
	if err := r.addToIndex(ctx, event.ID); err != nil {
		return nil, err
	}
	return event, nil
}

// GetEvent loads an event by id
func (r *Repository) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	if isReservedKey(id) {
		return nil, ErrNotFound
	}

	data, err := r.store.Get(ctx, id)
	if stderrors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var event models.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, errors.Wrapf(err, "decode event %q", id)
	}
	if event.Roster == nil {
		event.Roster = []models.Participant{}
	}
	return &event, nil
}

// PutEvent writes the full event document
func (r *Repository) PutEvent(ctx context.Context, event *models.Event) error {
	if isReservedKey(event.ID) {
		return errors.Errorf("event id %q is reserved", event.ID)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "encode event %q", event.ID)
	}
	return r.store.Put(ctx, event.ID, data)
}

// DeleteEvent removes the record and its index entry
func (r *Repository) DeleteEvent(ctx context.Context, id string) error {
	if isReservedKey(id) {
		return ErrNotFound
	}
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}
	return r.removeFromIndex(ctx, id)
}

// ListEventIDs returns the index contents. A missing or garbled index reads as empty.
func (r *Repository) ListEventIDs(ctx context.Context) ([]string, error) {
	data, err := r.store.Get(ctx, IndexKey)
	if stderrors.Is(err, kvstore.ErrKeyNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		r.log.Warn("Ignoring unreadable event index", "error", err)
		return []string{}, nil
	}
	return ids, nil
}

// ListEvents loads every indexed event. Ids whose record is missing or
// undecodable are skipped.
func (r *Repository) ListEvents(ctx context.Context) ([]models.Event, error) {
	ids, err := r.ListEventIDs(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]models.Event, 0, len(ids))
	for _, id := range ids {
		event, err := r.GetEvent(ctx, id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			r.log.Warn("Skipping bad event entry", "event_id", id, "error", err)
			continue
		}
		events = append(events, *event)
	}
	return events, nil
}

// GetSecret loads the officer secret
func (r *Repository) GetSecret(ctx context.Context) (*models.AccessSecret, error) {
	data, err := r.store.Get(ctx, SecretKey)
	if stderrors.Is(err, kvstore.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var secret models.AccessSecret
	if err := json.Unmarshal(data, &secret); err != nil {
		return nil, errors.Wrap(err, "decode officer secret")
	}
	return &secret, nil
}

// PutSecret replaces the officer secret
func (r *Repository) PutSecret(ctx context.Context, secret models.AccessSecret) error {
	data, err := json.Marshal(secret)
	if err != nil {
		return errors.Wrap(err, "encode officer secret")
	}
	return r.store.Put(ctx, SecretKey, data)
}

func (r *Repository) addToIndex(ctx context.Context, id string) error {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	ids, err := r.ListEventIDs(ctx)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return r.saveIndex(ctx, append(ids, id))
}

func (r *Repository) removeFromIndex(ctx context.Context, id string) error {
	r.indexMu.Lock()
	defer r.indexMu.Unlock()

	ids, err := r.ListEventIDs(ctx)
	if err != nil {
		return err
	}
	filtered := make([]string, 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			filtered = append(filtered, existing)
		}
	}
	return r.saveIndex(ctx, filtered)
}

func (r *Repository) saveIndex(ctx context.Context, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return errors.Wrap(err, "encode event index")
	}
	return r.store.Put(ctx, IndexKey, data)
}

func isReservedKey(key string) bool {
	return key == IndexKey || key == SecretKey || key == ""
}
