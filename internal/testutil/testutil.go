package testutil

import (
	"sync"
	"testing"

	"github.com/abrezinsky/pbplanner/internal/kvstore"
	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/models"
	"github.com/abrezinsky/pbplanner/internal/repository"
)

// NewTestRepository creates a repository over a fresh in-memory SQLite store.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	store, err := kvstore.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}

	repo := repository.New(store, logger.NewWithLevel(logger.ParseLevel("error")))
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

// RecordingBroadcaster collects every change it is given
type RecordingBroadcaster struct {
	mu      sync.Mutex
	changes []models.Change
}

// BroadcastChange records the change
func (b *RecordingBroadcaster) BroadcastChange(change models.Change) {
	b.mu.Lock()
	b.changes = append(b.changes, change)
	b.mu.Unlock()
}

// Changes returns a copy of the recorded changes
func (b *RecordingBroadcaster) Changes() []models.Change {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Change{}, b.changes...)
}

// Last returns the most recent change and whether there was one
func (b *RecordingBroadcaster) Last() (models.Change, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.changes) == 0 {
		return models.Change{}, false
	}
	return b.changes[len(b.changes)-1], true
}
