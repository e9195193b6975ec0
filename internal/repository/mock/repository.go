package mock

import (
	"context"

	"github.com/abrezinsky/pbplanner/internal/models"
	"github.com/abrezinsky/pbplanner/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.PutEventError = errors.New("database is locked")
//	svc := services.NewRosterService(log, mockRepo, locks)
//	_, err := svc.Signup(ctx, id, p)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	CreateEventError  error
	GetEventError     error
	PutEventError     error
	DeleteEventError  error
	ListEventIDsError error
	ListEventsError   error
	GetSecretError    error
	PutSecretError    error

	// PutEventCalls counts successful and failed PutEvent calls
	PutEventCalls int
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

func (m *Repository) CreateEvent(ctx context.Context, meta models.Metadata) (*models.Event, error) {
	if m.CreateEventError != nil {
		return nil, m.CreateEventError
	}
	return m.FullRepository.CreateEvent(ctx, meta)
}

func (m *Repository) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	if m.GetEventError != nil {
		return nil, m.GetEventError
	}
	return m.FullRepository.GetEvent(ctx, id)
}

func (m *Repository) PutEvent(ctx context.Context, event *models.Event) error {
	m.PutEventCalls++
	if m.PutEventError != nil {
		return m.PutEventError
	}
	return m.FullRepository.PutEvent(ctx, event)
}

func (m *Repository) DeleteEvent(ctx context.Context, id string) error {
	if m.DeleteEventError != nil {
		return m.DeleteEventError
	}
	return m.FullRepository.DeleteEvent(ctx, id)
}

func (m *Repository) ListEventIDs(ctx context.Context) ([]string, error) {
	if m.ListEventIDsError != nil {
		return nil, m.ListEventIDsError
	}
	return m.FullRepository.ListEventIDs(ctx)
}

func (m *Repository) ListEvents(ctx context.Context) ([]models.Event, error) {
	if m.ListEventsError != nil {
		return nil, m.ListEventsError
	}
	return m.FullRepository.ListEvents(ctx)
}

func (m *Repository) GetSecret(ctx context.Context) (*models.AccessSecret, error) {
	if m.GetSecretError != nil {
		return nil, m.GetSecretError
	}
	return m.FullRepository.GetSecret(ctx)
}

func (m *Repository) PutSecret(ctx context.Context, secret models.AccessSecret) error {
	if m.PutSecretError != nil {
		return m.PutSecretError
	}
	return m.FullRepository.PutSecret(ctx, secret)
}
