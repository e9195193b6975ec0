package repository

import (
	"context"

	"github.com/abrezinsky/pbplanner/internal/models"
)

// EventRepository defines event and index data operations
type EventRepository interface {
	CreateEvent(ctx context.Context, meta models.Metadata) (*models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	PutEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id string) error
	ListEventIDs(ctx context.Context) ([]string, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
}

// SecretRepository defines access secret data operations
type SecretRepository interface {
	GetSecret(ctx context.Context) (*models.AccessSecret, error)
	PutSecret(ctx context.Context, secret models.AccessSecret) error
}

// FullRepository combines all repository interfaces
type FullRepository interface {
	EventRepository
	SecretRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
