package services

import (
	"context"

	"github.com/abrezinsky/pbplanner/internal/models"
)

// Broadcaster is notified after every committed mutation
type Broadcaster interface {
	BroadcastChange(change models.Change)
}

// EventServicer defines the interface for event lifecycle operations
type EventServicer interface {
	Create(ctx context.Context, meta models.Metadata) (string, error)
	Get(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context) ([]models.EventSummary, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, meta models.Metadata, expectedVersion *int) (int, error)
	Snapshot(ctx context.Context, id string) (models.Snapshot, error)
	SetBroadcaster(b Broadcaster)
}

// RosterServicer defines the interface for roster operations
type RosterServicer interface {
	Signup(ctx context.Context, eventID string, p models.Participant) (int, error)
	Remove(ctx context.Context, eventID, name string) (int, error)
	Withdraw(ctx context.Context, eventID, name string) (int, error)
	List(ctx context.Context, eventID string) ([]models.Participant, error)
	SetBroadcaster(b Broadcaster)
}

// AssignmentServicer defines the interface for group assignment operations
type AssignmentServicer interface {
	Assign(ctx context.Context, eventID string, main, screening []string, expectedVersion *int) (int, error)
	SetBroadcaster(b Broadcaster)
}

// AccessServicer defines the interface for the shared officer secret
type AccessServicer interface {
	Version(ctx context.Context) (int, error)
	Check(ctx context.Context, candidate string) (bool, int, error)
	Rotate(ctx context.Context, oldPassword, newPassword string) (int, error)
	Bootstrap(ctx context.Context, password string) (string, bool, error)
}

// Ensure services implement their interfaces
var (
	_ EventServicer      = (*EventService)(nil)
	_ RosterServicer     = (*RosterService)(nil)
	_ AssignmentServicer = (*AssignmentService)(nil)
	_ AccessServicer     = (*AccessService)(nil)
)
