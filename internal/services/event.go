package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/models"
	"github.com/abrezinsky/pbplanner/internal/repository"
)

// EventService handles event lifecycle and metadata
type EventService struct {
	mutator
}

// NewEventService creates a new EventService
func NewEventService(log logger.Logger, repo repository.EventRepository, locks *EventLocks) *EventService {
	return &EventService{mutator{log: log, repo: repo, locks: locks}}
}

// Create validates metadata and stores a new event, returning its id
func (s *EventService) Create(ctx context.Context, meta models.Metadata) (string, error) {
	meta = trimMetadata(meta)
	if err := validateMetadata(meta); err != nil {
		return "", err
	}

	event, err := s.repo.CreateEvent(ctx, meta)
	if err != nil {
		return "", err
	}

	s.log.Info("Event created", "event_id", event.ID, "name", event.Name)
	s.broadcast(models.Change{Kind: models.ChangeCreate, EventID: event.ID})
	return event.ID, nil
}

// Get returns the full event
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	return s.load(ctx, id)
}

// List returns summaries of every live event in creation order
func (s *EventService) List(ctx context.Context) ([]models.EventSummary, error) {
	events, err := s.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.EventSummary, 0, len(events))
	for i := range events {
		summaries = append(summaries, events[i].Summary())
	}
	return summaries, nil
}

// Delete removes an event and its index entry. Watchers receive a deleted change.
func (s *EventService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}

	s.log.Info("Event deleted", "event_id", id)
	s.broadcast(models.Change{Kind: models.ChangeDelete, EventID: id, Version: -1, Deleted: true})
	return nil
}

// Update replaces the event metadata wholesale and bumps the version
func (s *EventService) Update(ctx context.Context, id string, meta models.Metadata, expectedVersion *int) (int, error) {
	meta = trimMetadata(meta)
	if err := validateMetadata(meta); err != nil {
		return 0, err
	}

	event, err := s.mutate(ctx, id, models.ChangeUpdate, func(e *models.Event) (bool, error) {
		if err := checkVersion(e, expectedVersion); err != nil {
			return false, err
		}
		e.ApplyMetadata(meta)
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return event.Version, nil
}

// Snapshot returns the version and assignments pushed to live watchers
func (s *EventService) Snapshot(ctx context.Context, id string) (models.Snapshot, error) {
	event, err := s.load(ctx, id)
	if err != nil {
		return models.Snapshot{}, err
	}
	return models.Snapshot{EventID: id, Version: event.Version, Assignments: event.Assignments}, nil
}

func trimMetadata(m models.Metadata) models.Metadata {
	m.Name = strings.TrimSpace(m.Name)
	m.Date = strings.TrimSpace(m.Date)
	m.Time = strings.TrimSpace(m.Time)
	m.WaterDepth = strings.TrimSpace(m.WaterDepth)
	return m
}

func validateMetadata(m models.Metadata) error {
	return required(
		[2]string{"name", m.Name},
		[2]string{"date", m.Date},
		[2]string{"time", m.Time},
		[2]string{"water", m.WaterDepth},
	)
}
