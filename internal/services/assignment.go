package services

import (
	"context"

	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/models"
	"github.com/abrezinsky/pbplanner/internal/repository"
)

// AssignmentService partitions the roster into main and screening groups
type AssignmentService struct {
	mutator
}

// NewAssignmentService creates a new AssignmentService
func NewAssignmentService(log logger.Logger, repo repository.EventRepository, locks *EventLocks) *AssignmentService {
	return &AssignmentService{mutator{log: log, repo: repo, locks: locks}}
}

// Assign replaces both groups wholesale and returns the new version.
// A name in both groups is rejected before anything is written, after the
// event is known to exist. Roster
// membership, group size and the battle rating limit are not enforced.
func (s *AssignmentService) Assign(ctx context.Context, eventID string, main, screening []string, expectedVersion *int) (int, error) {
	next := &models.Assignments{
		Main:      append([]string{}, main...),
		Screening: append([]string{}, screening...),
	}

	event, err := s.mutate(ctx, eventID, models.ChangeAssign, func(e *models.Event) (bool, error) {
		if err := checkVersion(e, expectedVersion); err != nil {
			return false, err
		}
		if err := validateGroups(next.Main, next.Screening); err != nil {
			return false, err
		}
		e.Assignments = next
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("Assignments replaced", "event_id", eventID, "main", len(next.Main), "screening", len(next.Screening), "version", event.Version)
	return event.Version, nil
}

// validateGroups rejects any name present in both groups
func validateGroups(main, screening []string) error {
	inMain := make(map[string]struct{}, len(main))
	for _, n := range main {
		inMain[n] = struct{}{}
	}
	for _, n := range screening {
		if _, dup := inMain[n]; dup {
			return ErrDuplicateCaptain
		}
	}
	return nil
}
