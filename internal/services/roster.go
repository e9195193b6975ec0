package services

import (
	"context"
	"strings"

	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/models"
	"github.com/abrezinsky/pbplanner/internal/repository"
)

// RosterService handles signups and removals
type RosterService struct {
	mutator
}

// NewRosterService creates a new RosterService
func NewRosterService(log logger.Logger, repo repository.EventRepository, locks *EventLocks) *RosterService {
	return &RosterService{mutator{log: log, repo: repo, locks: locks}}
}

// Signup appends a participant. Names are unique per event (case-sensitive).
func (s *RosterService) Signup(ctx context.Context, eventID string, p models.Participant) (int, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Ship = strings.TrimSpace(p.Ship)
	if err := required([2]string{"name", p.Name}, [2]string{"ship", p.Ship}); err != nil {
		return 0, err
	}

	event, err := s.mutate(ctx, eventID, models.ChangeSignup, func(e *models.Event) (bool, error) {
		if e.HasParticipant(p.Name) {
			return false, ErrDuplicateName
		}
		e.Roster = append(e.Roster, p)
		return true, nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("Participant signed up", "event_id", eventID, "name", p.Name, "ship", p.Ship)
	return event.Version, nil
}

// Remove is the officer-initiated removal of name
func (s *RosterService) Remove(ctx context.Context, eventID, name string) (int, error) {
	return s.drop(ctx, eventID, name, models.ChangeRemove)
}

// Withdraw is the participant's own removal of name
func (s *RosterService) Withdraw(ctx context.Context, eventID, name string) (int, error) {
	return s.drop(ctx, eventID, name, models.ChangeWithdraw)
}

// List returns the roster in signup order
func (s *RosterService) List(ctx context.Context, eventID string) ([]models.Participant, error) {
	event, err := s.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return event.Roster, nil
}

// drop removes every roster entry matching name and prunes it from both
// groups. Unknown names leave the event and its version untouched.
func (s *RosterService) drop(ctx context.Context, eventID, name, kind string) (int, error) {
	if err := required([2]string{"name", name}); err != nil {
		return 0, err
	}

	event, err := s.mutate(ctx, eventID, kind, func(e *models.Event) (bool, error) {
		kept := make([]models.Participant, 0, len(e.Roster))
		for _, p := range e.Roster {
			if p.Name != name {
				kept = append(kept, p)
			}
		}
		changed := len(kept) != len(e.Roster)
		e.Roster = kept

		if e.Assignments != nil {
			main, pm := without(e.Assignments.Main, name)
			screening, ps := without(e.Assignments.Screening, name)
			if pm || ps {
				e.Assignments = &models.Assignments{Main: main, Screening: screening}
				changed = true
			}
		}
		return changed, nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("Participant removed", "event_id", eventID, "name", name, "kind", kind, "version", event.Version)
	return event.Version, nil
}

// without returns names minus every occurrence of name, and whether any were dropped
func without(names []string, name string) ([]string, bool) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out, len(out) != len(names)
}
