package services_test

import (
	"context"
	"testing"

	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/models"
	"github.com/abrezinsky/pbplanner/internal/repository"
	"github.com/abrezinsky/pbplanner/internal/services"
	"github.com/abrezinsky/pbplanner/internal/testutil"
)

type testSetup struct {
	repo        *repository.Repository
	events      *services.EventService
	roster      *services.RosterService
	assignments *services.AssignmentService
	access      *services.AccessService
	broadcaster *testutil.RecordingBroadcaster
}

// newTestSetup wires all services over a shared repository
func newTestSetup(t *testing.T) *testSetup {
	t.Helper()
	return newTestSetupWithRepo(t, testutil.NewTestRepository(t))
}

func newTestSetupWithRepo(t *testing.T, repo repository.FullRepository) *testSetup {
	t.Helper()
	log := logger.NewWithLevel(logger.ParseLevel("error"))
	locks := services.NewEventLocks()
	b := &testutil.RecordingBroadcaster{}

	s := &testSetup{
		events:      services.NewEventService(log, repo, locks),
		roster:      services.NewRosterService(log, repo, locks),
		assignments: services.NewAssignmentService(log, repo, locks),
		access:      services.NewAccessService(log, repo),
		broadcaster: b,
	}
	if r, ok := repo.(*repository.Repository); ok {
		s.repo = r
	}
	s.events.SetBroadcaster(b)
	s.roster.SetBroadcaster(b)
	s.assignments.SetBroadcaster(b)
	return s
}

func testMeta() models.Metadata {
	return models.Metadata{Name: "Cartagena", Date: "2026-11-02", Time: "18:30", BattleLimit: 500, WaterDepth: "deep"}
}

// createEvent creates an event and fails the test on error
func (s *testSetup) createEvent(t *testing.T) string {
	t.Helper()
	id, err := s.events.Create(context.Background(), testMeta())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return id
}

// signup adds a participant and fails the test on error
func (s *testSetup) signup(t *testing.T, id, name string, br int) int {
	t.Helper()
	v, err := s.roster.Signup(context.Background(), id, models.Participant{Name: name, Ship: "Bellona", BR: models.FlexInt(br), CreatedBy: "client-" + name})
	if err != nil {
		t.Fatalf("Signup(%s) failed: %v", name, err)
	}
	return v
}

func intPtr(v int) *int { return &v }
