package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/abrezinsky/pbplanner/internal/models"
	"github.com/abrezinsky/pbplanner/internal/repository/mock"
	"github.com/abrezinsky/pbplanner/internal/services"
	"github.com/abrezinsky/pbplanner/internal/testutil"
)

func TestCreate_StartsAtVersionZero(t *testing.T) {
	s := newTestSetup(t)
	ctx := context.Background()

	id := s.createEvent(t)

	event, err := s.events.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if event.Version != 0 {
		t.Errorf("expected version 0, got %d", event.Version)
	}
	if event.Assignments != nil {
		t.Errorf("expected no assignments, got %+v", event.Assignments)
	}
	if event.Metadata() != testMeta() {
		t.Errorf("expected metadata %+v, got %+v", testMeta(), event.Metadata())
	}

	last, ok := s.broadcaster.Last()
	if !ok || last.Kind != models.ChangeCreate || last.EventID != id {
		t.Errorf("expected create change for %s, got %+v", id, last)
	}
}

func TestCreate_PresenceChecks(t *testing.T) {
	s := newTestSetup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		meta models.Metadata
	}{
		{"blank name", models.Metadata{Name: "  ", Date: "2026-01-01", Time: "10:00", WaterDepth: "deep"}},
		{"blank date", models.Metadata{Name: "N", Time: "10:00", WaterDepth: "deep"}},
		{"blank time", models.Metadata{Name: "N", Date: "2026-01-01", WaterDepth: "deep"}},
		{"blank water", models.Metadata{Name: "N", Date: "2026-01-01", Time: "10:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.events.Create(ctx, tt.meta); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	list, _ := s.events.List(ctx)
	if len(list) != 0 {
		t.Errorf("rejected creates must not be stored, got %d events", len(list))
	}
}

func TestGet_UnknownEvent(t *testing.T) {
	s := newTestSetup(t)
	if _, err := s.events.Get(context.Background(), "nope"); !errors.Is(err, services.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestList_ReturnsSummariesInCreationOrder(t *testing.T) {
	s := newTestSetup(t)
	ctx := context.Background()

	first := s.createEvent(t)
	second := s.createEvent(t)

	list, err := s.events.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != first || list[1].ID != second {
		t.Errorf("unexpected list order: %+v", list)
	}
	if list[0].BattleLimit != 500 || list[0].WaterDepth != "deep" {
		t.Errorf("summary fields not populated: %+v", list[0])
	}
}

func TestDelete_RemovesFromList(t *testing.T) {
	s := newTestSetup(t)
	ctx := context.Background()

	id := s.createEvent(t)
	if err := s.events.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	list, _ := s.events.List(ctx)
	if len(list) != 0 {
		t.Errorf("expected empty list after delete, got %+v", list)
	}
	if _, err := s.events.Get(ctx, id); !errors.Is(err, services.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound after delete, got %v", err)
	}

	last, _ := s.broadcaster.Last()
	if !last.Deleted || last.EventID != id {
		t.Errorf("expected deleted change, got %+v", last)
	}
}

func TestDelete_UnknownEvent(t *testing.T) {
	s := newTestSetup(t)
	if err := s.events.Delete(context.Background(), "nope"); !errors.Is(err, services.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestUpdate_ReplacesMetadataAndBumps(t *testing.T) {
	s := newTestSetup(t)
	ctx := context.Background()
	id := s.createEvent(t)
	s.signup(t, id, "Ann", 100)

	updated := models.Metadata{Name: "Tortuga", Date: "2026-12-01", Time: "20:00", BattleLimit: 900, WaterDepth: "shallow"}
	version, err := s.events.Update(ctx, id, updated, nil)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}

	event, _ := s.events.Get(ctx, id)
	if event.Metadata() != updated {
		t.Errorf("expected %+v, got %+v", updated, event.Metadata())
	}
	if len(event.Roster) != 1 {
		t.Errorf("update must not touch roster, got %d entries", len(event.Roster))
	}
}

func TestUpdate_VersionConflict(t *testing.T) {
	s := newTestSetup(t)
	ctx := context.Background()
	id := s.createEvent(t)
	s.signup(t, id, "Ann", 100)

	_, err := s.events.Update(ctx, id, models.Metadata{Name: "X", Date: "d", Time: "t", WaterDepth: "w"}, intPtr(0))
	if !errors.Is(err, services.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	event, _ := s.events.Get(ctx, id)
	if event.Name != "Cartagena" || event.Version != 1 {
		t.Errorf("conflicting update must leave state unchanged, got %+v", event)
	}
}

func TestSnapshot(t *testing.T) {
	s := newTestSetup(t)
	ctx := context.Background()
	id := s.createEvent(t)

	snap, err := s.events.Snapshot(ctx, id)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if snap.Version != 0 || snap.Assignments != nil || snap.EventID != id {
		t.Errorf("unexpected initial snapshot %+v", snap)
	}

	if _, err := s.events.Snapshot(ctx, "nope"); !errors.Is(err, services.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestCreate_RepositoryError(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	repo.CreateEventError = errors.New("database is locked")
	s := newTestSetupWithRepo(t, repo)

	if _, err := s.events.Create(context.Background(), testMeta()); err == nil {
		t.Error("expected repository error to propagate")
	}
	if len(s.broadcaster.Changes()) != 0 {
		t.Error("failed create must not broadcast")
	}
}

func TestList_RepositoryError(t *testing.T) {
	repo := mock.NewRepository(testutil.NewTestRepository(t))
	repo.ListEventsError = errors.New("disk I/O error")
	s := newTestSetupWithRepo(t, repo)

	if _, err := s.events.List(context.Background()); err == nil {
		t.Error("expected repository error to propagate")
	}
}
