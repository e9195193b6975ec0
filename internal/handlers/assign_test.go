package handlers_test

import (
	"net/http"
	"reflect"
	"testing"

	"github.com/abrezinsky/pbplanner/internal/handlers"
)

func (s *testServer) assign(t *testing.T, id string, body map[string]interface{}) (int, []byte) {
	t.Helper()
	return s.do(t, http.MethodPost, "/api/pb/"+id+"/assign", body, nil)
}

func TestAssign_ThreeSignupsIntoMain(t *testing.T) {
	s := newTestServer(t, testOptions{})
	id := s.createEvent(t)
	s.signup(t, id, "Alice", 100)
	s.signup(t, id, "Bob", 200)
	s.signup(t, id, "Carol", 300)

	before := s.full(t, id).AssignVersion

	status, data := s.assign(t, id, map[string]interface{}{
		"main":      []string{"Alice", "Bob", "Carol"},
		"screening": []string{},
	})
	if status != http.StatusOK {
		t.Fatalf("assign returned %d: %s", status, data)
	}
	var resp handlers.VersionResponse
	decode(t, data, &resp)

	full := s.full(t, id)
	if !reflect.DeepEqual(full.Assignments.Main, []string{"Alice", "Bob", "Carol"}) {
		t.Errorf("unexpected main group: %v", full.Assignments.Main)
	}
	if full.AssignVersion != before+1 || resp.AssignVersion != full.AssignVersion {
		t.Errorf("expected version %d, got response %d stored %d", before+1, resp.AssignVersion, full.AssignVersion)
	}
	// every signup bumps the version, so three signups and an assign reach 4
	if full.AssignVersion != 4 {
		t.Errorf("expected version 4, got %d", full.AssignVersion)
	}
}

func TestAssign_SecondCallOverwrites(t *testing.T) {
	s := newTestServer(t, testOptions{})
	id := s.createEvent(t)

	s.assign(t, id, map[string]interface{}{"main": []string{"Alice", "Bob"}, "screening": []string{"Carol"}})
	status, data := s.assign(t, id, map[string]interface{}{"main": []string{"Dave"}})
	if status != http.StatusOK {
		t.Fatalf("second assign returned %d: %s", status, data)
	}

	full := s.full(t, id)
	if full.AssignVersion != 2 {
		t.Errorf("expected version 2, got %d", full.AssignVersion)
	}
	if !reflect.DeepEqual(full.Assignments.Main, []string{"Dave"}) {
		t.Errorf("expected only the second payload in main, got %v", full.Assignments.Main)
	}
	if full.Assignments.Screening == nil || len(full.Assignments.Screening) != 0 {
		t.Errorf("expected an empty screening list, got %#v", full.Assignments.Screening)
	}
}

func TestAssign_DuplicateCaptain(t *testing.T) {
	s := newTestServer(t, testOptions{})
	id := s.createEvent(t)
	s.assign(t, id, map[string]interface{}{"main": []string{"Alice"}})

	status, data := s.assign(t, id, map[string]interface{}{
		"main":      []string{"Bob", "Carol"},
		"screening": []string{"Carol"},
	})
	expectError(t, status, data, http.StatusBadRequest, "DUPLICATE_CAPTAIN")

	full := s.full(t, id)
	if full.AssignVersion != 1 || !reflect.DeepEqual(full.Assignments.Main, []string{"Alice"}) {
		t.Errorf("rejected assign changed state: %+v", full)
	}
}

func TestAssign_ExpectedVersion(t *testing.T) {
	s := newTestServer(t, testOptions{})
	id := s.createEvent(t)

	status, data := s.assign(t, id, map[string]interface{}{"main": []string{"Alice"}, "expectedVersion": 0})
	if status != http.StatusOK {
		t.Fatalf("assign with current version returned %d: %s", status, data)
	}

	status, data = s.assign(t, id, map[string]interface{}{"main": []string{"Bob"}, "expectedVersion": 0})
	expectError(t, status, data, http.StatusConflict, "VERSION_CONFLICT")

	if full := s.full(t, id); full.AssignVersion != 1 || full.Assignments.Main[0] != "Alice" {
		t.Errorf("conflicting assign changed state: %+v", full)
	}
}

func TestAssign_UnknownEvent(t *testing.T) {
	s := newTestServer(t, testOptions{})

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"valid groups", map[string]interface{}{"main": []string{"Alice"}}},
		{"overlapping groups", map[string]interface{}{"main": []string{"Alice"}, "screening": []string{"Alice"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := s.assign(t, "missing", tt.body)
			expectError(t, status, data, http.StatusNotFound, handlers.ErrCodeNotFound)
		})
	}
}
