package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abrezinsky/pbplanner/internal/auth"
	"github.com/abrezinsky/pbplanner/internal/handlers"
	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/metrics"
	"github.com/abrezinsky/pbplanner/internal/notify"
	"github.com/abrezinsky/pbplanner/internal/repository"
	"github.com/abrezinsky/pbplanner/internal/services"
	"github.com/abrezinsky/pbplanner/internal/stream"
	"github.com/abrezinsky/pbplanner/internal/testutil"
	"github.com/abrezinsky/pbplanner/internal/websocket"
)

const officerPassword = "anchor-keel-sloop"

type testServer struct {
	*httptest.Server
	repo     *repository.Repository
	handlers *handlers.Handlers
	metrics  *metrics.Manager
	hub      *websocket.Hub
	waker    *notify.Waker
}

type testOptions struct {
	enforce bool
}

// newTestServer wires the full stack over an in-memory store
func newTestServer(t *testing.T, opts testOptions) *testServer {
	t.Helper()

	repo := testutil.NewTestRepository(t)
	log := logger.NewWithLevel(logger.ParseLevel("error"))
	locks := services.NewEventLocks()

	events := services.NewEventService(log, repo, locks)
	roster := services.NewRosterService(log, repo, locks)
	assignments := services.NewAssignmentService(log, repo, locks)
	access := services.NewAccessService(log, repo)
	if _, _, err := access.Bootstrap(context.Background(), officerPassword); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	m := metrics.New(metrics.WithRuntimeCollectors(false))
	waker := notify.NewWaker()
	hub := websocket.New(log, events)
	hub.SetTracker(m)
	hub.Start(ctx)
	streamer := stream.New(log, events, waker, 50*time.Millisecond)
	streamer.SetTracker(m)

	fanout := notify.NewFanout(waker, hub, m)
	events.SetBroadcaster(fanout)
	roster.SetBroadcaster(fanout)
	assignments.SetBroadcaster(fanout)

	h := handlers.New(events, roster, assignments, access, auth.NewGate(access, opts.enforce), hub, streamer, log)
	h.SetMetrics(m)
	h.SetBaseURL("http://pb.example.test")

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, repo: repo, handlers: h, metrics: m, hub: hub, waker: waker}
}

// do sends a request with an optional JSON body and returns status and body
func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("failed to marshal body: %v", err)
			}
			reader = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp.StatusCode, data
}

// decode unmarshals data into v, failing the test on error
func decode(t *testing.T, data []byte, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("failed to decode %q: %v", string(data), err)
	}
}

func validEvent() map[string]interface{} {
	return map[string]interface{}{
		"name":  "Cartagena",
		"date":  "2026-11-02",
		"time":  "18:30",
		"br":    500,
		"water": "deep",
	}
}

// createEvent posts a valid event and returns its id
func (s *testServer) createEvent(t *testing.T) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/pb/create", validEvent(), nil)
	if status != http.StatusOK {
		t.Fatalf("create returned %d: %s", status, body)
	}
	var resp handlers.CreateResponse
	decode(t, body, &resp)
	if !resp.OK || resp.ID == "" {
		t.Fatalf("unexpected create response: %s", body)
	}
	return resp.ID
}

// signup adds a participant and returns the new version
func (s *testServer) signup(t *testing.T, id, name string, br int) int {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/pb/"+id+"/signup",
		map[string]interface{}{"name": name, "ship": "Victory", "br": br}, nil)
	if status != http.StatusOK {
		t.Fatalf("signup %s returned %d: %s", name, status, body)
	}
	var resp handlers.VersionResponse
	decode(t, body, &resp)
	return resp.AssignVersion
}

func (s *testServer) full(t *testing.T, id string) handlers.FullResponse {
	t.Helper()
	status, body := s.do(t, http.MethodGet, "/api/pb/"+id+"/full", nil, nil)
	if status != http.StatusOK {
		t.Fatalf("full returned %d: %s", status, body)
	}
	var resp handlers.FullResponse
	decode(t, body, &resp)
	return resp
}

func officer() map[string]string {
	return map[string]string{auth.HeaderName: officerPassword}
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	OK    bool   `json:"ok"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

func expectError(t *testing.T, status int, body []byte, wantStatus int, wantCode string) errorBody {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("expected status %d, got %d: %s", wantStatus, status, body)
	}
	var e errorBody
	decode(t, body, &e)
	if e.OK {
		t.Error("expected ok=false in error body")
	}
	if e.Code != wantCode {
		t.Errorf("expected code %s, got %s (%s)", wantCode, e.Code, e.Error)
	}
	return e
}
