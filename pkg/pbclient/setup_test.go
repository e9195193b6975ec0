package pbclient_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abrezinsky/pbplanner/internal/app"
	"github.com/abrezinsky/pbplanner/internal/config"
	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/pkg/pbclient"
)

const officerPassword = "anchor-keel-sloop"

type testEnv struct {
	app *app.App
	srv *httptest.Server
	log logger.Logger
}

type envOptions struct {
	enforce bool
	// wrap intercepts requests before they reach the router
	wrap func(http.Handler) http.Handler
}

func quietLogger() logger.Logger {
	return logger.NewWithOptions(logger.Options{Level: slog.LevelError, Output: io.Discard})
}

func newEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	cfg := config.New()
	cfg.Addr = "127.0.0.1:0"
	cfg.DBPath = ":memory:"
	cfg.OfficerPassword = officerPassword
	cfg.BaseURL = "http://pb.example.test"
	cfg.StreamInterval = 50 * time.Millisecond
	cfg.EnforceOfficer = opts.enforce

	log := quietLogger()
	a, err := app.New(cfg, log)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	t.Cleanup(a.Close)

	var h http.Handler = a.Router()
	if opts.wrap != nil {
		h = opts.wrap(h)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.CloseClientConnections()
		srv.Close()
	})

	return &testEnv{app: a, srv: srv, log: log}
}

func (e *testEnv) client(opts ...pbclient.Option) *pbclient.Client {
	return pbclient.New(e.srv.URL, e.log, opts...)
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func sampleEvent() pbclient.EventInput {
	return pbclient.EventInput{
		Name:  "Cartagena",
		Date:  "2030-05-01",
		Time:  "18:00",
		BR:    1000,
		Water: "deep",
	}
}

func mustCreate(t *testing.T, c *pbclient.Client) string {
	t.Helper()
	id, err := c.Create(testCtx(t), sampleEvent())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected an event id")
	}
	return id
}

func mustSignup(t *testing.T, c *pbclient.Client, id, name string, br int) int {
	t.Helper()
	version, err := c.Signup(testCtx(t), id, pbclient.Participant{Name: name, Ship: "Bellona", BR: br})
	if err != nil {
		t.Fatalf("signup %s failed: %v", name, err)
	}
	return version
}
