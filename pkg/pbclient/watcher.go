package pbclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// State is where a Watcher is in its connection lifecycle
type State int

// Watcher states
const (
	StateDisconnected State = iota
	StateConnecting
	StateStreaming
	StatePolling
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StatePolling:
		return "polling"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Watcher defaults
const (
	DefaultMaxStreamFailures = 3
	DefaultPollInterval      = 5 * time.Second
	DefaultInitialBackoff    = 500 * time.Millisecond
	DefaultMaxBackoff        = 10 * time.Second
)

// ErrEventDeleted ends a watch when the event is gone
var ErrEventDeleted = errors.New("event deleted")

var errStreamClosed = errors.New("stream closed by server")

// Update is delivered whenever the watched event reaches a new version
type Update struct {
	EventID     string
	Version     int
	Assignments *Assignments
	Full        *Full // nil only when Deleted
	Deleted     bool
}

// WatcherConfig tunes a Watcher. Zero values take the defaults.
type WatcherConfig struct {
	// MaxStreamFailures is how many stream attempts in a row may fail
	// before the watcher switches to polling for good
	MaxStreamFailures int
	PollInterval      time.Duration
	// DisableStream starts in polling mode
	DisableStream  bool
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	OnState  func(State)
	OnUpdate func(Update)
}

func (c WatcherConfig) withDefaults() WatcherConfig {
	if c.MaxStreamFailures <= 0 {
		c.MaxStreamFailures = DefaultMaxStreamFailures
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	return c
}

// Watcher follows one event, preferring the push stream and falling back to
// polling. Every new version invalidates the client's cache for the event.
type Watcher struct {
	client  *Client
	eventID string
	cfg     WatcherConfig
	errs    chan error

	mu    sync.Mutex
	state State
	last  int
}

// Watch creates a Watcher for eventID. Call Run to start it.
func (c *Client) Watch(eventID string, cfg WatcherConfig) *Watcher {
	return &Watcher{
		client:  c,
		eventID: eventID,
		cfg:     cfg.withDefaults(),
		errs:    make(chan error, 8),
		last:    -1,
	}
}

// Errors delivers transient failures. Errors are dropped when nobody reads.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// State returns the current state
func (w *Watcher) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Version returns the last version delivered, or -1
func (w *Watcher) Version() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Run watches until ctx is done or the event is deleted. It returns nil
// after a deletion and ctx.Err() otherwise.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.setState(StateDisconnected)

	if !w.cfg.DisableStream {
		err := w.runStream(ctx)
		switch {
		case errors.Is(err, ErrEventDeleted):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		}
		w.client.log.Info("Stream unavailable, polling", "event_id", w.eventID, "error", err)
	}

	err := w.runPoll(ctx)
	if errors.Is(err, ErrEventDeleted) {
		return nil
	}
	return err
}

func (w *Watcher) runStream(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.cfg.InitialBackoff
	b.MaxInterval = w.cfg.MaxBackoff
	b.MaxElapsedTime = 0

	failures := 0
	opened := func() {
		failures = 0
		b.Reset()
	}

	op := func() error {
		w.setState(StateConnecting)
		err := w.streamOnce(ctx, opened)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if errors.Is(err, ErrEventDeleted) {
			return backoff.Permanent(err)
		}
		if IsNotFound(err) {
			w.deleted()
			return backoff.Permanent(ErrEventDeleted)
		}
		if err == nil {
			err = errStreamClosed
		}

		w.setState(StateDisconnected)
		failures++
		if failures >= w.cfg.MaxStreamFailures {
			err = fmt.Errorf("stream failed %d times: %w", failures, err)
			w.report(err)
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		w.report(err)
		w.client.log.Debug("Stream retry", "event_id", w.eventID, "error", err, "wait", wait)
	}

	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

// streamOnce reads one stream connection until it ends
func (w *Watcher) streamOnce(ctx context.Context, opened func()) error {
	resp, err := w.client.send(ctx, http.MethodGet, eventPath(w.eventID, "stream"), nil, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	first := true
	return readEvents(resp.Body, func(ev sseEvent) error {
		if ev.event == "deleted" {
			w.deleted()
			return ErrEventDeleted
		}

		var snap snapshot
		if err := json.Unmarshal([]byte(ev.data), &snap); err != nil {
			return fmt.Errorf("failed to parse stream frame: %w", err)
		}
		if first {
			first = false
			opened()
			w.setState(StateStreaming)
		}
		return w.advance(ctx, snap.AssignVersion, snap.Assignments)
	})
}

func (w *Watcher) runPoll(ctx context.Context) error {
	w.setState(StatePolling)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.pollOnce(ctx); err != nil {
			if errors.Is(err, ErrEventDeleted) {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.report(err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) pollOnce(ctx context.Context) error {
	cfg, err := w.client.fetchConfig(ctx, w.eventID)
	if err == nil {
		err = w.advance(ctx, cfg.AssignVersion, cfg.Assignments)
	}
	if IsNotFound(err) {
		w.deleted()
		return ErrEventDeleted
	}
	return err
}

// advance delivers version if it is new, refetching the full event. The
// version is only recorded once the refetch succeeds, so a failed refetch
// is retried on the next frame or poll.
func (w *Watcher) advance(ctx context.Context, version int, assignments *Assignments) error {
	w.mu.Lock()
	seen := version == w.last
	w.mu.Unlock()
	if seen {
		return nil
	}

	w.client.cache.InvalidateEvent(w.eventID)

	full, err := w.client.fetchFull(ctx, w.eventID)
	if err != nil {
		return fmt.Errorf("failed to refetch event at version %d: %w", version, err)
	}
	w.client.cache.Set(w.eventID, KindFull, full.clone())

	w.mu.Lock()
	w.last = version
	w.mu.Unlock()

	w.emit(Update{EventID: w.eventID, Version: version, Assignments: assignments, Full: full})
	return nil
}

func (w *Watcher) deleted() {
	w.mu.Lock()
	w.last = -1
	w.mu.Unlock()

	w.client.cache.Forget(w.eventID)
	w.emit(Update{EventID: w.eventID, Version: -1, Deleted: true})
}

func (w *Watcher) emit(u Update) {
	if w.cfg.OnUpdate != nil {
		w.cfg.OnUpdate(u)
	}
}

func (w *Watcher) setState(s State) {
	w.mu.Lock()
	changed := w.state != s
	w.state = s
	w.mu.Unlock()

	if changed && w.cfg.OnState != nil {
		w.cfg.OnState(s)
	}
}

func (w *Watcher) report(err error) {
	select {
	case w.errs <- err:
	default:
	}
}

// sseEvent is one dispatched server-sent event
type sseEvent struct {
	id    string
	event string
	data  string
}

// readEvents parses a text/event-stream body and calls fn per event. It
// stops at the first error from fn or the reader; a clean EOF returns nil.
func readEvents(r io.Reader, fn func(sseEvent) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)

	var ev sseEvent
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(data) > 0 {
				ev.data = strings.Join(data, "\n")
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev, data = sseEvent{}, nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			ev.event = value
		case "data":
			data = append(data, value)
		case "id":
			ev.id = value
		}
	}
	return scanner.Err()
}
