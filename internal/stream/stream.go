// Package stream serves an event's assignment state as a Server-Sent Events feed.
package stream

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sse"

	apperrors "github.com/abrezinsky/pbplanner/internal/errors"
	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/models"
)

// Transport is the label this package reports to a Tracker
const Transport = "sse"

// DefaultInterval is how often the persisted state is re-read
const DefaultInterval = 2 * time.Second

// Snapshotter reads the current push state of an event
type Snapshotter interface {
	Snapshot(ctx context.Context, id string) (models.Snapshot, error)
}

// Subscriber hands out wake-up signals for one event
type Subscriber interface {
	Subscribe(eventID string) (<-chan struct{}, func())
}

// Tracker is told when a push stream opens and closes
type Tracker interface {
	StreamOpened(transport string)
	StreamClosed(transport string)
}

// Streamer writes SSE feeds
type Streamer struct {
	log      logger.Logger
	source   Snapshotter
	waker    Subscriber
	interval time.Duration
	tracker  Tracker
}

// New creates a Streamer. waker may be nil, in which case changes are only
// noticed on the interval tick.
func New(log logger.Logger, source Snapshotter, waker Subscriber, interval time.Duration) *Streamer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Streamer{
		log:      log,
		source:   source,
		waker:    waker,
		interval: interval,
	}
}

// SetTracker sets the tracker notified about open streams
func (s *Streamer) SetTracker(t Tracker) {
	s.tracker = t
}

// Interval returns the re-read period
func (s *Streamer) Interval() time.Duration {
	return s.interval
}

// Serve streams eventID to w until ctx is done, the peer goes away, or the
// event is deleted. If the event cannot be read at open, nothing is written
// and the error is returned so the caller can respond normally.
func (s *Streamer) Serve(ctx context.Context, w http.ResponseWriter, eventID string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return apperrors.Internalf("streaming unsupported by %T", w)
	}

	snap, err := s.source.Snapshot(ctx, eventID)
	if err != nil {
		return err
	}

	var wake <-chan struct{}
	if s.waker != nil {
		ch, release := s.waker.Subscribe(eventID)
		defer release()
		wake = ch
	}

	if s.tracker != nil {
		s.tracker.StreamOpened(Transport)
		defer s.tracker.StreamClosed(Transport)
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeSnapshot(w, snap); err != nil {
		return err
	}
	flusher.Flush()
	last := snap.Version

	s.log.Debug("Stream opened", "event_id", eventID, "version", last)
	defer s.log.Debug("Stream closed", "event_id", eventID)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-wake:
		}

		snap, err := s.source.Snapshot(ctx, eventID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if apperrors.KindOf(err) == apperrors.ErrNotFound {
				if err := writeDeleted(w, eventID); err != nil {
					return err
				}
				flusher.Flush()
				return nil
			}
			s.log.Warn("Stream read failed", "event_id", eventID, "error", err)
			continue
		}
		if snap.Version == last {
			continue
		}

		if err := writeSnapshot(w, snap); err != nil {
			return err
		}
		flusher.Flush()
		last = snap.Version
	}
}

func writeSnapshot(w http.ResponseWriter, snap models.Snapshot) error {
	err := sse.Encode(w, sse.Event{
		Id:   strconv.Itoa(snap.Version),
		Data: snap,
	})
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func writeDeleted(w http.ResponseWriter, eventID string) error {
	err := sse.Encode(w, sse.Event{
		Event: "deleted",
		Data:  models.Change{Kind: models.ChangeDelete, EventID: eventID, Version: -1, Deleted: true},
	})
	if err != nil {
		return fmt.Errorf("write deleted: %w", err)
	}
	return nil
}
