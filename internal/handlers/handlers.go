package handlers

import (
	"github.com/abrezinsky/pbplanner/internal/auth"
	"github.com/abrezinsky/pbplanner/internal/logger"
	"github.com/abrezinsky/pbplanner/internal/metrics"
	"github.com/abrezinsky/pbplanner/internal/services"
	"github.com/abrezinsky/pbplanner/internal/stream"
	"github.com/abrezinsky/pbplanner/internal/websocket"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Events      services.EventServicer
	Roster      services.RosterServicer
	Assignments services.AssignmentServicer
	Access      services.AccessServicer
	Gate        *auth.Gate
	Hub         *websocket.Hub
	Streamer    *stream.Streamer
	Metrics     *metrics.Manager // optional
	Log         logger.Logger
	BaseURL     string // prefix for signup links, e.g. http://192.168.1.20:8088
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// New creates a new Handlers instance with all dependencies
func New(
	events services.EventServicer,
	roster services.RosterServicer,
	assignments services.AssignmentServicer,
	access services.AccessServicer,
	gate *auth.Gate,
	hub *websocket.Hub,
	streamer *stream.Streamer,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Events:      events,
		Roster:      roster,
		Assignments: assignments,
		Access:      access,
		Gate:        gate,
		Hub:         hub,
		Streamer:    streamer,
		Log:         log,
	}
}

// SetMetrics enables request and rejection metrics
func (h *Handlers) SetMetrics(m *metrics.Manager) {
	h.Metrics = m
}

// SetBaseURL sets the externally reachable address used in signup links
func (h *Handlers) SetBaseURL(url string) {
	h.BaseURL = url
}
