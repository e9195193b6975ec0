// Package metrics provides Prometheus metrics for the planner service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abrezinsky/pbplanner/internal/models"
)

// unmatchedRoute labels requests that no route pattern matched
const unmatchedRoute = "unmatched"

// Manager owns a private registry and the service's collectors.
// It is safe for concurrent use.
type Manager struct {
	namespace        string
	histogramBuckets []float64
	runtime          bool
	registry         *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	mutations           *prometheus.CounterVec
	rejections          *prometheus.CounterVec
	openStreams         *prometheus.GaugeVec
}

// New creates a Manager with its own registry
func New(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pbplanner",
		histogramBuckets: prometheus.DefBuckets,
		runtime:          true,
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"route", "method"},
	)

	m.mutations = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "event_mutations_total",
			Help:      "Committed event mutations by kind",
		},
		[]string{"kind"},
	)

	m.rejections = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      "rejected_operations_total",
			Help:      "Operations rejected with a client error, by error code",
		},
		[]string{"code"},
	)

	m.openStreams = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      "open_streams",
			Help:      "Currently open push connections by transport",
		},
		[]string{"transport"},
	)
}

// Registry returns the private registry
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency by chi route pattern
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// BroadcastChange implements services.Broadcaster by counting the mutation
func (m *Manager) BroadcastChange(change models.Change) {
	if change.Kind == "" {
		return
	}
	m.mutations.WithLabelValues(change.Kind).Inc()
}

// RecordRejection counts an operation refused with the given error code
func (m *Manager) RecordRejection(code string) {
	m.rejections.WithLabelValues(code).Inc()
}

// StreamOpened increments the open stream gauge for transport
func (m *Manager) StreamOpened(transport string) {
	m.openStreams.WithLabelValues(transport).Inc()
}

// StreamClosed decrements the open stream gauge for transport
func (m *Manager) StreamClosed(transport string) {
	m.openStreams.WithLabelValues(transport).Dec()
}
