package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abrezinsky/pbplanner/internal/auth"
)

// requestTimeout bounds every route except the push channels
const requestTimeout = 60 * time.Second

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// corsHandler allows any origin; officer actions are gated by password, not origin
func corsHandler() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", auth.HeaderName, ClientIDHeader},
		MaxAge:         86400,
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger) // Custom conditional HTTP logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	if h.Metrics != nil {
		r.Use(h.Metrics.Middleware)
	}
	r.Use(corsHandler())

	r.Get("/healthz", h.handleHealth)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	// Push channels hold the connection open, so they sit outside the timeout
	r.Get("/api/pb/{id}/stream", h.handleStream)
	r.Get("/api/pb/{id}/ws", h.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		// Events (public)
		r.Get("/api/pb/list", h.handleListEvents)
		r.Post("/api/pb/create", h.handleCreateEvent)
		r.Get("/api/pb/{id}/config", h.handleGetConfig)
		r.Get("/api/pb/{id}/full", h.handleGetFull)
		r.Get("/api/pb/{id}/roster", h.handleGetRoster)
		r.Get("/api/pb/{id}/qr", h.handleSignupQR)

		// Roster (public)
		r.Post("/api/pb/{id}/signup", h.handleSignup)
		r.Delete("/api/pb/{id}/withdraw/{name}", h.handleWithdraw)

		// Officer password
		r.Get("/api/officer/version", h.handleOfficerVersion)
		r.Post("/api/officer/check", h.handleOfficerCheck)
		r.Post("/api/officer/password", h.handleOfficerPassword)

		// Officer actions (gated when enforcement is on)
		r.Group(func(r chi.Router) {
			r.Use(h.Gate.RequireOfficer)
			r.Delete("/api/pb/{id}", h.handleDeleteEvent)
			r.Delete("/api/pb/{id}/remove/{name}", h.handleRemove)
			r.Post("/api/pb/{id}/assign", h.handleAssign)
			r.Post("/api/pb/{id}/update", h.handleUpdateEvent)
		})
	})

	return r
}
