package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/pbplanner/internal/models"
)

func (h *Handlers) handleGetRoster(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	roster, err := h.Roster.List(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if roster == nil {
		roster = []models.Participant{}
	}
	respondOK(w, roster)
}

func (h *Handlers) handleSignup(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.respondError(w, r, err)
		return
	}

	version, err := h.Roster.Signup(r.Context(), id, req.Participant(r.Header.Get(ClientIDHeader)))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, VersionResponse{OK: true, AssignVersion: version})
}

func (h *Handlers) handleRemove(w http.ResponseWriter, r *http.Request) {
	h.dropParticipant(w, r, h.Roster.Remove)
}

func (h *Handlers) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.dropParticipant(w, r, h.Roster.Withdraw)
}

// dropParticipant runs a roster removal for the {name} URL parameter.
// chi matches on the raw path when one is present, so escapes are undone here.
func (h *Handlers) dropParticipant(w http.ResponseWriter, r *http.Request, drop func(ctx context.Context, eventID, name string) (int, error)) {
	id, err := eventIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		if name, err = url.PathUnescape(name); err != nil {
			h.respondError(w, r, BadRequest("Invalid name"))
			return
		}
	}

	version, err := drop(r.Context(), id, name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, VersionResponse{OK: true, AssignVersion: version})
}
