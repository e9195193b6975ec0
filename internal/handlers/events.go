package handlers

import (
	"net/http"

	"github.com/abrezinsky/pbplanner/internal/models"
)

func (h *Handlers) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Events.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if events == nil {
		events = []models.EventSummary{}
	}
	respondOK(w, events)
}

func (h *Handlers) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.respondError(w, r, err)
		return
	}

	id, err := h.Events.Create(r.Context(), req.Metadata())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, CreateResponse{OK: true, ID: id})
}

func (h *Handlers) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Events.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, OKResponse{OK: true})
}

func (h *Handlers) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	respondOK(w, newConfigResponse(event))
}

func (h *Handlers) handleGetFull(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}
	respondOK(w, newFullResponse(event))
}

func (h *Handlers) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.respondError(w, r, err)
		return
	}

	version, err := h.Events.Update(r.Context(), id, req.Metadata(), req.ExpectedVersion)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, VersionResponse{OK: true, AssignVersion: version})
}

// loadEvent fetches the {id} event, writing the error response on failure
func (h *Handlers) loadEvent(w http.ResponseWriter, r *http.Request) (*models.Event, bool) {
	id, err := eventIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return nil, false
	}
	event, err := h.Events.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return nil, false
	}
	return event, true
}
