package handlers

import "net/http"

func (h *Handlers) handleAssign(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req AssignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	version, err := h.Assignments.Assign(r.Context(), id, req.Main, req.Screening, req.ExpectedVersion)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, VersionResponse{OK: true, AssignVersion: version})
}
