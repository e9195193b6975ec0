package handlers

import "net/http"

func (h *Handlers) handleOfficerVersion(w http.ResponseWriter, r *http.Request) {
	version, err := h.Access.Version(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, OfficerVersionResponse{OK: true, Version: version})
}

// handleOfficerCheck answers 200 either way; ok carries the verdict
func (h *Handlers) handleOfficerCheck(w http.ResponseWriter, r *http.Request) {
	var req PasswordCheckRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	ok, version, err := h.Access.Check(r.Context(), req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, OfficerVersionResponse{OK: ok, Version: version})
}

func (h *Handlers) handleOfficerPassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordChangeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := validateRequest(req); err != nil {
		h.respondError(w, r, err)
		return
	}

	version, err := h.Access.Rotate(r.Context(), req.OldPassword, req.NewPassword)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, OfficerVersionResponse{OK: true, Version: version})
}
