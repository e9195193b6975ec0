package handlers

import "net/http"

// handleStream serves the SSE push channel. Once the first frame is written
// the stream owns the response, so only open failures are reported as JSON.
func (h *Handlers) handleStream(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Streamer.Serve(r.Context(), w, id); err != nil {
		h.respondError(w, r, err)
	}
}

func (h *Handlers) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, err := eventIDParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Hub.ServeWs(w, r, id); err != nil {
		h.respondError(w, r, err)
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, OKResponse{OK: true})
}
