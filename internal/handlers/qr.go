package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// SignupPath is the page players open to join an event
const SignupPath = "/pb/signup.html"

const qrSize = 256

// SignupURL builds the link encoded in an event's QR code
func SignupURL(baseURL, eventID string) string {
	return fmt.Sprintf("%s%s?id=%s", strings.TrimRight(baseURL, "/"), SignupPath, url.QueryEscape(eventID))
}

func (h *Handlers) handleSignupQR(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadEvent(w, r)
	if !ok {
		return
	}

	base := h.BaseURL
	if base == "" {
		base = "http://" + r.Host
	}

	png, err := qrcode.Encode(SignupURL(base, event.ID), qrcode.Medium, qrSize)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}
