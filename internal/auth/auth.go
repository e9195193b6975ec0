package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
)

// HeaderName carries the officer password on gated requests
const HeaderName = "X-Officer-Password"

// Naval words for password generation
var navalWords = []string{
	"anchor", "broadside", "frigate", "galleon", "cutter",
	"mast", "rigging", "bowsprit", "keel", "lugger",
	"brig", "corvette", "powder", "cannon", "harbor",
	"tack", "windward", "leeward", "sloop",
}

// GeneratePassword creates a random 3-word password
func GeneratePassword() string {
	words := make([]string, 3)
	for i := range words {
		words[i] = navalWords[randomInt(len(navalWords))]
	}
	return strings.Join(words, "-")
}

// Checker validates a candidate officer password
type Checker interface {
	Check(ctx context.Context, candidate string) (bool, int, error)
}

// Gate guards officer-only routes with the shared password. It keeps casual
// users out of officer actions and is not a security boundary.
type Gate struct {
	checker Checker
	enforce bool
}

// NewGate creates a Gate. With enforce false every request passes.
func NewGate(checker Checker, enforce bool) *Gate {
	return &Gate{checker: checker, enforce: enforce}
}

// Enforced reports whether the gate checks requests
func (g *Gate) Enforced() bool {
	return g.enforce
}

// RequireOfficer middleware for officer API endpoints (returns 403)
func (g *Gate) RequireOfficer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.enforce {
			next.ServeHTTP(w, r)
			return
		}

		ok, _, err := g.checker.Check(r.Context(), r.Header.Get(HeaderName))
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
			return
		}
		if !ok {
			writeJSON(w, http.StatusForbidden, "FORBIDDEN", "Forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"ok":    false,
		"code":  code,
		"error": message,
	})
}

// randomInt returns a uniform random int in [0, max)
func randomInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(n.Int64())
}
