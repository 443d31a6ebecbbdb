package bluxguard

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Middleware returns an http.Handler that evaluates each request as a
// guard envelope before passing to the next handler.
// Blocked requests receive a 403 with a JSON body.
func (c *Client) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env := envelopeFromRequest(r)
		result, err := c.Evaluate(r.Context(), env, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if !result.Allowed() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{
				"blocked":      true,
				"decision":     string(result.Decision),
				"reason_codes": result.ReasonCodes,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// envelopeFromRequest maps an HTTP request to a guard envelope. The
// method and path stand in for the command surface; tokens ride on the
// Authorization header.
func envelopeFromRequest(r *http.Request) Envelope {
	env := Envelope{
		Command: strings.ToLower(r.Method) + " " + r.URL.Path,
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		if tok, ok := strings.CutPrefix(auth, "Bearer "); ok {
			env.CapabilityToken = tok
		}
	}

	return env
}
