package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth returns middleware that guards the status API with a static key.
// Clients present the key either as "Authorization: Bearer <key>" or in the
// X-API-Key header. An empty key disables the check entirely.
func Auth(apiKey string) func(http.Handler) http.Handler {
	key := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// If no API key is configured, authentication is disabled.
			if len(key) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			presented := presentedKey(r)
			if presented == "" {
				writeUnauthorized(w, "missing API key")
				return
			}

			// Constant-time comparison to prevent timing attacks.
			if subtle.ConstantTimeCompare([]byte(presented), key) != 1 {
				writeUnauthorized(w, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// presentedKey extracts the client's key from the request headers.
func presentedKey(r *http.Request) string {
	// Check Authorization: Bearer <key>
	if auth := r.Header.Get("Authorization"); auth != "" {
		scheme, rest, ok := strings.Cut(auth, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(rest)
		}
	}

	// Check X-API-Key header.
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}

	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
