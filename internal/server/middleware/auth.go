package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// apiKeyHeader is the alternative to the Bearer scheme for clients that
// cannot set an Authorization header, such as dashboard EventSource requests.
const apiKeyHeader = "X-API-Key"

// Auth returns middleware enforcing the server's static API key, accepted
// either as "Authorization: Bearer <key>" or in the X-API-Key header. An
// empty key disables the check, which is the default for local use.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := requestToken(r)
			switch {
			case token == "":
				unauthorized(w, "missing API key")
			case subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1:
				unauthorized(w, "invalid API key")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func requestToken(r *http.Request) string {
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return strings.TrimSpace(r.Header.Get(apiKeyHeader))
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
