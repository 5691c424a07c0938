package http

import (
	"net/http"
	"strings"
)

// deviceIDHeader carries the installation-scoped device identifier the
// mobile app generates on first launch. Session snapshots are keyed by it.
const deviceIDHeader = "X-Device-ID"

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 {
			ct := r.Header.Get("Content-Type")
			if !strings.HasPrefix(ct, "application/json") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnsupportedMediaType)
				_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// deviceID extracts the device identifier from the request, if any.
func deviceID(r *http.Request) string {
	return r.Header.Get(deviceIDHeader)
}

// bearerToken extracts the access token from the Authorization header
// without validating it. Session checks accept expired tokens and degrade
// instead of rejecting.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
