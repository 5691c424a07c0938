package middleware

import (
	"log/slog"
	"net/http"

	"github.com/sayyara-app/backend/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, pre-tagged
// with the correlation ID, user ID, and otel trace IDs already present
// there. Handlers pick it up with logger.FromContext. Mount it after
// RequestLogging and Tracing so those fields exist, and after Auth when the
// user ID should come from the token.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if userID := requestUserID(r); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestUserID prefers the authenticated user ID over the X-User-ID header,
// which only unauthenticated internal routes rely on.
func requestUserID(r *http.Request) string {
	if id := UserIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-User-ID")
}
