package http

import (
	"log/slog"
	"net/http"

	"github.com/sayyara-app/backend/internal/session"
	"github.com/sayyara-app/backend/pkg/httputil"
)

// SessionHandler handles HTTP requests for the session check endpoint.
type SessionHandler struct {
	store  *session.Store
	logger *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(store *session.Store, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{store: store, logger: logger}
}

// Get handles GET /api/v1/session. The endpoint is public and always
// answers 200: an invalid or absent token degrades through the device
// snapshot and the refresh exchange before reporting unauthenticated.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	state := h.store.CheckSession(r.Context(), deviceID(r), bearerToken(r))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}
