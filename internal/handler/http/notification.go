package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sayyara-app/backend/internal/push"
	"github.com/sayyara-app/backend/pkg/httputil"
	"github.com/sayyara-app/backend/pkg/middleware"
)

// NotificationHandler handles HTTP requests for push token registration.
type NotificationHandler struct {
	registrar *push.Registrar
	logger    *slog.Logger
}

// NewNotificationHandler creates a new notification HTTP handler.
func NewNotificationHandler(registrar *push.Registrar, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{registrar: registrar, logger: logger}
}

// RegisterTokenRequest is the JSON request body for push registration. The
// token is the Expo push token the device obtained after the permission
// prompt; an empty token means the rider declined.
type RegisterTokenRequest struct {
	Token string `json:"token"`
}

// Register handles POST /api/v1/notifications/register.
func (h *NotificationHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	userID := middleware.UserIDFromContext(r.Context())

	result := h.registrar.RegisterToken(r.Context(), deviceID(r), userID, req.Token)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Unregister handles DELETE /api/v1/notifications/register.
func (h *NotificationHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := h.registrar.Disable(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.registrar.Reset(deviceID(r))

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]string{"message": "notifications disabled"},
	})
}
