package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sayyara-app/backend/internal/repository"
	"github.com/sayyara-app/backend/internal/service"
	"github.com/sayyara-app/backend/internal/session"
	"github.com/sayyara-app/backend/pkg/httputil"
	"github.com/sayyara-app/backend/pkg/middleware"
	"github.com/sayyara-app/backend/pkg/validator"
)

// ProfileHandler handles HTTP requests for the rider's own profile.
type ProfileHandler struct {
	profiles repository.ProfileRepository
	accounts *service.AccountService
	store    *session.Store
	logger   *slog.Logger
}

// NewProfileHandler creates a new profile HTTP handler.
func NewProfileHandler(profiles repository.ProfileRepository, accounts *service.AccountService, store *session.Store, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, accounts: accounts, store: store, logger: logger}
}

// UpdateProfileRequest is the JSON request body for a partial profile update.
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,min=1,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

// GetMe handles GET /api/v1/profiles/me.
func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	profile, err := h.profiles.GetByID(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profile})
}

// DeleteMe handles DELETE /api/v1/profiles/me. The account, its profile and
// its sessions are removed, and the device is signed out.
func (h *ProfileHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	if err := h.accounts.DeleteAccount(r.Context(), userID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.store.Logout(r.Context(), deviceID(r), userID)

	w.WriteHeader(http.StatusNoContent)
}

// UpdateMe handles PATCH /api/v1/profiles/me. The update goes through the
// session store so the device snapshot stays in step with the row.
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())

	profile, err := h.store.UpdateProfile(r.Context(), deviceID(r), userID, session.UpdateProfileInput{
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profile})
}
