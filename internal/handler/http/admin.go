package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sayyara-app/backend/internal/broadcast"
	"github.com/sayyara-app/backend/internal/domain"
	"github.com/sayyara-app/backend/internal/service"
	"github.com/sayyara-app/backend/pkg/httputil"
	"github.com/sayyara-app/backend/pkg/middleware"
	"github.com/sayyara-app/backend/pkg/pagination"
	"github.com/sayyara-app/backend/pkg/validator"
)

// Localized message shown in the dashboard when a broadcast finds nobody to
// notify.
const (
	msgNoRecipients   = "no users with notifications enabled"
	msgNoRecipientsAr = "لا يوجد مستخدمين مفعلين للإشعارات"
)

// AdminHandler handles HTTP requests for the admin dashboard endpoints.
type AdminHandler struct {
	requests *service.RequestService
	admins   *service.AdminService
	logger   *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(requests *service.RequestService, admins *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{requests: requests, admins: admins, logger: logger}
}

// --- Request DTOs ---

// CreateAdminRequest is the JSON request body for provisioning an admin.
type CreateAdminRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,min=1,max=100"`
}

// BroadcastRequest is the JSON request body for a push broadcast.
type BroadcastRequest struct {
	Title   string         `json:"title" validate:"required,min=1,max=200"`
	Body    string         `json:"body" validate:"required,min=1,max=2000"`
	Payload map[string]any `json:"payload"`
}

// BroadcastResponse is the JSON response for a completed broadcast.
type BroadcastResponse struct {
	BroadcastID string `json:"broadcast_id,omitempty"`
	Sent        int    `json:"sent"`
	Total       int    `json:"total"`
	Message     string `json:"message,omitempty"`
	MessageAr   string `json:"message_ar,omitempty"`
}

// --- Request management ---

// ListRequests handles GET /api/v1/admin/requests.
func (h *AdminHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	requests, total, err := h.requests.List(r.Context(), params.Offset, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(requests, total, params))
}

// AcceptRequest handles POST /api/v1/admin/requests/{id}/accept.
func (h *AdminHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	h.transitionRequest(w, r, h.requests.Accept)
}

// RejectRequest handles POST /api/v1/admin/requests/{id}/reject.
func (h *AdminHandler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.transitionRequest(w, r, h.requests.Reject)
}

// CompleteRequest handles POST /api/v1/admin/requests/{id}/complete.
func (h *AdminHandler) CompleteRequest(w http.ResponseWriter, r *http.Request) {
	h.transitionRequest(w, r, h.requests.Complete)
}

// DeleteRequest handles DELETE /api/v1/admin/requests/{id}.
func (h *AdminHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.UserIDFromContext(r.Context())
	requestID := chi.URLParam(r, "id")

	if err := h.requests.Delete(r.Context(), adminID, requestID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) transitionRequest(
	w http.ResponseWriter,
	r *http.Request,
	transition func(ctx context.Context, adminID, requestID string) (*domain.InspectionRequest, error),
) {
	adminID := middleware.UserIDFromContext(r.Context())
	requestID := chi.URLParam(r, "id")

	request, err := transition(r.Context(), adminID, requestID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: request})
}

// --- Admin accounts ---

// ListProfiles handles GET /api/v1/admin/profiles.
func (h *AdminHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.UserIDFromContext(r.Context())

	admins, err := h.admins.ListAdmins(r.Context(), adminID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: admins})
}

// CreateProfile handles POST /api/v1/admin/profiles.
func (h *AdminHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateAdminRequest
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

	adminID := middleware.UserIDFromContext(r.Context())

	profile, err := h.admins.CreateAdmin(r.Context(), adminID, service.CreateAdminInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: profile})
}

// ToggleAccess handles PATCH /api/v1/admin/profiles/{id}/access.
func (h *AdminHandler) ToggleAccess(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.UserIDFromContext(r.Context())
	targetID := chi.URLParam(r, "id")

	profile, err := h.admins.ToggleAccess(r.Context(), adminID, targetID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: profile})
}

// DeleteProfile handles DELETE /api/v1/admin/profiles/{id}.
func (h *AdminHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	adminID := middleware.UserIDFromContext(r.Context())
	targetID := chi.URLParam(r, "id")

	if err := h.admins.DeleteProfile(r.Context(), adminID, targetID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Broadcasts ---

// SendBroadcast handles POST /api/v1/admin/broadcasts.
func (h *AdminHandler) SendBroadcast(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req BroadcastRequest
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

	adminID := middleware.UserIDFromContext(r.Context())

	result, err := h.admins.SendBroadcast(r.Context(), adminID, service.BroadcastInput{
		Title:   req.Title,
		Body:    req.Body,
		Payload: req.Payload,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: broadcastResponse(result)})
}

// ListBroadcasts handles GET /api/v1/admin/broadcasts.
func (h *AdminHandler) ListBroadcasts(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	broadcasts, total, err := h.admins.ListBroadcasts(r.Context(), params.Offset, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(broadcasts, total, params))
}

func broadcastResponse(result *broadcast.Result) BroadcastResponse {
	resp := BroadcastResponse{
		BroadcastID: result.BroadcastID,
		Sent:        result.Sent,
		Total:       result.Total,
	}
	if result.Total == 0 {
		resp.Message = msgNoRecipients
		resp.MessageAr = msgNoRecipientsAr
	}
	return resp
}
