package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sayyara-app/backend/internal/service"
	"github.com/sayyara-app/backend/pkg/httputil"
	"github.com/sayyara-app/backend/pkg/middleware"
	"github.com/sayyara-app/backend/pkg/validator"
)

// RequestHandler handles HTTP requests for rider-side booking endpoints.
type RequestHandler struct {
	service *service.RequestService
	logger  *slog.Logger
}

// NewRequestHandler creates a new request HTTP handler.
func NewRequestHandler(svc *service.RequestService, logger *slog.Logger) *RequestHandler {
	return &RequestHandler{service: svc, logger: logger}
}

// CreateRequestRequest is the JSON request body for booking an inspection
// trip.
type CreateRequestRequest struct {
	From  string    `json:"from" validate:"required,min=1,max=200"`
	To    string    `json:"to" validate:"required,min=1,max=200"`
	Time  time.Time `json:"time" validate:"required"`
	Phone string    `json:"phone" validate:"required,min=7,max=20"`
}

// Create handles POST /api/v1/requests.
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateRequestRequest
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

	request, err := h.service.Create(r.Context(), userID, service.CreateRequestInput{
		FromLocation: req.From,
		ToLocation:   req.To,
		ScheduledAt:  req.Time,
		Phone:        req.Phone,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: request})
}

// ListMine handles GET /api/v1/requests/mine.
func (h *RequestHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())

	requests, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: requests})
}
