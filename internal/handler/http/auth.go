package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sayyara-app/backend/internal/auth"
	"github.com/sayyara-app/backend/internal/service"
	"github.com/sayyara-app/backend/internal/session"
	"github.com/sayyara-app/backend/pkg/httputil"
	"github.com/sayyara-app/backend/pkg/validator"
)

// AuthHandler handles HTTP requests for auth endpoints.
type AuthHandler struct {
	accounts *service.AccountService
	store    *session.Store
	jwt      *auth.JWTManager
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(accounts *service.AccountService, store *session.Store, jwt *auth.JWTManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, store: store, jwt: jwt, logger: logger}
}

// --- Request DTOs ---

// SignupRequest is the JSON request body for account creation.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"omitempty,min=1,max=100"`
}

// LoginRequest is the JSON request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the JSON request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// --- Handlers ---

// Signup handles POST /api/v1/auth/signup. The new account is signed in
// immediately so the app lands on the home screen, not the login form.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SignupRequest
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

	if _, err := h.accounts.Signup(r.Context(), service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	}); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	state := h.store.Login(r.Context(), deviceID(r), req.Email, req.Password)
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: state})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req LoginRequest
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

	state := h.store.Login(r.Context(), deviceID(r), req.Email, req.Password)
	if !state.Authenticated {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{
				Code:      "INVALID_CREDENTIALS",
				Message:   state.Error,
				MessageAr: state.ErrorAr,
			},
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req RefreshRequest
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

	state, err := h.store.Refresh(r.Context(), deviceID(r), req.RefreshToken)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}

// Logout handles POST /api/v1/auth/logout. The endpoint is public: a rider
// with an expired token can still sign out, so the bearer token is decoded
// leniently just to learn who is leaving.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if token := bearerToken(r); token != "" {
		if claims, err := h.jwt.ValidateAccessToken(token); err == nil {
			userID = claims.UserID
		}
	}

	state := h.store.Logout(r.Context(), deviceID(r), userID)
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: state})
}
