package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sayyara-app/backend/internal/auth"
	"github.com/sayyara-app/backend/internal/domain"
	"github.com/sayyara-app/backend/internal/push"
	"github.com/sayyara-app/backend/internal/repository"
	"github.com/sayyara-app/backend/internal/service"
	"github.com/sayyara-app/backend/internal/session"
	"github.com/sayyara-app/backend/pkg/health"
	"github.com/sayyara-app/backend/pkg/middleware"
)

// RouterConfig groups the handler dependencies and the middleware knobs.
type RouterConfig struct {
	Accounts      *service.AccountService
	Requests      *service.RequestService
	Admins        *service.AdminService
	Store         *session.Store
	Registrar     *push.Registrar
	Profiles      repository.ProfileRepository
	JWTManager    *auth.JWTManager
	HealthHandler *health.Handler
	Logger        *slog.Logger
	CORS          middleware.CORSConfig
	AuthRateLimit middleware.RateLimitConfig
	PprofCIDRs    []string
}

// NewRouter creates a chi router with all backend routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Tracing("backend"))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.PrometheusMetrics("backend"))

	// Health and metrics endpoints
	r.Get("/health/live", cfg.HealthHandler.LivenessHandler())
	r.Get("/health/ready", cfg.HealthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	if len(cfg.PprofCIDRs) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)
	}

	// Token validator that bridges to the internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := cfg.JWTManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
			Role:   claims.Role,
		}, nil
	}

	authHandler := NewAuthHandler(cfg.Accounts, cfg.Store, cfg.JWTManager, cfg.Logger)
	sessionHandler := NewSessionHandler(cfg.Store, cfg.Logger)
	profileHandler := NewProfileHandler(cfg.Profiles, cfg.Accounts, cfg.Store, cfg.Logger)
	notificationHandler := NewNotificationHandler(cfg.Registrar, cfg.Logger)
	requestHandler := NewRequestHandler(cfg.Requests, cfg.Logger)
	adminHandler := NewAdminHandler(cfg.Requests, cfg.Admins, cfg.Logger)

	rateLimiter := middleware.NewRateLimiter(cfg.AuthRateLimit)

	// Auth endpoints (public, rate limited per client)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.RateLimit(rateLimiter))

		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)
	})

	// Session check (public: degrades instead of rejecting)
	r.Get("/api/v1/session", sessionHandler.Get)

	// Rider endpoints (auth required)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Get("/profiles/me", profileHandler.GetMe)
		r.Patch("/profiles/me", profileHandler.UpdateMe)
		r.Delete("/profiles/me", profileHandler.DeleteMe)

		r.Post("/notifications/register", notificationHandler.Register)
		r.Delete("/notifications/register", notificationHandler.Unregister)

		r.Post("/requests", requestHandler.Create)
		r.Get("/requests/mine", requestHandler.ListMine)
	})

	// Admin endpoints (admin role required; access-tier checks live in the
	// services, which load the acting profile per call)
	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))
		r.Use(middleware.RequireRole(domain.RoleAdmin))

		r.Get("/requests", adminHandler.ListRequests)
		r.Post("/requests/{id}/accept", adminHandler.AcceptRequest)
		r.Post("/requests/{id}/reject", adminHandler.RejectRequest)
		r.Post("/requests/{id}/complete", adminHandler.CompleteRequest)
		r.Delete("/requests/{id}", adminHandler.DeleteRequest)

		r.Get("/profiles", adminHandler.ListProfiles)
		r.Post("/profiles", adminHandler.CreateProfile)
		r.Patch("/profiles/{id}/access", adminHandler.ToggleAccess)
		r.Delete("/profiles/{id}", adminHandler.DeleteProfile)

		r.Post("/broadcasts", adminHandler.SendBroadcast)
		r.Get("/broadcasts", adminHandler.ListBroadcasts)
	})

	return r
}
