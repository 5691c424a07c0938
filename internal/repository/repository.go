package repository

import (
	"context"
	"time"

	"github.com/sayyara-app/backend/internal/domain"
)

// UserRepository defines the interface for auth identity persistence.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Delete removes a user from the store by their identifier.
	Delete(ctx context.Context, id string) error
}

// ProfileRepository defines the interface for profile persistence.
type ProfileRepository interface {
	// CreateIfAbsent inserts the profile unless a row with the same id
	// already exists. The insert is idempotent: concurrent first sign-ins
	// racing on the same user id leave exactly one row behind.
	CreateIfAbsent(ctx context.Context, profile *domain.Profile) error

	// GetByID retrieves a profile by user id.
	GetByID(ctx context.Context, id string) (*domain.Profile, error)

	// Update modifies the mutable self-service fields (full name, avatar).
	Update(ctx context.Context, profile *domain.Profile) error

	// UpdateAccess sets the access tier for the given profile.
	UpdateAccess(ctx context.Context, id, access string) error

	// SetPushToken stores the device push token and enables notifications
	// in a single write.
	SetPushToken(ctx context.Context, id, token string) error

	// ClearPushToken removes the push token and disables notifications in
	// a single write, so the pair can never diverge.
	ClearPushToken(ctx context.Context, id string) error

	// ListByRole returns all profiles with the given role, excluding the
	// profile identified by excludeID when it is non-empty.
	ListByRole(ctx context.Context, role, excludeID string) ([]domain.Profile, error)

	// ListPushTargets returns the push tokens of all profiles with
	// notifications enabled and a non-null token.
	ListPushTargets(ctx context.Context) ([]string, error)

	// Delete removes a profile by user id.
	Delete(ctx context.Context, id string) error
}

// RequestRepository defines the interface for booking request persistence.
type RequestRepository interface {
	// Create inserts a new inspection request.
	Create(ctx context.Context, request *domain.InspectionRequest) error

	// GetByID retrieves a request by its identifier.
	GetByID(ctx context.Context, id string) (*domain.InspectionRequest, error)

	// ListByUserID returns all requests created by the given user, newest
	// first.
	ListByUserID(ctx context.Context, userID string) ([]domain.InspectionRequest, error)

	// List returns a page of all requests, newest first, plus the total
	// row count.
	List(ctx context.Context, offset, limit int) ([]domain.InspectionRequest, int, error)

	// TransitionStatus moves a request from one status to another. The
	// update is conditional on the current status so illegal or stale
	// transitions affect zero rows and report a conflict.
	TransitionStatus(ctx context.Context, id, from, to string) error

	// Delete removes a request by its identifier.
	Delete(ctx context.Context, id string) error
}

// BroadcastRepository defines the interface for the broadcast audit log.
type BroadcastRepository interface {
	// Create appends one audit row. Broadcast rows are write-once.
	Create(ctx context.Context, broadcast *domain.Broadcast) error

	// List returns a page of past broadcasts, newest first, plus the total
	// row count.
	List(ctx context.Context, offset, limit int) ([]domain.Broadcast, int, error)
}

// RefreshTokenRepository defines the interface for refresh token persistence.
type RefreshTokenRepository interface {
	// Create stores a new refresh token hash.
	Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error

	// GetByHash retrieves a refresh token record by its hash.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)

	// Revoke revokes a specific refresh token by its hash.
	Revoke(ctx context.Context, tokenHash string) error

	// RevokeByUserID revokes all refresh tokens for the given user.
	RevokeByUserID(ctx context.Context, userID string) error
}
