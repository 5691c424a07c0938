package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/sayyara-app/backend/internal/domain"
	"github.com/sayyara-app/backend/internal/repository"
	apperrors "github.com/sayyara-app/backend/pkg/errors"
)

// ProfileBootstrapper lazily creates the profile row backing a signed-in
// user.
type ProfileBootstrapper interface {
	// EnsureProfile returns the user's profile, creating the default one
	// when none exists yet. A nil result means the profile could not be
	// loaded; the session itself is still usable.
	EnsureProfile(ctx context.Context, userID string) *domain.Profile
}

// Bootstrapper implements ProfileBootstrapper against the profile
// repository.
type Bootstrapper struct {
	profiles repository.ProfileRepository
	logger   *slog.Logger
}

// NewBootstrapper creates a profile bootstrapper.
func NewBootstrapper(profiles repository.ProfileRepository, logger *slog.Logger) *Bootstrapper {
	return &Bootstrapper{profiles: profiles, logger: logger}
}

// EnsureProfile reads the profile for userID. When the row does not exist it
// inserts the defaults idempotently and re-reads, so two devices racing on a
// first sign-in both end up observing the single surviving row. Unexpected
// failures are logged and yield nil without retrying.
func (b *Bootstrapper) EnsureProfile(ctx context.Context, userID string) *domain.Profile {
	profile, err := b.profiles.GetByID(ctx, userID)
	if err == nil {
		return profile
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		b.logger.ErrorContext(ctx, "load profile failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	if err := b.profiles.CreateIfAbsent(ctx, domain.NewDefaultProfile(userID)); err != nil {
		b.logger.ErrorContext(ctx, "bootstrap profile failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	profile, err = b.profiles.GetByID(ctx, userID)
	if err != nil {
		b.logger.ErrorContext(ctx, "reload bootstrapped profile failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil
	}

	return profile
}
