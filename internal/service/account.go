package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sayyara-app/backend/internal/domain"
	"github.com/sayyara-app/backend/internal/event"
	"github.com/sayyara-app/backend/internal/repository"
	apperrors "github.com/sayyara-app/backend/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// AccountService implements signup and account removal.
type AccountService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	tokens   repository.RefreshTokenRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	tokens repository.RefreshTokenRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:    users,
		profiles: profiles,
		tokens:   tokens,
		producer: producer,
		logger:   logger,
	}
}

// SignupInput holds the parameters for creating a new account.
type SignupInput struct {
	Email    string
	Password string
	FullName string
}

// Signup creates a new auth identity. The profile row is not created here;
// it is bootstrapped on the first successful sign-in.
func (s *AccountService) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, apperrors.InvalidInput("a valid email is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if input.FullName != "" {
		profile := domain.NewDefaultProfile(user.ID)
		profile.FullName = input.FullName
		if err := s.profiles.CreateIfAbsent(ctx, profile); err != nil {
			s.logger.ErrorContext(ctx, "failed to pre-create profile at signup",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user signed up",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// DeleteAccount removes a user together with their sessions. The profile row
// is removed by the foreign-key cascade.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.tokens.RevokeByUserID(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh tokens before account deletion",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.InfoContext(ctx, "account deleted",
		slog.String("user_id", userID),
	)

	return nil
}

// validatePassword checks that the password meets minimum complexity
// requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasLetter, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsLetter(ch):
			hasLetter = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasLetter || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one letter and one digit")
	}

	return nil
}
