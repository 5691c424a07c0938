package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sayyara-app/backend/internal/broadcast"
	"github.com/sayyara-app/backend/internal/domain"
	"github.com/sayyara-app/backend/internal/event"
	"github.com/sayyara-app/backend/internal/repository"
	apperrors "github.com/sayyara-app/backend/pkg/errors"
)

// MsgSelfDeleteAr is the localized message returned when an admin tries to
// delete their own account.
const MsgSelfDeleteAr = "لا يمكنك حذف حسابك الخاص"

// AdminService implements the admin dashboard operations: managing admin
// accounts, access tiers, and push broadcasts.
type AdminService struct {
	users      repository.UserRepository
	profiles   repository.ProfileRepository
	tokens     repository.RefreshTokenRepository
	broadcasts repository.BroadcastRepository
	sender     *broadcast.Sender
	producer   *event.Producer
	logger     *slog.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	tokens repository.RefreshTokenRepository,
	broadcasts repository.BroadcastRepository,
	sender *broadcast.Sender,
	producer *event.Producer,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		users:      users,
		profiles:   profiles,
		tokens:     tokens,
		broadcasts: broadcasts,
		sender:     sender,
		producer:   producer,
		logger:     logger,
	}
}

// CreateAdminInput holds the parameters for creating an admin account.
type CreateAdminInput struct {
	Email    string
	Password string
	FullName string
}

// ListAdmins returns every admin profile except the caller's own.
func (s *AdminService) ListAdmins(ctx context.Context, actorID string) ([]domain.Profile, error) {
	admins, err := s.profiles.ListByRole(ctx, domain.RoleAdmin, actorID)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// CreateAdmin provisions a new admin account with the limited access tier.
// Only full-access admins may create admins.
func (s *AdminService) CreateAdmin(ctx context.Context, actorID string, input CreateAdminInput) (*domain.Profile, error) {
	if err := requireFullAccess(ctx, s.profiles, actorID); err != nil {
		return nil, err
	}

	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, apperrors.InvalidInput("a valid email is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	if input.FullName == "" {
		return nil, apperrors.InvalidInput("full name is required")
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
		return nil, fmt.Errorf("create admin user: %w", err)
	}

	// New admins start on the limited tier; a full-access admin promotes
	// them explicitly with a toggle.
	profile := domain.NewDefaultProfile(user.ID)
	profile.FullName = input.FullName
	profile.Role = domain.RoleAdmin

	if err := s.profiles.CreateIfAbsent(ctx, profile); err != nil {
		return nil, fmt.Errorf("create admin profile: %w", err)
	}

	s.logger.InfoContext(ctx, "admin created",
		slog.String("admin_id", user.ID),
		slog.String("created_by", actorID),
	)

	return profile, nil
}

// ToggleAccess flips the target admin's access tier between full and
// limited. Only full-access admins may toggle, and never on themselves.
func (s *AdminService) ToggleAccess(ctx context.Context, actorID, targetID string) (*domain.Profile, error) {
	if err := requireFullAccess(ctx, s.profiles, actorID); err != nil {
		return nil, err
	}

	if actorID == targetID {
		return nil, apperrors.Forbidden("you cannot change your own access tier").Localize(MsgForbiddenAr)
	}

	target, err := s.profiles.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("get target profile: %w", err)
	}

	next := domain.ToggledAccess(target.Access)
	if err := s.profiles.UpdateAccess(ctx, targetID, next); err != nil {
		return nil, fmt.Errorf("update access: %w", err)
	}
	target.Access = next

	// Publish access change event (non-blocking on failure).
	if err := s.producer.PublishProfileAccessChanged(ctx, targetID, next, actorID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish profile.access_changed event",
			slog.String("profile_id", targetID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "access toggled",
		slog.String("profile_id", targetID),
		slog.String("access", next),
		slog.String("changed_by", actorID),
	)

	return target, nil
}

// DeleteProfile removes an account entirely. Only full-access admins may
// delete, and never their own account.
func (s *AdminService) DeleteProfile(ctx context.Context, actorID, targetID string) error {
	if err := requireFullAccess(ctx, s.profiles, actorID); err != nil {
		return err
	}

	if actorID == targetID {
		return apperrors.Forbidden("you cannot delete your own account").Localize(MsgSelfDeleteAr)
	}

	if err := s.tokens.RevokeByUserID(ctx, targetID); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke refresh tokens before profile deletion",
			slog.String("profile_id", targetID),
			slog.String("error", err.Error()),
		)
	}

	// The profile row goes with the user via the foreign-key cascade.
	if err := s.users.Delete(ctx, targetID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.InfoContext(ctx, "profile deleted",
		slog.String("profile_id", targetID),
		slog.String("deleted_by", actorID),
	)

	return nil
}

// BroadcastInput holds the parameters for a push broadcast.
type BroadcastInput struct {
	Title   string
	Body    string
	Payload map[string]any
}

// SendBroadcast fans a push notification out to every opted-in profile.
// Only full-access admins may broadcast.
func (s *AdminService) SendBroadcast(ctx context.Context, actorID string, input BroadcastInput) (*broadcast.Result, error) {
	if err := requireFullAccess(ctx, s.profiles, actorID); err != nil {
		return nil, err
	}

	if input.Title == "" {
		return nil, apperrors.InvalidInput("title is required")
	}
	if input.Body == "" {
		return nil, apperrors.InvalidInput("body is required")
	}

	result, err := s.sender.Send(ctx, broadcast.Input{
		SenderID: actorID,
		Title:    input.Title,
		Body:     input.Body,
		Payload:  input.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("send broadcast: %w", err)
	}

	return result, nil
}

// ListBroadcasts returns a page of past broadcasts, newest first, plus the
// total row count.
func (s *AdminService) ListBroadcasts(ctx context.Context, offset, limit int) ([]domain.Broadcast, int, error) {
	broadcasts, total, err := s.broadcasts.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list broadcasts: %w", err)
	}
	return broadcasts, total, nil
}
