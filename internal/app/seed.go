package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sayyara-app/backend/internal/domain"
	"github.com/sayyara-app/backend/internal/repository"
	apperrors "github.com/sayyara-app/backend/pkg/errors"
)

// adminSeed is the YAML shape of the initial admin file.
type adminSeed struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
}

// seedAdmin provisions the initial full-access admin from a YAML file. The
// seed is idempotent: if an account with the seed email already exists,
// nothing is written.
func seedAdmin(
	ctx context.Context,
	path string,
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	logger *slog.Logger,
) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file %s: %w", path, err)
	}

	var seed adminSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if seed.Email == "" || seed.Password == "" {
		return fmt.Errorf("seed file %s: email and password are required", path)
	}

	if _, err := users.GetByEmail(ctx, seed.Email); err == nil {
		logger.Info("admin seed already applied", slog.String("email", seed.Email))
		return nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("look up seed admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), 12)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        seed.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("create seed admin: %w", err)
	}

	profile := domain.NewDefaultProfile(user.ID)
	profile.FullName = seed.FullName
	profile.Role = domain.RoleAdmin
	profile.Access = domain.AccessFull
	if err := profiles.CreateIfAbsent(ctx, profile); err != nil {
		return fmt.Errorf("create seed admin profile: %w", err)
	}

	logger.Info("admin seed applied", slog.String("email", seed.Email))
	return nil
}
