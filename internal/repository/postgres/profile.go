package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sayyara-app/backend/internal/domain"
	apperrors "github.com/sayyara-app/backend/pkg/errors"
)

const profileColumns = `id, full_name, avatar_url, role, access, expo_push_token, notification_enabled, created_at, updated_at`

// ProfileRepository implements repository.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	db DB
}

// NewProfileRepository creates a new PostgreSQL-backed profile repository.
func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// CreateIfAbsent inserts the profile unless one already exists for the same
// user id. ON CONFLICT DO NOTHING makes the bootstrap idempotent: when two
// devices race on a first sign-in, the second insert is a no-op rather than
// an error, and both callers re-read the surviving row.
func (r *ProfileRepository) CreateIfAbsent(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, full_name, avatar_url, role, access, expo_push_token, notification_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.FullName,
		p.AvatarURL,
		p.Role,
		p.Access,
		p.ExpoPushToken,
		p.NotificationEnabled,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}

	return nil
}

// GetByID retrieves a profile by user id.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

	row := r.db.QueryRow(ctx, query, id)
	p, err := scanProfileRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	return p, nil
}

// Update modifies the self-service fields of an existing profile.
func (r *ProfileRepository) Update(ctx context.Context, p *domain.Profile) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE profiles
		SET full_name = $1, avatar_url = $2, updated_at = $3
		WHERE id = $4`

	ct, err := r.db.Exec(ctx, query, p.FullName, p.AvatarURL, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("profile", p.ID)
	}

	return nil
}

// UpdateAccess sets the access tier for the given profile.
func (r *ProfileRepository) UpdateAccess(ctx context.Context, id, access string) error {
	query := `UPDATE profiles SET access = $1, updated_at = $2 WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, access, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update profile access: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("profile", id)
	}

	return nil
}

// SetPushToken stores the device push token and enables notifications in
// one statement.
func (r *ProfileRepository) SetPushToken(ctx context.Context, id, token string) error {
	query := `
		UPDATE profiles
		SET expo_push_token = $1, notification_enabled = true, updated_at = $2
		WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, token, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set push token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("profile", id)
	}

	return nil
}

// ClearPushToken removes the push token and disables notifications in one
// statement, so the two fields can never be observed out of step.
func (r *ProfileRepository) ClearPushToken(ctx context.Context, id string) error {
	query := `
		UPDATE profiles
		SET expo_push_token = NULL, notification_enabled = false, updated_at = $1
		WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("clear push token: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("profile", id)
	}

	return nil
}

// ListByRole returns all profiles with the given role, excluding one id.
func (r *ProfileRepository) ListByRole(ctx context.Context, role, excludeID string) ([]domain.Profile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE role = $1 AND ($2 = '' OR id <> $2)
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, role, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list profiles by role: %w", err)
	}
	defer rows.Close()

	profiles := []domain.Profile{}
	for rows.Next() {
		p, err := scanProfileRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		profiles = append(profiles, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile rows: %w", err)
	}

	return profiles, nil
}

// ListPushTargets returns the tokens of every profile with notifications
// enabled and a non-null push token.
func (r *ProfileRepository) ListPushTargets(ctx context.Context) ([]string, error) {
	query := `
		SELECT expo_push_token
		FROM profiles
		WHERE notification_enabled = true AND expo_push_token IS NOT NULL`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list push targets: %w", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("scan push token: %w", err)
		}
		if token != "" {
			tokens = append(tokens, token)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate push target rows: %w", err)
	}

	return tokens, nil
}

// Delete removes a profile by user id.
func (r *ProfileRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM profiles WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("profile", id)
	}

	return nil
}

// scanProfileRow scans one profiles row in profileColumns order.
func scanProfileRow(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(
		&p.ID,
		&p.FullName,
		&p.AvatarURL,
		&p.Role,
		&p.Access,
		&p.ExpoPushToken,
		&p.NotificationEnabled,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
