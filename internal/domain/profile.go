package domain

import (
	"time"
)

// Role constants define the allowed profile roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Access constants define the admin permission tiers. Limited admins can
// view dashboards; full-access admins can additionally perform destructive
// actions (delete accounts, toggle access, send broadcasts).
const (
	AccessFull    = "full"
	AccessLimited = "limit"
)

// User is the authentication identity. It is created once at signup and is
// immutable afterwards apart from deletion.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the application-level record attached to a User. It is created
// lazily on first successful sign-in with default role and access.
type Profile struct {
	ID                  string    `json:"id"`
	FullName            string    `json:"full_name"`
	AvatarURL           string    `json:"avatar_url,omitempty"`
	Role                string    `json:"role"`
	Access              string    `json:"access"`
	ExpoPushToken       *string   `json:"expo_push_token,omitempty"`
	NotificationEnabled bool      `json:"notification_enabled"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// NewDefaultProfile returns the profile that is bootstrapped on first
// sign-in: role "user", limited access, notifications disabled.
func NewDefaultProfile(userID string) *Profile {
	now := time.Now().UTC()
	return &Profile{
		ID:                  userID,
		Role:                RoleUser,
		Access:              AccessLimited,
		NotificationEnabled: false,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// IsAdmin reports whether the profile belongs to an admin account.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// HasFullAccess reports whether the profile may perform destructive admin
// actions.
func (p *Profile) HasFullAccess() bool {
	return p.Role == RoleAdmin && p.Access == AccessFull
}

// ToggledAccess returns the opposite access tier.
func ToggledAccess(access string) string {
	if access == AccessFull {
		return AccessLimited
	}
	return AccessFull
}

// ValidRoles returns the set of valid profile roles.
func ValidRoles() []string {
	return []string{RoleUser, RoleAdmin}
}

// IsValidRole checks whether the given role string is a valid profile role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// ValidAccessLevels returns the set of valid access tiers.
func ValidAccessLevels() []string {
	return []string{AccessFull, AccessLimited}
}

// IsValidAccess checks whether the given access string is a valid tier.
func IsValidAccess(access string) bool {
	for _, a := range ValidAccessLevels() {
		if a == access {
			return true
		}
	}
	return false
}
