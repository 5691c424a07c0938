package domain

import (
	"time"
)

// Session is the bearer credential pair issued at login. The refresh token
// is persisted server-side only as a SHA-256 hash; the plain values live on
// the device and in the per-device snapshot cache.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// RefreshToken is a stored refresh token record.
type RefreshToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Snapshot is the locally cached copy of an authenticated device's state.
// It is the fallback used by session checks when the presented access token
// is no longer valid.
type Snapshot struct {
	Session *Session `json:"session"`
	User    *User    `json:"user"`
	Profile *Profile `json:"profile,omitempty"`
}
