package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sayyara-app/backend/internal/auth"
	"github.com/sayyara-app/backend/internal/domain"
	"github.com/sayyara-app/backend/internal/repository"
	apperrors "github.com/sayyara-app/backend/pkg/errors"
)

// User-facing login failure, in both languages the app renders.
const (
	MsgInvalidCredentials   = "Invalid login credentials"
	MsgInvalidCredentialsAr = "بيانات الدخول غير صحيحة"

	msgLoginFailed = "login failed"
)

// ChangeEvent identifies what happened to a device's session.
type ChangeEvent string

const (
	EventSignedIn       ChangeEvent = "signed_in"
	EventSignedOut      ChangeEvent = "signed_out"
	EventTokenRefreshed ChangeEvent = "token_refreshed"
)

// Change is delivered to registered listeners on every session transition.
type Change struct {
	Event    ChangeEvent
	DeviceID string
	UserID   string
}

// Listener receives session change notifications.
type Listener func(Change)

// State is the result of every session operation. Operations degrade to an
// unauthenticated State instead of returning errors: a rider opening the app
// with a dead token gets the login screen, not a crash.
type State struct {
	Authenticated bool            `json:"authenticated"`
	Session       *domain.Session `json:"session,omitempty"`
	User          *domain.User    `json:"user,omitempty"`
	Profile       *domain.Profile `json:"profile,omitempty"`
	Error         string          `json:"error,omitempty"`
	ErrorAr       string          `json:"error_ar,omitempty"`
}

func unauthenticated() State {
	return State{Authenticated: false}
}

func loginFailure(msg, msgAr string) State {
	return State{Authenticated: false, Error: msg, ErrorAr: msgAr}
}

// NotificationDisabler tears down a user's push registration. Logout calls
// it before revoking credentials, while the session is still able to act on
// the user's behalf.
type NotificationDisabler interface {
	Disable(ctx context.Context, userID string) error
}

// UpdateProfileInput carries the partial self-service profile update. Nil
// fields are left untouched.
type UpdateProfileInput struct {
	FullName  *string
	AvatarURL *string
}

// Store owns the session lifecycle: login, logout, token validation with
// snapshot fallback, and profile updates, plus a listener registry that
// fans out session transitions to interested subsystems.
type Store struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	tokens   repository.RefreshTokenRepository
	jwt      *auth.JWTManager
	cache    SnapshotCache
	boot     ProfileBootstrapper
	logger   *slog.Logger

	mu        sync.RWMutex
	listeners []Listener
	disabler  NotificationDisabler
}

// NewStore creates a session store.
func NewStore(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	tokens repository.RefreshTokenRepository,
	jwtManager *auth.JWTManager,
	cache SnapshotCache,
	boot ProfileBootstrapper,
	logger *slog.Logger,
) *Store {
	return &Store{
		users:    users,
		profiles: profiles,
		tokens:   tokens,
		jwt:      jwtManager,
		cache:    cache,
		boot:     boot,
		logger:   logger,
	}
}

// SetNotificationDisabler wires the push registrar in after construction;
// the registrar itself subscribes to this store's changes.
func (s *Store) SetNotificationDisabler(d NotificationDisabler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabler = d
}

// OnChange registers a listener for session transitions.
func (s *Store) OnChange(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(change Change) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(change)
	}
}

// HashToken returns the hex SHA-256 of a refresh token, the only form in
// which refresh tokens are persisted.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Login verifies credentials and establishes an authenticated session for
// the device. The device snapshot is persisted before success is reported,
// so a crash right after login still leaves the device restorable. Bad
// credentials yield a failure State, never an error.
func (s *Store) Login(ctx context.Context, deviceID, email, password string) State {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.ErrorContext(ctx, "login lookup failed",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
			return loginFailure(msgLoginFailed, "")
		}
		return loginFailure(MsgInvalidCredentials, MsgInvalidCredentialsAr)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return loginFailure(MsgInvalidCredentials, MsgInvalidCredentialsAr)
	}

	profile := s.boot.EnsureProfile(ctx, user.ID)

	sess, err := s.issueSession(ctx, user, profile)
	if err != nil {
		s.logger.ErrorContext(ctx, "issue session failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return loginFailure(msgLoginFailed, "")
	}

	s.saveSnapshot(ctx, deviceID, sess, user, profile)
	s.notify(Change{Event: EventSignedIn, DeviceID: deviceID, UserID: user.ID})

	return State{Authenticated: true, Session: sess, User: user, Profile: profile}
}

// CheckSession resolves the device's session. A valid presented token wins;
// otherwise the stored snapshot is consulted and its refresh token
// exchanged. When everything fails the snapshot is cleared and the State
// degrades to unauthenticated. CheckSession never returns an error.
func (s *Store) CheckSession(ctx context.Context, deviceID, accessToken string) State {
	if accessToken != "" {
		if claims, err := s.jwt.ValidateAccessToken(accessToken); err == nil && claims.Email != "" {
			user, err := s.users.GetByID(ctx, claims.UserID)
			if err == nil {
				profile := s.boot.EnsureProfile(ctx, user.ID)
				sess := s.sessionFromSnapshot(ctx, deviceID, accessToken)
				s.saveSnapshot(ctx, deviceID, sess, user, profile)
				return State{Authenticated: true, Session: sess, User: user, Profile: profile}
			}
			s.logger.WarnContext(ctx, "session user lookup failed",
				slog.String("user_id", claims.UserID),
				slog.String("error", err.Error()),
			)
		}
	}

	return s.restoreFromSnapshot(ctx, deviceID)
}

// Logout tears the session down. Notifications are disabled first, while
// the session can still act for the user; each subsequent step proceeds
// even when the previous one failed, so the device always ends up signed
// out.
func (s *Store) Logout(ctx context.Context, deviceID, userID string) State {
	s.mu.RLock()
	disabler := s.disabler
	s.mu.RUnlock()

	if disabler != nil && userID != "" {
		if err := disabler.Disable(ctx, userID); err != nil {
			s.logger.WarnContext(ctx, "disable notifications on logout failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	if userID != "" {
		if err := s.tokens.RevokeByUserID(ctx, userID); err != nil {
			s.logger.WarnContext(ctx, "revoke refresh tokens failed",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.cache.Clear(ctx, deviceID); err != nil {
		s.logger.WarnContext(ctx, "clear session snapshot failed",
			slog.String("device_id", deviceID),
			slog.String("error", err.Error()),
		)
	}

	s.notify(Change{Event: EventSignedOut, DeviceID: deviceID, UserID: userID})

	return unauthenticated()
}

// UpdateProfile applies a partial profile update for the signed-in user and
// refreshes the device snapshot.
func (s *Store) UpdateProfile(ctx context.Context, deviceID, userID string, in UpdateProfileInput) (*domain.Profile, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("no user logged in")
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.FullName != nil {
		profile.FullName = *in.FullName
	}
	if in.AvatarURL != nil {
		profile.AvatarURL = *in.AvatarURL
	}

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, err
	}

	if snap, err := s.cache.Load(ctx, deviceID); err == nil {
		snap.Profile = profile
		s.saveSnapshot(ctx, deviceID, snap.Session, snap.User, profile)
	}

	return profile, nil
}

// issueSession mints a token pair and persists the refresh token hash.
func (s *Store) issueSession(ctx context.Context, user *domain.User, profile *domain.Profile) (*domain.Session, error) {
	role := domain.RoleUser
	if profile != nil {
		role = profile.Role
	}

	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Email, role)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.tokens.Create(ctx, user.ID, HashToken(refreshToken), now.Add(s.jwt.RefreshExpiry())); err != nil {
		return nil, err
	}

	return &domain.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(s.jwt.AccessExpiry()),
	}, nil
}

// restoreFromSnapshot attempts the refresh-token exchange for a device whose
// access token no longer validates.
func (s *Store) restoreFromSnapshot(ctx context.Context, deviceID string) State {
	snap, err := s.cache.Load(ctx, deviceID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "load session snapshot failed",
				slog.String("device_id", deviceID),
				slog.String("error", err.Error()),
			)
		}
		return unauthenticated()
	}

	if snap.Session == nil || snap.Session.RefreshToken == "" {
		s.clearSnapshot(ctx, deviceID)
		return unauthenticated()
	}

	state, err := s.Refresh(ctx, deviceID, snap.Session.RefreshToken)
	if err != nil {
		s.clearSnapshot(ctx, deviceID)
		return unauthenticated()
	}

	return state
}

// Refresh exchanges a refresh token for a new token pair, rotating the old
// token. Unlike the snapshot fallback this surface returns errors, because
// the /auth/refresh endpoint reports them to the client.
func (s *Store) Refresh(ctx context.Context, deviceID, refreshToken string) (State, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return unauthenticated(), apperrors.Unauthorized("invalid refresh token")
	}

	hash := HashToken(refreshToken)
	record, err := s.tokens.GetByHash(ctx, hash)
	if err != nil {
		return unauthenticated(), apperrors.Unauthorized("unknown refresh token")
	}
	if record.RevokedAt != nil {
		return unauthenticated(), apperrors.Unauthorized("refresh token revoked")
	}
	if time.Now().UTC().After(record.ExpiresAt) {
		return unauthenticated(), apperrors.Gone("refresh token expired")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return unauthenticated(), apperrors.Unauthorized("unknown user")
	}

	profile := s.boot.EnsureProfile(ctx, user.ID)

	if err := s.tokens.Revoke(ctx, hash); err != nil {
		s.logger.WarnContext(ctx, "rotate refresh token failed",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	sess, err := s.issueSession(ctx, user, profile)
	if err != nil {
		return unauthenticated(), apperrors.Internal(err)
	}

	s.saveSnapshot(ctx, deviceID, sess, user, profile)
	s.notify(Change{Event: EventTokenRefreshed, DeviceID: deviceID, UserID: user.ID})

	return State{Authenticated: true, Session: sess, User: user, Profile: profile}, nil
}

func (s *Store) saveSnapshot(ctx context.Context, deviceID string, sess *domain.Session, user *domain.User, profile *domain.Profile) {
	if deviceID == "" {
		return
	}
	snap := &domain.Snapshot{Session: sess, User: user, Profile: profile}
	if err := s.cache.Save(ctx, deviceID, snap); err != nil {
		s.logger.WarnContext(ctx, "save session snapshot failed",
			slog.String("device_id", deviceID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Store) clearSnapshot(ctx context.Context, deviceID string) {
	if err := s.cache.Clear(ctx, deviceID); err != nil {
		s.logger.WarnContext(ctx, "clear session snapshot failed",
			slog.String("device_id", deviceID),
			slog.String("error", err.Error()),
		)
	}
}

// sessionFromSnapshot rebuilds the session view for a device whose access
// token validated; the refresh token is carried over from the snapshot when
// present.
func (s *Store) sessionFromSnapshot(ctx context.Context, deviceID, accessToken string) *domain.Session {
	if snap, err := s.cache.Load(ctx, deviceID); err == nil && snap.Session != nil {
		snap.Session.AccessToken = accessToken
		return snap.Session
	}
	return &domain.Session{AccessToken: accessToken}
}
