package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sayyara-app/backend/internal/repository"
	"github.com/sayyara-app/backend/internal/session"
	apperrors "github.com/sayyara-app/backend/pkg/errors"
)

// ErrPermissionDenied is returned by a TokenSource when the device refused
// the notification permission prompt.
var ErrPermissionDenied = errors.New("notification permission denied")

// TokenSource obtains the push token for a session's device. It models the
// OS-side permission prompt and token fetch, which is the step that can be
// denied by the user.
type TokenSource interface {
	Token(ctx context.Context, sessionID string) (string, error)
}

// TokenSourceFunc adapts a function to the TokenSource interface.
type TokenSourceFunc func(ctx context.Context, sessionID string) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context, sessionID string) (string, error) {
	return f(ctx, sessionID)
}

// StaticTokenSource returns the token the device itself presented, which is
// the normal case for the HTTP register endpoint.
func StaticTokenSource(token string) TokenSource {
	return TokenSourceFunc(func(context.Context, string) (string, error) {
		if token == "" {
			return "", ErrPermissionDenied
		}
		return token, nil
	})
}

// SnapshotTokenSource reads the device's last known push token from its
// session snapshot. It backs the sign-in re-registration path, where the
// server has no device to prompt.
func SnapshotTokenSource(cache session.SnapshotCache) TokenSource {
	return TokenSourceFunc(func(ctx context.Context, sessionID string) (string, error) {
		snap, err := cache.Load(ctx, sessionID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return "", ErrPermissionDenied
			}
			return "", err
		}
		if snap.Profile == nil || snap.Profile.ExpoPushToken == nil || *snap.Profile.ExpoPushToken == "" {
			return "", ErrPermissionDenied
		}
		return *snap.Profile.ExpoPushToken, nil
	})
}

type initState int

const (
	stateIdle initState = iota
	stateInitializing
	stateReady
)

// RegisterResult is the structured outcome of a registration attempt.
// Registration failures are expected states (denied permission, races), not
// errors.
type RegisterResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Registrar owns the push-token lifecycle. Initialization is single-flight
// per session: while one call is obtaining and persisting a token for a
// session, concurrent calls for the same session return immediately.
type Registrar struct {
	profiles repository.ProfileRepository
	source   TokenSource
	logger   *slog.Logger

	mu     sync.Mutex
	states map[string]initState
}

// NewRegistrar creates a push token registrar.
func NewRegistrar(profiles repository.ProfileRepository, source TokenSource, logger *slog.Logger) *Registrar {
	return &Registrar{
		profiles: profiles,
		source:   source,
		logger:   logger,
		states:   make(map[string]initState),
	}
}

// Register obtains the device token for the session and persists it together
// with the enabled flag. The result is always structured; Register does not
// return errors.
func (r *Registrar) Register(ctx context.Context, sessionID, userID string) RegisterResult {
	if userID == "" {
		return RegisterResult{Success: false, Message: "not logged in"}
	}

	r.mu.Lock()
	switch r.states[sessionID] {
	case stateInitializing:
		r.mu.Unlock()
		return RegisterResult{Success: false, Message: "registration already in progress"}
	case stateReady:
		r.mu.Unlock()
		return RegisterResult{Success: true, Message: "notifications already enabled"}
	}
	r.states[sessionID] = stateInitializing
	r.mu.Unlock()

	result := r.register(ctx, sessionID, userID)

	r.mu.Lock()
	if result.Success {
		r.states[sessionID] = stateReady
	} else {
		r.states[sessionID] = stateIdle
	}
	r.mu.Unlock()

	return result
}

func (r *Registrar) register(ctx context.Context, sessionID, userID string) RegisterResult {
	token, err := r.source.Token(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return RegisterResult{Success: false, Message: "notification permission denied"}
		}
		r.logger.ErrorContext(ctx, "obtain push token failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return RegisterResult{Success: false, Message: "could not obtain push token"}
	}

	if err := r.profiles.SetPushToken(ctx, userID, token); err != nil {
		r.logger.ErrorContext(ctx, "persist push token failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return RegisterResult{Success: false, Message: "could not save push token"}
	}

	return RegisterResult{Success: true, Message: "notifications enabled"}
}

// RegisterToken persists a token the device already holds, skipping the
// TokenSource. Used by the HTTP register endpoint.
func (r *Registrar) RegisterToken(ctx context.Context, sessionID, userID, token string) RegisterResult {
	if userID == "" {
		return RegisterResult{Success: false, Message: "not logged in"}
	}
	if token == "" {
		return RegisterResult{Success: false, Message: "notification permission denied"}
	}

	if err := r.profiles.SetPushToken(ctx, userID, token); err != nil {
		r.logger.ErrorContext(ctx, "persist push token failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return RegisterResult{Success: false, Message: "could not save push token"}
	}

	r.mu.Lock()
	r.states[sessionID] = stateReady
	r.mu.Unlock()

	return RegisterResult{Success: true, Message: "notifications enabled"}
}

// Disable clears the stored token and the enabled flag in one write.
func (r *Registrar) Disable(ctx context.Context, userID string) error {
	return r.profiles.ClearPushToken(ctx, userID)
}

// Reset returns a session to the idle state, allowing a later
// re-initialization. Called when the session signs out.
func (r *Registrar) Reset(sessionID string) {
	r.mu.Lock()
	delete(r.states, sessionID)
	r.mu.Unlock()
}

// state reports the session's current lifecycle state, for tests.
func (r *Registrar) state(sessionID string) initState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.states[sessionID]
}

// Subscribe attaches the registrar to session changes: a sign-in
// re-registers the token for users who had notifications enabled, and a
// sign-out resets the session's lifecycle state.
func (r *Registrar) Subscribe(store *session.Store) {
	store.OnChange(func(c session.Change) {
		switch c.Event {
		case session.EventSignedIn:
			go r.reinitialize(c.DeviceID, c.UserID)
		case session.EventSignedOut:
			r.Reset(c.DeviceID)
		}
	})
}

// reinitialize restores the push registration after a sign-in, but only for
// users who previously opted in.
func (r *Registrar) reinitialize(sessionID, userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	profile, err := r.profiles.GetByID(ctx, userID)
	if err != nil {
		r.logger.WarnContext(ctx, "push reinit profile lookup failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return
	}
	if !profile.NotificationEnabled {
		return
	}

	if result := r.Register(ctx, sessionID, userID); !result.Success {
		r.logger.WarnContext(ctx, "push reinit failed",
			slog.String("user_id", userID),
			slog.String("message", result.Message),
		)
	}
}
