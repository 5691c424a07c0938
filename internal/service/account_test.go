package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sayyara-app/backend/internal/domain"
	"github.com/sayyara-app/backend/internal/event"
	apperrors "github.com/sayyara-app/backend/pkg/errors"
	pkgkafka "github.com/sayyara-app/backend/pkg/kafka"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Profile Repository ---

type mockProfileRepository struct {
	mock.Mock
}

func (m *mockProfileRepository) CreateIfAbsent(ctx context.Context, profile *domain.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockProfileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockProfileRepository) UpdateAccess(ctx context.Context, id, access string) error {
	args := m.Called(ctx, id, access)
	return args.Error(0)
}

func (m *mockProfileRepository) SetPushToken(ctx context.Context, id, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *mockProfileRepository) ClearPushToken(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProfileRepository) ListByRole(ctx context.Context, role, excludeID string) ([]domain.Profile, error) {
	args := m.Called(ctx, role, excludeID)
	return args.Get(0).([]domain.Profile), args.Error(1)
}

func (m *mockProfileRepository) ListPushTargets(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockProfileRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Request Repository ---

type mockRequestRepository struct {
	mock.Mock
}

func (m *mockRequestRepository) Create(ctx context.Context, request *domain.InspectionRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *mockRequestRepository) GetByID(ctx context.Context, id string) (*domain.InspectionRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InspectionRequest), args.Error(1)
}

func (m *mockRequestRepository) ListByUserID(ctx context.Context, userID string) ([]domain.InspectionRequest, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.InspectionRequest), args.Error(1)
}

func (m *mockRequestRepository) List(ctx context.Context, offset, limit int) ([]domain.InspectionRequest, int, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]domain.InspectionRequest), args.Int(1), args.Error(2)
}

func (m *mockRequestRepository) TransitionStatus(ctx context.Context, id, from, to string) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *mockRequestRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Broadcast Repository ---

type mockBroadcastRepository struct {
	mock.Mock
}

func (m *mockBroadcastRepository) Create(ctx context.Context, b *domain.Broadcast) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBroadcastRepository) List(ctx context.Context, offset, limit int) ([]domain.Broadcast, int, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]domain.Broadcast), args.Int(1), args.Error(2)
}

// --- Mock Refresh Token Repository ---

type mockRefreshTokenRepository struct {
	mock.Mock
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) RevokeByUserID(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEventProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newAccountService(
	users *mockUserRepository,
	profiles *mockProfileRepository,
	tokens *mockRefreshTokenRepository,
) *AccountService {
	return NewAccountService(users, profiles, tokens, newTestEventProducer(), newTestLogger())
}

// --- Signup Tests ---

func TestSignup_Success(t *testing.T) {
	users := new(mockUserRepository)
	profiles := new(mockProfileRepository)
	tokens := new(mockRefreshTokenRepository)
	svc := newAccountService(users, profiles, tokens)
	ctx := context.Background()

	users.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	user, err := svc.Signup(ctx, SignupInput{Email: "rider@example.com", Password: "passw0rd1"})

	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "rider@example.com", user.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("passw0rd1")))
	assert.NotZero(t, user.CreatedAt)

	users.AssertExpectations(t)
	profiles.AssertNotCalled(t, "CreateIfAbsent", mock.Anything, mock.Anything)
}

func TestSignup_FullNamePreCreatesProfile(t *testing.T) {
	users := new(mockUserRepository)
	profiles := new(mockProfileRepository)
	tokens := new(mockRefreshTokenRepository)
	svc := newAccountService(users, profiles, tokens)
	ctx := context.Background()

	users.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	profiles.On("CreateIfAbsent", ctx, mock.MatchedBy(func(p *domain.Profile) bool {
		return p.FullName == "Sara Rider" && p.Role == domain.RoleUser && p.Access == domain.AccessLimited
	})).Return(nil).Once()

	_, err := svc.Signup(ctx, SignupInput{Email: "sara@example.com", Password: "passw0rd1", FullName: "Sara Rider"})

	require.NoError(t, err)
	profiles.AssertExpectations(t)
}

func TestSignup_InvalidEmail(t *testing.T) {
	svc := newAccountService(new(mockUserRepository), new(mockProfileRepository), new(mockRefreshTokenRepository))

	_, err := svc.Signup(context.Background(), SignupInput{Email: "not-an-email", Password: "passw0rd1"})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSignup_WeakPassword(t *testing.T) {
	svc := newAccountService(new(mockUserRepository), new(mockProfileRepository), new(mockRefreshTokenRepository))

	tests := []struct {
		name     string
		password string
	}{
		{"too short", "short1"},
		{"no digit", "passwords"},
		{"no letter", "123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), SignupInput{Email: "rider@example.com", Password: tt.password})
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	users := new(mockUserRepository)
	svc := newAccountService(users, new(mockProfileRepository), new(mockRefreshTokenRepository))
	ctx := context.Background()

	users.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Return(apperrors.AlreadyExists("user", "email", "rider@example.com"))

	_, err := svc.Signup(ctx, SignupInput{Email: "rider@example.com", Password: "passw0rd1"})

	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

// --- DeleteAccount Tests ---

func TestDeleteAccount_RevokesSessionsFirst(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	svc := newAccountService(users, new(mockProfileRepository), tokens)
	ctx := context.Background()

	var order []string
	tokens.On("RevokeByUserID", ctx, "user-1").
		Run(func(mock.Arguments) { order = append(order, "revoke") }).Return(nil).Once()
	users.On("Delete", ctx, "user-1").
		Run(func(mock.Arguments) { order = append(order, "delete") }).Return(nil).Once()

	require.NoError(t, svc.DeleteAccount(ctx, "user-1"))
	assert.Equal(t, []string{"revoke", "delete"}, order)
}

func TestDeleteAccount_ProceedsWhenRevokeFails(t *testing.T) {
	users := new(mockUserRepository)
	tokens := new(mockRefreshTokenRepository)
	svc := newAccountService(users, new(mockProfileRepository), tokens)
	ctx := context.Background()

	tokens.On("RevokeByUserID", ctx, "user-1").Return(fmt.Errorf("redis down")).Once()
	users.On("Delete", ctx, "user-1").Return(nil).Once()

	require.NoError(t, svc.DeleteAccount(ctx, "user-1"))
	users.AssertExpectations(t)
}
