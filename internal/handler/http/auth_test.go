package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sayyara-app/backend/internal/auth"
	"github.com/sayyara-app/backend/internal/broadcast"
	"github.com/sayyara-app/backend/internal/domain"
	"github.com/sayyara-app/backend/internal/event"
	"github.com/sayyara-app/backend/internal/push"
	"github.com/sayyara-app/backend/internal/service"
	"github.com/sayyara-app/backend/internal/session"
	apperrors "github.com/sayyara-app/backend/pkg/errors"
	"github.com/sayyara-app/backend/pkg/health"
	"github.com/sayyara-app/backend/pkg/httputil"
	pkgkafka "github.com/sayyara-app/backend/pkg/kafka"
	"github.com/sayyara-app/backend/pkg/middleware"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) CreateIfAbsent(ctx context.Context, profile *domain.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *mockProfileRepo) Update(ctx context.Context, profile *domain.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockProfileRepo) UpdateAccess(ctx context.Context, id, access string) error {
	args := m.Called(ctx, id, access)
	return args.Error(0)
}

func (m *mockProfileRepo) SetPushToken(ctx context.Context, id, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *mockProfileRepo) ClearPushToken(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProfileRepo) ListByRole(ctx context.Context, role, excludeID string) ([]domain.Profile, error) {
	args := m.Called(ctx, role, excludeID)
	return args.Get(0).([]domain.Profile), args.Error(1)
}

func (m *mockProfileRepo) ListPushTargets(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockProfileRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockRequestRepo struct {
	mock.Mock
}

func (m *mockRequestRepo) Create(ctx context.Context, request *domain.InspectionRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*domain.InspectionRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InspectionRequest), args.Error(1)
}

func (m *mockRequestRepo) ListByUserID(ctx context.Context, userID string) ([]domain.InspectionRequest, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.InspectionRequest), args.Error(1)
}

func (m *mockRequestRepo) List(ctx context.Context, offset, limit int) ([]domain.InspectionRequest, int, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]domain.InspectionRequest), args.Int(1), args.Error(2)
}

func (m *mockRequestRepo) TransitionStatus(ctx context.Context, id, from, to string) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *mockRequestRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockBroadcastRepo struct {
	mock.Mock
}

func (m *mockBroadcastRepo) Create(ctx context.Context, b *domain.Broadcast) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBroadcastRepo) List(ctx context.Context, offset, limit int) ([]domain.Broadcast, int, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]domain.Broadcast), args.Int(1), args.Error(2)
}

type mockRefreshTokenRepo struct {
	mock.Mock
}

func (m *mockRefreshTokenRepo) Create(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *mockRefreshTokenRepo) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepo) Revoke(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *mockRefreshTokenRepo) RevokeByUserID(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// memSnapshotCache is an in-process stand-in for the Redis snapshot cache.
type memSnapshotCache struct {
	mu    sync.Mutex
	snaps map[string]*domain.Snapshot
}

func newMemSnapshotCache() *memSnapshotCache {
	return &memSnapshotCache{snaps: map[string]*domain.Snapshot{}}
}

func (c *memSnapshotCache) Save(_ context.Context, deviceID string, snap *domain.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps[deviceID] = snap
	return nil
}

func (c *memSnapshotCache) Load(_ context.Context, deviceID string) (*domain.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.snaps[deviceID]
	if !ok {
		return nil, apperrors.NotFound("snapshot", deviceID)
	}
	return snap, nil
}

func (c *memSnapshotCache) Clear(_ context.Context, deviceID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snaps, deviceID)
	return nil
}

func (c *memSnapshotCache) get(deviceID string) *domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snaps[deviceID]
}

// stubPushGateway records batches without talking to any network.
type stubPushGateway struct {
	mu      sync.Mutex
	batches [][]push.Message
}

func (g *stubPushGateway) Send(_ context.Context, messages []push.Message) ([]push.Ticket, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.batches = append(g.batches, messages)
	tickets := make([]push.Ticket, len(messages))
	for i := range tickets {
		tickets[i] = push.Ticket{Status: "ok"}
	}
	return tickets, nil
}

// ============================================================================
// Test Fixture
// ============================================================================

type routerFixture struct {
	users      *mockUserRepo
	profiles   *mockProfileRepo
	requests   *mockRequestRepo
	broadcasts *mockBroadcastRepo
	tokens     *mockRefreshTokenRepo
	cache      *memSnapshotCache
	gateway    *stubPushGateway
	jwt        *auth.JWTManager
	router     http.Handler
}

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func handlerTestEventProducer() *event.Producer {
	logger := handlerTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:19092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		users:      new(mockUserRepo),
		profiles:   new(mockProfileRepo),
		requests:   new(mockRequestRepo),
		broadcasts: new(mockBroadcastRepo),
		tokens:     new(mockRefreshTokenRepo),
		cache:      newMemSnapshotCache(),
		gateway:    &stubPushGateway{},
		jwt:        auth.NewJWTManager("handler-test-secret", 15*time.Minute, 30*24*time.Hour),
	}

	logger := handlerTestLogger()
	producer := handlerTestEventProducer()

	boot := session.NewBootstrapper(f.profiles, logger)
	store := session.NewStore(f.users, f.profiles, f.tokens, f.jwt, f.cache, boot, logger)

	registrar := push.NewRegistrar(f.profiles, push.StaticTokenSource("ExponentPushToken[test]"), logger)
	store.SetNotificationDisabler(registrar)

	sender := broadcast.NewSender(f.profiles, f.broadcasts, f.gateway, producer, broadcast.Config{BatchSize: 100}, logger)

	accounts := service.NewAccountService(f.users, f.profiles, f.tokens, producer, logger)
	requests := service.NewRequestService(f.requests, f.profiles, producer, logger)
	admins := service.NewAdminService(f.users, f.profiles, f.tokens, f.broadcasts, sender, producer, logger)

	f.router = NewRouter(RouterConfig{
		Accounts:      accounts,
		Requests:      requests,
		Admins:        admins,
		Store:         store,
		Registrar:     registrar,
		Profiles:      f.profiles,
		JWTManager:    f.jwt,
		HealthHandler: health.NewHandler(),
		Logger:        logger,
		CORS:          middleware.DefaultCORSConfig(),
		AuthRateLimit: middleware.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000, TTL: time.Minute},
	})

	return f
}

func (f *routerFixture) accessToken(t *testing.T, userID, email, role string) string {
	t.Helper()
	token, err := f.jwt.GenerateAccessToken(userID, email, role)
	require.NoError(t, err)
	return token
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(deviceIDHeader, "device-1")
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func sampleRider() (*domain.User, *domain.Profile) {
	user := &domain.User{
		ID:           "rider-1",
		Email:        "rider@example.com",
		PasswordHash: hashForTest("passw0rd1"),
		CreatedAt:    time.Now().UTC(),
	}
	profile := domain.NewDefaultProfile(user.ID)
	profile.FullName = "Rider One"
	return user, profile
}

// ============================================================================
// Auth endpoint tests
// ============================================================================

func TestLogin_Success(t *testing.T) {
	f := newRouterFixture()
	user, profile := sampleRider()

	f.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()
	f.profiles.On("GetByID", mock.Anything, user.ID).Return(profile, nil)
	f.tokens.On("Create", mock.Anything, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    user.Email,
		"password": "passw0rd1",
	}))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)

	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["authenticated"])
	assert.NotNil(t, data["session"])
	assert.NotNil(t, data["profile"])

	assert.NotNil(t, f.cache.get("device-1"), "login persists the device snapshot")
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newRouterFixture()
	user, _ := sampleRider()

	f.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil).Once()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    user.Email,
		"password": "wrong-password",
	}))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", resp.Error.Code)
	assert.Equal(t, session.MsgInvalidCredentials, resp.Error.Message)
	assert.Equal(t, session.MsgInvalidCredentialsAr, resp.Error.MessageAr)

	assert.Nil(t, f.cache.get("device-1"))
}

func TestLogin_MalformedBody(t *testing.T) {
	f := newRouterFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignup_CreatesAccountAndSignsIn(t *testing.T) {
	f := newRouterFixture()
	_, profile := sampleRider()

	f.users.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil).Once()
	f.profiles.On("CreateIfAbsent", mock.Anything, mock.AnythingOfType("*domain.Profile")).Return(nil)
	f.users.On("GetByEmail", mock.Anything, "rider@example.com").
		Return(&domain.User{ID: "rider-1", Email: "rider@example.com", PasswordHash: hashForTest("passw0rd1")}, nil).Once()
	f.profiles.On("GetByID", mock.Anything, "rider-1").Return(profile, nil)
	f.tokens.On("Create", mock.Anything, "rider-1", mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":     "rider@example.com",
		"password":  "passw0rd1",
		"full_name": "Rider One",
	}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResponse(t, rec)
	require.Nil(t, resp.Error)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["authenticated"])
}

func TestAuth_RateLimited(t *testing.T) {
	user, profile := sampleRider()

	strict := newRouterFixtureWithRateLimit(middleware.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2, TTL: time.Minute})
	strict.users.On("GetByEmail", mock.Anything, user.Email).Return(user, nil)
	strict.profiles.On("GetByID", mock.Anything, user.ID).Return(profile, nil)
	strict.tokens.On("Create", mock.Anything, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)

	var last int
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		strict.router.ServeHTTP(rec, jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    user.Email,
			"password": "passw0rd1",
		}))
		last = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, last)
}

func newRouterFixtureWithRateLimit(cfg middleware.RateLimitConfig) *routerFixture {
	f := newRouterFixture()

	logger := handlerTestLogger()
	producer := handlerTestEventProducer()
	boot := session.NewBootstrapper(f.profiles, logger)
	store := session.NewStore(f.users, f.profiles, f.tokens, f.jwt, f.cache, boot, logger)
	registrar := push.NewRegistrar(f.profiles, push.StaticTokenSource("ExponentPushToken[test]"), logger)
	sender := broadcast.NewSender(f.profiles, f.broadcasts, f.gateway, producer, broadcast.Config{BatchSize: 100}, logger)

	f.router = NewRouter(RouterConfig{
		Accounts:      service.NewAccountService(f.users, f.profiles, f.tokens, producer, logger),
		Requests:      service.NewRequestService(f.requests, f.profiles, producer, logger),
		Admins:        service.NewAdminService(f.users, f.profiles, f.tokens, f.broadcasts, sender, producer, logger),
		Store:         store,
		Registrar:     registrar,
		Profiles:      f.profiles,
		JWTManager:    f.jwt,
		HealthHandler: health.NewHandler(),
		Logger:        logger,
		CORS:          middleware.DefaultCORSConfig(),
		AuthRateLimit: cfg,
	})
	return f
}

// ============================================================================
// Session endpoint tests
// ============================================================================

func TestSession_NoTokenNoSnapshot(t *testing.T) {
	f := newRouterFixture()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, jsonRequest(http.MethodGet, "/api/v1/session", nil))

	assert.Equal(t, http.StatusOK, rec.Code, "session check degrades, it never rejects")
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, false, data["authenticated"])
}

func TestSession_ValidToken(t *testing.T) {
	f := newRouterFixture()
	user, profile := sampleRider()

	f.users.On("GetByID", mock.Anything, user.ID).Return(user, nil).Once()
	f.profiles.On("GetByID", mock.Anything, user.ID).Return(profile, nil)

	req := jsonRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set("Authorization", "Bearer "+f.accessToken(t, user.ID, user.Email, "user"))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["authenticated"])
}

// ============================================================================
// Profile endpoint tests
// ============================================================================

func TestGetMe_RequiresAuth(t *testing.T) {
	f := newRouterFixture()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, jsonRequest(http.MethodGet, "/api/v1/profiles/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetMe_ReturnsProfile(t *testing.T) {
	f := newRouterFixture()
	user, profile := sampleRider()

	f.profiles.On("GetByID", mock.Anything, user.ID).Return(profile, nil).Once()

	req := jsonRequest(http.MethodGet, "/api/v1/profiles/me", nil)
	req.Header.Set("Authorization", "Bearer "+f.accessToken(t, user.ID, user.Email, "user"))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "Rider One", data["full_name"])
}

func TestUpdateMe_PartialUpdate(t *testing.T) {
	f := newRouterFixture()
	user, profile := sampleRider()

	f.profiles.On("GetByID", mock.Anything, user.ID).Return(profile, nil).Once()
	f.profiles.On("Update", mock.Anything, mock.MatchedBy(func(p *domain.Profile) bool {
		return p.FullName == "Renamed Rider"
	})).Return(nil).Once()

	req := jsonRequest(http.MethodPatch, "/api/v1/profiles/me", map[string]string{"full_name": "Renamed Rider"})
	req.Header.Set("Authorization", "Bearer "+f.accessToken(t, user.ID, user.Email, "user"))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	f.profiles.AssertExpectations(t)
}

func TestDeleteMe_RemovesAccountAndSignsOut(t *testing.T) {
	f := newRouterFixture()
	user, _ := sampleRider()

	f.tokens.On("RevokeByUserID", mock.Anything, user.ID).Return(nil)
	f.users.On("Delete", mock.Anything, user.ID).Return(nil).Once()
	f.profiles.On("ClearPushToken", mock.Anything, user.ID).Return(nil).Once()

	req := jsonRequest(http.MethodDelete, "/api/v1/profiles/me", nil)
	req.Header.Set("Authorization", "Bearer "+f.accessToken(t, user.ID, user.Email, "user"))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	f.users.AssertExpectations(t)
	f.profiles.AssertExpectations(t)
}

// ============================================================================
// Notification endpoint tests
// ============================================================================

func TestRegisterNotifications_PersistsToken(t *testing.T) {
	f := newRouterFixture()
	user, _ := sampleRider()

	f.profiles.On("SetPushToken", mock.Anything, user.ID, "ExponentPushToken[dev]").Return(nil).Once()

	req := jsonRequest(http.MethodPost, "/api/v1/notifications/register", map[string]string{"token": "ExponentPushToken[dev]"})
	req.Header.Set("Authorization", "Bearer "+f.accessToken(t, user.ID, user.Email, "user"))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["success"])
	f.profiles.AssertExpectations(t)
}

func TestRegisterNotifications_EmptyTokenIsDenied(t *testing.T) {
	f := newRouterFixture()
	user, _ := sampleRider()

	req := jsonRequest(http.MethodPost, "/api/v1/notifications/register", map[string]string{"token": ""})
	req.Header.Set("Authorization", "Bearer "+f.accessToken(t, user.ID, user.Email, "user"))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, false, data["success"])
	f.profiles.AssertNotCalled(t, "SetPushToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnregisterNotifications_ClearsToken(t *testing.T) {
	f := newRouterFixture()
	user, _ := sampleRider()

	f.profiles.On("ClearPushToken", mock.Anything, user.ID).Return(nil).Once()

	req := jsonRequest(http.MethodDelete, "/api/v1/notifications/register", nil)
	req.Header.Set("Authorization", "Bearer "+f.accessToken(t, user.ID, user.Email, "user"))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	f.profiles.AssertExpectations(t)
}

// ============================================================================
// Rider request endpoint tests
// ============================================================================

func TestCreateRequest_Created(t *testing.T) {
	f := newRouterFixture()
	user, _ := sampleRider()

	f.requests.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.InspectionRequest) bool {
		return r.UserID == user.ID && r.Status == domain.RequestStatusPending
	})).Return(nil).Once()

	req := jsonRequest(http.MethodPost, "/api/v1/requests", map[string]any{
		"from":  "الرياض",
		"to":    "معرض السيارات",
		"time":  time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
		"phone": "0500000000",
	})
	req.Header.Set("Authorization", "Bearer "+f.accessToken(t, user.ID, user.Email, "user"))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	f.requests.AssertExpectations(t)
}

func TestCreateRequest_MissingFields(t *testing.T) {
	f := newRouterFixture()
	user, _ := sampleRider()

	req := jsonRequest(http.MethodPost, "/api/v1/requests", map[string]any{"from": "الرياض"})
	req.Header.Set("Authorization", "Bearer "+f.accessToken(t, user.ID, user.Email, "user"))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

func TestAuthenticatedRoutes_RejectRefreshTokenAsBearer(t *testing.T) {
	f := newRouterFixture()
	user, _ := sampleRider()

	// A refresh token outlives logout by weeks and its revocation is only
	// checked on the refresh endpoint, so the bearer slot must refuse it.
	refresh, err := f.jwt.GenerateRefreshToken(user.ID)
	require.NoError(t, err)

	req := jsonRequest(http.MethodGet, "/api/v1/requests/mine", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	f.requests.AssertNotCalled(t, "ListByUserID", mock.Anything, mock.Anything)
}

func TestListMine_ReturnsOwnRequests(t *testing.T) {
	f := newRouterFixture()
	user, _ := sampleRider()

	f.requests.On("ListByUserID", mock.Anything, user.ID).Return([]domain.InspectionRequest{
		{ID: "req-1", UserID: user.ID, Status: domain.RequestStatusPending},
	}, nil).Once()

	req := jsonRequest(http.MethodGet, "/api/v1/requests/mine", nil)
	req.Header.Set("Authorization", "Bearer "+f.accessToken(t, user.ID, user.Email, "user"))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.([]any)
	assert.Len(t, data, 1)
}
