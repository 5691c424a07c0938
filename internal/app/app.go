package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/sayyara-app/backend/internal/auth"
	"github.com/sayyara-app/backend/internal/broadcast"
	"github.com/sayyara-app/backend/internal/config"
	"github.com/sayyara-app/backend/internal/event"
	handler "github.com/sayyara-app/backend/internal/handler/http"
	"github.com/sayyara-app/backend/internal/push"
	"github.com/sayyara-app/backend/internal/repository/postgres"
	"github.com/sayyara-app/backend/internal/service"
	"github.com/sayyara-app/backend/internal/session"
	"github.com/sayyara-app/backend/migrations"
	"github.com/sayyara-app/backend/pkg/database"
	"github.com/sayyara-app/backend/pkg/health"
	"github.com/sayyara-app/backend/pkg/httpclient"
	pkgkafka "github.com/sayyara-app/backend/pkg/kafka"
	"github.com/sayyara-app/backend/pkg/middleware"
	"github.com/sayyara-app/backend/pkg/tracing"
)

// App wires together all dependencies and runs the backend.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "backend",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SampleRate:     cfg.TracingSampleRate,
		Enabled:        cfg.TracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Initialize PostgreSQL connection pool.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPool(ctx, &pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "backend")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Initialize Redis for session snapshots.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("host", cfg.RedisHost), slog.Int("port", cfg.RedisPort))

	snapshotTTL, err := time.ParseDuration(cfg.SessionSnapshotTTL)
	if err != nil {
		return nil, fmt.Errorf("parse session snapshot TTL %q: %w", cfg.SessionSnapshotTTL, err)
	}

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Parse JWT expiry durations.
	accessExpiry, err := time.ParseDuration(cfg.JWTAccessExpiry)
	if err != nil {
		return nil, fmt.Errorf("parse JWT access expiry %q: %w", cfg.JWTAccessExpiry, err)
	}
	refreshExpiry, err := time.ParseDuration(cfg.JWTRefreshExpiry)
	if err != nil {
		return nil, fmt.Errorf("parse JWT refresh expiry %q: %w", cfg.JWTRefreshExpiry, err)
	}

	broadcastDelay, err := time.ParseDuration(cfg.BroadcastDelay)
	if err != nil {
		return nil, fmt.Errorf("parse broadcast batch delay %q: %w", cfg.BroadcastDelay, err)
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, accessExpiry, refreshExpiry)
	userRepo := postgres.NewUserRepository(pool)
	profileRepo := postgres.NewProfileRepository(pool)
	requestRepo := postgres.NewRequestRepository(pool)
	broadcastRepo := postgres.NewBroadcastRepository(pool)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(pool)
	eventProducer := event.NewProducer(producer, logger)

	snapshotCache := session.NewRedisSnapshotCache(redisClient, snapshotTTL)
	bootstrapper := session.NewBootstrapper(profileRepo, logger)
	store := session.NewStore(userRepo, profileRepo, refreshTokenRepo, jwtManager, snapshotCache, bootstrapper, logger)

	registrar := push.NewRegistrar(profileRepo, push.SnapshotTokenSource(snapshotCache), logger)
	store.SetNotificationDisabler(registrar)
	registrar.Subscribe(store)

	// Push gateway behind a retrying client and a circuit breaker.
	gatewayClient := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpclient.DefaultConfig()),
		httpclient.DefaultCircuitBreakerConfig("push-gateway"),
		logger,
	)
	gateway := push.NewGateway(gatewayClient, push.GatewayConfig{
		URL:         cfg.PushGatewayURL,
		AccessToken: cfg.PushAccessToken,
	}, logger)

	sender := broadcast.NewSender(profileRepo, broadcastRepo, gateway, eventProducer, broadcast.Config{
		BatchSize:  cfg.BroadcastBatchSize,
		BatchDelay: broadcastDelay,
	}, logger)

	accountService := service.NewAccountService(userRepo, profileRepo, refreshTokenRepo, eventProducer, logger)
	requestService := service.NewRequestService(requestRepo, profileRepo, eventProducer, logger)
	adminService := service.NewAdminService(userRepo, profileRepo, refreshTokenRepo, broadcastRepo, sender, eventProducer, logger)

	// Optional initial admin seed.
	if cfg.AdminSeedFile != "" {
		if err := seedAdmin(ctx, cfg.AdminSeedFile, userRepo, profileRepo, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("seed admin: %w", err)
		}
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	// Events are fire-and-forget, so a broker outage only degrades health.
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		Accounts:      accountService,
		Requests:      requestService,
		Admins:        adminService,
		Store:         store,
		Registrar:     registrar,
		Profiles:      profileRepo,
		JWTManager:    jwtManager,
		HealthHandler: healthHandler,
		Logger:        logger,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		AuthRateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.AuthRateLimitPerSecond,
			Burst:             cfg.AuthRateLimitBurst,
			TTL:               3 * time.Minute,
		},
		PprofCIDRs: cfg.PprofAllowedCIDRs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 4. Close Redis client.
	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	// 5. Close PostgreSQL pool.
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
