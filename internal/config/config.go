package config

import (
	"fmt"

	pkgconfig "github.com/sayyara-app/backend/pkg/config"
)

// Config holds all configuration for the backend.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"sayyara"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"sayyara_secret"`
	PostgresDB   string `env:"POSTGRES_DB_NAME" envDefault:"sayyara_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis (session snapshots)
	RedisHost          string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort          int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword      string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB            int    `env:"REDIS_DB" envDefault:"0"`
	SessionSnapshotTTL string `env:"SESSION_SNAPSHOT_TTL" envDefault:"720h"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret        string `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTAccessExpiry  string `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry string `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"720h"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Push gateway
	PushGatewayURL  string `env:"PUSH_GATEWAY_URL" envDefault:""`
	PushAccessToken string `env:"PUSH_ACCESS_TOKEN" envDefault:""`

	// Broadcast pacing
	BroadcastBatchSize int    `env:"BROADCAST_BATCH_SIZE" envDefault:"100"`
	BroadcastDelay     string `env:"BROADCAST_BATCH_DELAY" envDefault:"1s"`

	// Auth endpoint rate limiting
	AuthRateLimitPerSecond float64 `env:"AUTH_RATE_LIMIT_PER_SECOND" envDefault:"5"`
	AuthRateLimitBurst     int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	// Tracing
	TracingEnabled    bool     `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint      string   `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64  `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"" envSeparator:","`

	// Initial admin seed (optional YAML file applied at startup)
	AdminSeedFile string `env:"ADMIN_SEED_FILE" envDefault:""`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load backend config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == "change-this-to-a-secure-secret" {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
	}

	return cfg, nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
