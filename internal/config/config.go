package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/programmierbude/trxps-gateway/internal/domain"
	pkgconfig "github.com/programmierbude/trxps-gateway/pkg/config"
	"github.com/programmierbude/trxps-gateway/pkg/database"
)

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all configuration for the gateway service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// Public URLs
	BaseURL               string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	FinishURL             string `env:"FINISH_URL" envDefault:"http://localhost:3000/checkout/finish"`
	DefaultSalesChannelID string `env:"DEFAULT_SALES_CHANNEL_ID" envDefault:"default"`
	// LocalDevelopment omits the webhook URL from checkouts; Trxps cannot
	// reach a developer machine.
	LocalDevelopment bool `env:"LOCAL_DEVELOPMENT" envDefault:"false"`

	// Trxps gateway. The keys are the fallback for sales channels without
	// stored settings.
	TrxpsEndpoint       string        `env:"TRXPS_ENDPOINT" envDefault:"https://api.trxps.com"`
	TrxpsLiveAPIKey     string        `env:"TRXPS_LIVE_API_KEY"`
	TrxpsTestAPIKey     string        `env:"TRXPS_TEST_API_KEY"`
	TrxpsLiveShopID     string        `env:"TRXPS_LIVE_SHOP_ID"`
	TrxpsTestShopID     string        `env:"TRXPS_TEST_SHOP_ID"`
	TrxpsTestMode       bool          `env:"TRXPS_TEST_MODE" envDefault:"true"`
	TrxpsDebugMode      bool          `env:"TRXPS_DEBUG_MODE" envDefault:"false"`
	TrxpsTimeout        time.Duration `env:"TRXPS_TIMEOUT" envDefault:"10s"`
	TrxpsConnectTimeout time.Duration `env:"TRXPS_CONNECT_TIMEOUT" envDefault:"2s"`

	// Circuit breaker around the gateway
	CBTimeout      time.Duration `env:"CB_TIMEOUT" envDefault:"30s"`
	CBFailureRatio float64       `env:"CB_FAILURE_RATIO" envDefault:"0.5"`
	CBMinRequests  uint32        `env:"CB_MIN_REQUESTS" envDefault:"5"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost       string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort       int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser       string        `env:"POSTGRES_USER" envDefault:"trxps"`
	PostgresPass       string        `env:"POSTGRES_PASSWORD" envDefault:"trxps_secret"`
	PostgresDB         string        `env:"POSTGRES_DB" envDefault:"shop"`
	PostgresSSL        string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns   int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	SlowQueryThreshold time.Duration `env:"POSTGRES_SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Admin API
	JWTSecret string `env:"JWT_SECRET"`

	// Webhook rate limit per client IP
	WebhookRateLimit float64 `env:"WEBHOOK_RATE_LIMIT_RPS" envDefault:"10"`
	WebhookBurst     int     `env:"WEBHOOK_RATE_LIMIT_BURST" envDefault:"20"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load gateway config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	for name, raw := range map[string]string{"BASE_URL": c.BaseURL, "FINISH_URL": c.FinishURL, "TRXPS_ENDPOINT": c.TrxpsEndpoint} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid %s: %q", name, raw)
		}
	}
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER: %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TrxpsTimeout <= 0 || c.TrxpsConnectTimeout <= 0 {
		return errors.New("TRXPS_TIMEOUT and TRXPS_CONNECT_TIMEOUT must be positive")
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1 {
		return fmt.Errorf("invalid CB_FAILURE_RATIO: %v", c.CBFailureRatio)
	}
	if c.WebhookRateLimit <= 0 || c.WebhookBurst < 1 {
		return errors.New("WEBHOOK_RATE_LIMIT_RPS and WEBHOOK_RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// Postgres returns the connection settings for the pool.
func (c *Config) Postgres() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.PostgresMaxConns,
		MinConns:        1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// Redis returns the connection settings for the settings store.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPass,
		DB:       c.RedisDB,
	}
}

// DefaultSettings are the gateway settings used for sales channels with no
// stored settings.
func (c *Config) DefaultSettings() domain.Settings {
	return domain.Settings{
		LiveAPIKey: c.TrxpsLiveAPIKey,
		TestAPIKey: c.TrxpsTestAPIKey,
		LiveShopID: c.TrxpsLiveShopID,
		TestShopID: c.TrxpsTestShopID,
		TestMode:   c.TrxpsTestMode,
		DebugMode:  c.TrxpsDebugMode,
	}
}
