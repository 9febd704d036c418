package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/programmierbude/trxps-gateway/internal/config"
	"github.com/programmierbude/trxps-gateway/internal/domain"
	"github.com/programmierbude/trxps-gateway/internal/event"
	"github.com/programmierbude/trxps-gateway/internal/gateway"
	handler "github.com/programmierbude/trxps-gateway/internal/handler/http"
	"github.com/programmierbude/trxps-gateway/internal/payload"
	"github.com/programmierbude/trxps-gateway/internal/repository"
	"github.com/programmierbude/trxps-gateway/internal/repository/memory"
	"github.com/programmierbude/trxps-gateway/internal/repository/postgres"
	"github.com/programmierbude/trxps-gateway/internal/service"
	"github.com/programmierbude/trxps-gateway/internal/settings"
	"github.com/programmierbude/trxps-gateway/migrations"
	"github.com/programmierbude/trxps-gateway/pkg/database"
	"github.com/programmierbude/trxps-gateway/pkg/health"
	"github.com/programmierbude/trxps-gateway/pkg/httpclient"
	pkgkafka "github.com/programmierbude/trxps-gateway/pkg/kafka"
	"github.com/programmierbude/trxps-gateway/pkg/tracing"
)

const serviceName = "trxps-gateway"

// App wires together all dependencies and runs the gateway service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	store          repository.Store
	pool           *pgxpool.Pool
	rdb            *redis.Client
	localRedis     *miniredis.Miniredis
	producer       *pkgkafka.Producer
	tracerShutdown func(context.Context) error
	stopBackground context.CancelFunc
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// Tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()

	// Order storage.
	var store repository.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		mem := memory.NewStore()
		mem.AddSalesChannel(domain.SalesChannel{
			ID:              cfg.DefaultSalesChannelID,
			Name:            "Default",
			DefaultCurrency: payload.DefaultCurrency,
			DefaultLocale:   "en-GB",
		})
		store = mem
		logger.Warn("using in-memory order store; data is lost on restart")
	default:
		a.pool, err = database.NewPostgresPool(ctx, cfg.Postgres(), logger)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.PostgresHost),
			slog.String("database", cfg.PostgresDB),
		)

		if err = database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if err = database.RegisterPoolMetrics(prometheus.DefaultRegisterer, a.pool, serviceName); err != nil {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
		database.SetSlowQueryLogging(cfg.SlowQueryThreshold, logger)

		pool := a.pool
		healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		store = postgres.NewStore(pool)
	}

	// Settings storage. The memory driver keeps settings in an embedded
	// Redis server so the same code path runs locally.
	redisCfg := cfg.Redis()
	if cfg.StoreDriver == config.StoreDriverMemory {
		a.localRedis, err = miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("start embedded redis: %w", err)
		}
		redisCfg.Host = a.localRedis.Host()
		if redisCfg.Port, err = strconv.Atoi(a.localRedis.Port()); err != nil {
			return nil, fmt.Errorf("embedded redis port: %w", err)
		}
		redisCfg.Password, redisCfg.DB = "", 0
	}
	a.rdb, err = database.NewRedisClient(ctx, redisCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", redisCfg.Addr()))

	settingsStore := settings.NewStore(a.rdb, cfg.DefaultSettings())
	healthHandler.RegisterCritical("redis", settingsStore.Ping)

	// Events.
	var events service.EventPublisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		events = event.NewProducer(a.producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Gateway client: pooled HTTP client behind a circuit breaker.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.TrxpsTimeout
	httpCfg.ConnectTimeout = cfg.TrxpsConnectTimeout
	cbCfg := httpclient.DefaultCircuitBreakerConfig("trxps")
	cbCfg.Timeout = cfg.CBTimeout
	cbCfg.FailureRatio = cfg.CBFailureRatio
	cbCfg.MinRequests = cfg.CBMinRequests
	doer := httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), cbCfg, logger)

	gw := gateway.NewClient(doer, gateway.Config{
		Endpoint:      cfg.TrxpsEndpoint,
		ModuleVersion: cfg.Version,
	}, logger)

	a.store = store
	paymentService := service.NewPaymentService(
		store,
		gw,
		settingsStore,
		payload.NewBuilder(cfg.LocalDevelopment),
		events,
		service.Options{
			BaseURL:               cfg.BaseURL,
			FinishURL:             cfg.FinishURL,
			DefaultSalesChannelID: cfg.DefaultSalesChannelID,
		},
		logger,
	)

	// HTTP router.
	bgCtx, stop := context.WithCancel(context.Background())
	a.stopBackground = stop
	router := handler.NewRouter(bgCtx, paymentService, healthHandler, handler.RouterConfig{
		JWTSecret:        cfg.JWTSecret,
		WebhookRateLimit: cfg.WebhookRateLimit,
		WebhookBurst:     cfg.WebhookBurst,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Gateway calls may take TrxpsTimeout; leave room for the response.
		WriteTimeout: cfg.TrxpsTimeout*2 + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return a, nil
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
		a.close()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.close()

	a.logger.Info("application shutdown complete")
	return nil
}

// close releases everything NewApp opened. It tolerates partially
// initialized apps.
func (a *App) close() {
	if a.stopBackground != nil {
		a.stopBackground()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.localRedis != nil {
		a.localRedis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}
