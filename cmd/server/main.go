package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/gotransfer/internal/adapter/http"
	"github.com/iho/gotransfer/internal/adapter/http/handler"
	"github.com/iho/gotransfer/internal/adapter/http/middleware"
	"github.com/iho/gotransfer/internal/adapter/ledgerclient"
	postgresRepo "github.com/iho/gotransfer/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/gotransfer/internal/adapter/repository/redis"
	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/infrastructure/auth"
	"github.com/iho/gotransfer/internal/infrastructure/config"
	"github.com/iho/gotransfer/internal/infrastructure/eventpublisher"
	"github.com/iho/gotransfer/internal/infrastructure/logger"
	"github.com/iho/gotransfer/internal/infrastructure/metrics"
	"github.com/iho/gotransfer/internal/infrastructure/postgres"
	redisInfra "github.com/iho/gotransfer/internal/infrastructure/redis"
	"github.com/iho/gotransfer/internal/usecase"
)

const (
	limiterCleanupInterval = time.Minute
	limiterMaxIdle         = 10 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "gotransfer",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Redis is optional; without it Idempotency-Key headers are ignored.
	var (
		redisClient      goredis.UniversalClient
		idempotencyStore usecase.IdempotencyStore
	)
	if cfg.RedisURL != "" {
		client, err := redisInfra.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		redisClient = client
		idempotencyStore = redisRepo.NewIdempotencyStore(client)
		log.Info().Msg("connected to redis")
	} else {
		log.Warn().Msg("REDIS_URL is empty, idempotency keys disabled")
	}

	ledger, err := buildLedgerClient(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create ledger client")
	}

	alerts, closeAlerts := buildAlertPublisher(cfg, log)
	defer func() {
		if err := closeAlerts(); err != nil {
			log.Error().Err(err).Msg("failed to close alert publisher")
		}
	}()

	m := metrics.New(prometheus.DefaultRegisterer)

	// Initialize repositories
	txManager := postgresRepo.NewTxManager(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)

	// Initialize use cases
	transactionUC := usecase.NewTransactionUseCase(
		ledger,
		txManager,
		transactionRepo,
		postgresRepo.NewULIDGenerator(),
		postgresRepo.NewRetrier(log),
		alerts,
		m,
		domain.NewRequestValidator(cfg.DefaultCurrency),
		log,
	)
	ledgerUC := usecase.NewLedgerUseCase(transactionRepo).WithGauge(m)

	routerCfg := httpAdapter.RouterConfig{
		TransactionHandler: handler.NewTransactionHandler(transactionUC),
		LedgerHandler:      handler.NewLedgerHandler(ledgerUC),
		HealthHandler:      handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore:   idempotencyStore,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		HTTPMetrics:        middleware.NewHTTPMetrics(prometheus.DefaultRegisterer),
		Logger:             log,
	}
	if cfg.AuthEnabled {
		routerCfg.TokenVerifier = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	}
	if limiter := buildRateLimiter(cfg); limiter != nil {
		go limiter.Run(ctx, limiterCleanupInterval, limiterMaxIdle)
		routerCfg.RateLimiter = limiter
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("port", cfg.HTTPPort).
			Bool("auth", cfg.AuthEnabled).
			Bool("ledger_stub", cfg.LedgerLocalStub).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Error().Err(err).Msg("server failed")
	}

	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// buildLedgerClient returns the remote ledger behind a circuit breaker,
// or the in-process stub when LEDGER_LOCAL_STUB is set.
func buildLedgerClient(cfg *config.Config, log zerolog.Logger) (usecase.LedgerClient, error) {
	if cfg.LedgerLocalStub {
		log.Warn().Msg("using in-process ledger stub")
		return ledgerclient.NewStubClient(log), nil
	}

	client, err := ledgerclient.NewHTTPClient(ledgerclient.Config{
		BaseURL:     cfg.LedgerBaseURL,
		Timeout:     cfg.LedgerTimeout,
		DialRetries: cfg.LedgerDialRetries,
	}, log)
	if err != nil {
		return nil, err
	}

	return ledgerclient.NewBreakerClient(client, ledgerclient.BreakerConfig{
		Name:                "ledger",
		MaxRequests:         cfg.BreakerMaxRequests,
		Interval:            cfg.BreakerInterval,
		Timeout:             cfg.BreakerTimeout,
		ConsecutiveFailures: cfg.BreakerConsecutiveFailures,
	}, log), nil
}

// buildAlertPublisher returns the alert sink and its close func.
func buildAlertPublisher(cfg *config.Config, log zerolog.Logger) (usecase.AlertPublisher, func() error) {
	if len(cfg.KafkaBrokers) == 0 {
		return eventpublisher.NewLogPublisher(log), func() error { return nil }
	}
	p := eventpublisher.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAlertTopic, log)
	return p, p.Close
}

func buildRateLimiter(cfg *config.Config) *middleware.RateLimiter {
	if cfg.RateLimitRPS <= 0 {
		return nil
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return middleware.NewRateLimiter(cfg.RateLimitRPS, burst)
}
