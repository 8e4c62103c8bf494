package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/gotransfer/internal/adapter/http/handler"
	"github.com/iho/gotransfer/internal/adapter/http/middleware"
	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	TransactionHandler *handler.TransactionHandler
	LedgerHandler      *handler.LedgerHandler
	HealthHandler      *handler.HealthHandler

	// Optional. A nil store disables Idempotency-Key handling, a nil
	// verifier disables authentication, a nil limiter disables throttling
	// and nil HTTPMetrics disables request metrics.
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	TokenVerifier    middleware.TokenVerifier
	RateLimiter      *middleware.RateLimiter
	HTTPMetrics      *middleware.HTTPMetrics
	MetricsHandler   http.Handler

	Logger zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TokenVerifier != nil {
			r.Use(middleware.AuthMiddleware(cfg.TokenVerifier))
		}

		r.Route("/transactions", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(domain.RoleOperator))
				// Runs after auth so keys are scoped per caller.
				if cfg.IdempotencyStore != nil {
					r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
				}

				r.Post("/deposit", cfg.TransactionHandler.Deposit)
				r.Post("/withdraw", cfg.TransactionHandler.Withdraw)
				r.Post("/transfer", cfg.TransactionHandler.Transfer)
			})

			r.With(middleware.RequireRole(domain.RoleViewer)).Get("/history", cfg.TransactionHandler.History)
		})

		// Accounts
		r.With(middleware.RequireRole(domain.RoleViewer)).
			Get("/accounts/{id}/transactions", cfg.TransactionHandler.ListByAccount)

		// Ledger
		r.With(middleware.RequireRole(domain.RoleViewer)).
			Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
	})

	return r
}
