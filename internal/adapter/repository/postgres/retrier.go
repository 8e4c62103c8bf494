package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// PostgreSQL error codes that abort a transaction without applying it.
const (
	pgErrSerializationFailure = "40001"
	pgErrDeadlock             = "40P01"
	pgErrLockNotAvailable     = "55P03"
)

// RetrierConfig bounds how long a local write is re-run.
type RetrierConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetrierConfig is used by NewRetrier.
var DefaultRetrierConfig = RetrierConfig{
	MaxRetries:      3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
	MaxElapsedTime:  10 * time.Second,
}

// Retrier implements usecase.Retrier for the local record store.
// Only failures that provably left nothing behind are re-run: aborted
// transactions and requests pgconn reports as never sent. A commit with an
// unknown outcome is not retried, since the records may already exist.
type Retrier struct {
	cfg    RetrierConfig
	logger zerolog.Logger
}

// NewRetrier creates a Retrier with DefaultRetrierConfig.
func NewRetrier(logger zerolog.Logger) *Retrier {
	return NewRetrierWithConfig(DefaultRetrierConfig, logger)
}

// NewRetrierWithConfig creates a Retrier with cfg.
func NewRetrierWithConfig(cfg RetrierConfig, logger zerolog.Logger) *Retrier {
	return &Retrier{cfg: cfg, logger: logger}
}

// Retry runs operation until it succeeds, fails permanently or runs out of
// attempts. The last error is returned unchanged.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	b.MaxElapsedTime = r.cfg.MaxElapsedTime

	attempt := 0
	op := func() error {
		attempt++
		err := operation()
		if err != nil && !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.MaxRetries), ctx)
	return backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		r.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("local write failed without effect, retrying")
	})
}

func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrSerializationFailure, pgErrDeadlock, pgErrLockNotAvailable:
			return true
		}
		return false
	}
	return pgconn.SafeToRetry(err)
}
