package ledgerclient

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

// BreakerConfig configures BreakerClient.
type BreakerConfig struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
}

// BreakerClient fails fast while the ledger keeps timing out or erroring.
// Rejections are business outcomes and do not trip it. Compensating credits
// bypass it.
type BreakerClient struct {
	next    usecase.LedgerClient
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps next with a circuit breaker.
func NewBreakerClient(next usecase.LedgerClient, cfg BreakerConfig, logger zerolog.Logger) *BreakerClient {
	if cfg.Name == "" {
		cfg.Name = "ledger"
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("ledger circuit breaker state changed")
		},
	}

	return &BreakerClient{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Debit implements usecase.LedgerClient.
func (b *BreakerClient) Debit(ctx context.Context, mutation domain.LedgerMutation) (domain.LedgerAck, error) {
	return b.execute(opDebit, mutation, func() (domain.LedgerAck, error) {
		return b.next.Debit(ctx, mutation)
	})
}

// Credit implements usecase.LedgerClient.
func (b *BreakerClient) Credit(ctx context.Context, mutation domain.LedgerMutation) (domain.LedgerAck, error) {
	return b.execute(opCredit, mutation, func() (domain.LedgerAck, error) {
		return b.next.Credit(ctx, mutation)
	})
}

// State reports the breaker state.
func (b *BreakerClient) State() gobreaker.State {
	return b.breaker.State()
}

func (b *BreakerClient) execute(op string, mutation domain.LedgerMutation, call func() (domain.LedgerAck, error)) (domain.LedgerAck, error) {
	// A compensation is the only chance to undo an acknowledged debit; it is
	// always sent and its outcome does not move the breaker.
	if mutation.Step == domain.StepCompensate {
		return call()
	}

	res, err := b.breaker.Execute(func() (interface{}, error) {
		return call()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		// Nothing was sent.
		return domain.LedgerAck{}, domain.NewRemoteError(domain.RemoteUnavailable, op, mutation.AccountID, err)
	}

	ack, _ := res.(domain.LedgerAck)
	return ack, err
}
