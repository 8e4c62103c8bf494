package usecase

import (
	"context"
	"time"

	"github.com/iho/gotransfer/internal/domain"
)

// LedgerClient applies mutations on the remote ledger service.
// Errors are *domain.RemoteError; only RemoteRejected means the mutation
// definitely did not happen.
type LedgerClient interface {
	Credit(ctx context.Context, mutation domain.LedgerMutation) (domain.LedgerAck, error)
	Debit(ctx context.Context, mutation domain.LedgerMutation) (domain.LedgerAck, error)
}

// TransactionRepository is the append-only local transaction log.
type TransactionRepository interface {
	Append(ctx context.Context, tx Transaction, record *domain.TransactionRecord) error
	ListByAccount(ctx context.Context, accountID int64) ([]*domain.TransactionRecord, error)
	// CountUnpairedTransfers counts correlation ids with only one transfer leg.
	CountUnpairedTransfers(ctx context.Context) (int64, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs a local storage operation on transient failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// AlertPublisher delivers reconciliation alerts out of band.
type AlertPublisher interface {
	Publish(ctx context.Context, alert domain.ReconciliationAlert) error
}

// MetricsRecorder receives orchestrator measurements.
type MetricsRecorder interface {
	RecordOperation(operation, outcome string, duration time.Duration)
	RecordRemoteCall(step domain.LedgerStep, result string)
	RecordCompensation(succeeded bool)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

// RecordOperation implements MetricsRecorder.
func (NoopMetrics) RecordOperation(string, string, time.Duration) {}

// RecordRemoteCall implements MetricsRecorder.
func (NoopMetrics) RecordRemoteCall(domain.LedgerStep, string) {}

// RecordCompensation implements MetricsRecorder.
func (NoopMetrics) RecordCompensation(bool) {}
