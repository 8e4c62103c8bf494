package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds a local write after the remote side
	// already acknowledged.
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// Operation names used in logs and metrics.
const (
	OperationDeposit    = "deposit"
	OperationWithdrawal = "withdrawal"
	OperationTransfer   = "transfer"
)

// Outcomes used in metrics.
const (
	OutcomeSuccess      = "success"
	OutcomeValidation   = "validation_failed"
	OutcomeCanceled     = "canceled"
	OutcomeRejected     = "rejected"
	OutcomeUnavailable  = "unavailable"
	OutcomeCompensated  = "compensated"
	OutcomeInconsistent = "inconsistent"
	OutcomeStorage      = "storage_failed"
)

// Remote call results used in metrics.
const (
	RemoteResultAck         = "ack"
	RemoteResultRejected    = "rejected"
	RemoteResultUnavailable = "unavailable"
)
