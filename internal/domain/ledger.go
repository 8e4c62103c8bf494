package domain

import "github.com/shopspring/decimal"

// LedgerStep names a remote mutation within one operation attempt.
type LedgerStep string

const (
	StepDeposit    LedgerStep = "deposit"
	StepWithdrawal LedgerStep = "withdrawal"
	StepDebit      LedgerStep = "debit"
	StepCredit     LedgerStep = "credit"
	StepCompensate LedgerStep = "compensate"
)

// LedgerMutation is a single Credit or Debit sent to the remote ledger.
// Amount is always positive; the operation decides the direction.
type LedgerMutation struct {
	// IdempotencyKey is "<correlation id>:<step>". Ledgers that support keys
	// may use it to dedupe; nothing here depends on that.
	IdempotencyKey string
	Memo           string
	// Step is the saga step the mutation belongs to.
	Step           LedgerStep
	AccountID      int64
	Amount         decimal.Decimal
}

// IdempotencyKeyFor builds the key sent with a remote mutation.
func IdempotencyKeyFor(correlationID string, step LedgerStep) string {
	return correlationID + ":" + string(step)
}

// LedgerAck acknowledges an applied mutation.
type LedgerAck struct {
	Reference string
}
