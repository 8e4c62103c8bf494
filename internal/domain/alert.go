package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertReason identifies why a reconciliation alert was raised.
type AlertReason string

const (
	// AlertCompensationFailed: the source was debited, the credit failed and
	// so did the reversal.
	AlertCompensationFailed AlertReason = "COMPENSATION_FAILED"
	// AlertRecordNotPersisted: the ledger applied a mutation that has no
	// local record.
	AlertRecordNotPersisted AlertReason = "RECORD_NOT_PERSISTED"
)

// ReconciliationAlert describes a remote effect that needs manual follow-up.
type ReconciliationAlert struct {
	OccurredAt    time.Time       `json:"occurred_at"`
	CorrelationID string          `json:"correlation_id"`
	Reason        AlertReason     `json:"reason"`
	Operation     string          `json:"operation"`
	State         TransferState   `json:"state,omitempty"`
	Currency      string          `json:"currency"`
	Detail        string          `json:"detail"`
	FromAccountID int64           `json:"from_account_id,omitempty"`
	ToAccountID   int64           `json:"to_account_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
}
