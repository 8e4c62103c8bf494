package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a ledger record.
type TransactionKind string

const (
	KindDeposit      TransactionKind = "DEPOSIT"
	KindWithdrawal   TransactionKind = "WITHDRAWAL"
	KindTransferOut  TransactionKind = "TRANSFER_OUT"
	KindTransferIn   TransactionKind = "TRANSFER_IN"
	KindCompensation TransactionKind = "COMPENSATION"
)

var validKinds = map[TransactionKind]bool{
	KindDeposit:      true,
	KindWithdrawal:   true,
	KindTransferOut:  true,
	KindTransferIn:   true,
	KindCompensation: true,
}

// IsValid reports whether k is a known kind.
func (k TransactionKind) IsValid() bool {
	return validKinds[k]
}

// TransactionRecord is an immutable entry of the local transaction log.
// Amount is signed: positive means funds entered the account.
type TransactionRecord struct {
	CreatedAt             time.Time
	ID                    string
	CorrelationID         string
	CreatedBy             string
	Kind                  TransactionKind
	Currency              string
	Memo                  string
	AccountID             int64
	CounterpartyAccountID int64
	Amount                decimal.Decimal
}

// FormattedAmount renders the amount as "ETB 100.00" or "-ETB 40.00".
func (r *TransactionRecord) FormattedAmount() string {
	sign := ""
	if r.Amount.IsNegative() {
		sign = "-"
	}
	return sign + r.Currency + " " + r.Amount.Abs().StringFixed(2)
}
