package domain

// TransferState is a step of the transfer saga.
type TransferState string

const (
	TransferStart                TransferState = "START"
	TransferDebitingSource       TransferState = "DEBITING_SOURCE"
	TransferCreditingDestination TransferState = "CREDITING_DESTINATION"
	TransferPersistingRecords    TransferState = "PERSISTING_RECORDS"
	TransferCompensating         TransferState = "COMPENSATING"

	// Terminal states.
	TransferCompleted          TransferState = "COMPLETED"
	TransferAbortedNoEffect    TransferState = "ABORTED_NO_EFFECT"
	TransferCompensatedFailure TransferState = "COMPENSATED_FAILURE"
	TransferInconsistentState  TransferState = "INCONSISTENT_STATE"

	// TransferStorageFailed means both remote calls succeeded but the local
	// records could not be written.
	TransferStorageFailed TransferState = "STORAGE_FAILED"
)

// IsTerminal reports whether no further automatic action follows s.
func (s TransferState) IsTerminal() bool {
	switch s {
	case TransferCompleted, TransferAbortedNoEffect, TransferCompensatedFailure,
		TransferInconsistentState, TransferStorageFailed:
		return true
	}
	return false
}

// TransferResult describes how a transfer attempt ended.
type TransferResult struct {
	CorrelationID string
	State         TransferState
	Records       []*TransactionRecord
}
