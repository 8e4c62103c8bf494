package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Request errors
	ErrValidation = errors.New("validation failed")
	ErrCanceled   = errors.New("operation canceled before contacting the ledger")

	// Remote ledger errors
	ErrRejected    = errors.New("ledger rejected the mutation")
	ErrUnavailable = errors.New("ledger outcome unknown")

	// Transfer outcomes
	ErrCompensatedFailure = errors.New("transfer failed and the debit was reversed")
	ErrInconsistentState  = errors.New("transfer failed and the reversal failed: manual reconciliation required")

	// Local storage errors
	ErrStorage = errors.New("local ledger storage failed")
)

// FieldError is a single violated rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError enumerates every violated field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Add records a violation.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any violation was recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// RemoteErrorKind classifies a failed ledger call.
type RemoteErrorKind string

const (
	// RemoteRejected means the ledger definitively did not apply the mutation.
	RemoteRejected RemoteErrorKind = "rejected"
	// RemoteUnavailable means the outcome is unknown (timeout, network, 5xx).
	RemoteUnavailable RemoteErrorKind = "unavailable"
	// RemoteUnexpected is any other failure; handled as unavailable.
	RemoteUnexpected RemoteErrorKind = "unexpected"
)

// RemoteError is returned by ledger clients.
type RemoteError struct {
	Err       error
	Kind      RemoteErrorKind
	Op        string
	AccountID int64
}

func (e *RemoteError) Error() string {
	msg := fmt.Sprintf("ledger %s on account %d: %s", e.Op, e.AccountID, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is maps the kind onto ErrRejected or ErrUnavailable.
func (e *RemoteError) Is(target error) bool {
	switch target {
	case ErrRejected:
		return e.Kind == RemoteRejected
	case ErrUnavailable:
		return e.Kind == RemoteUnavailable || e.Kind == RemoteUnexpected
	}
	return false
}

// DefinitelyNotApplied reports whether the mutation is known not to have happened.
func (e *RemoteError) DefinitelyNotApplied() bool {
	return e.Kind == RemoteRejected
}

// NewRemoteError builds a RemoteError.
func NewRemoteError(kind RemoteErrorKind, op string, accountID int64, err error) *RemoteError {
	return &RemoteError{Kind: kind, Op: op, AccountID: accountID, Err: err}
}

// TransferError reports a transfer that failed after the source was debited.
type TransferError struct {
	CreditErr       error
	CompensationErr error
	CorrelationID   string
	State           TransferState
}

func (e *TransferError) Error() string {
	switch e.State {
	case TransferInconsistentState:
		return fmt.Sprintf("%s (correlation %s): credit: %v; compensation: %v",
			ErrInconsistentState, e.CorrelationID, e.CreditErr, e.CompensationErr)
	default:
		return fmt.Sprintf("%s (correlation %s): credit: %v",
			ErrCompensatedFailure, e.CorrelationID, e.CreditErr)
	}
}

// Is maps the state onto ErrCompensatedFailure or ErrInconsistentState.
func (e *TransferError) Is(target error) bool {
	switch target {
	case ErrCompensatedFailure:
		return e.State == TransferCompensatedFailure
	case ErrInconsistentState:
		return e.State == TransferInconsistentState
	}
	return false
}

func (e *TransferError) Unwrap() []error {
	errs := []error{}
	if e.CreditErr != nil {
		errs = append(errs, e.CreditErr)
	}
	if e.CompensationErr != nil {
		errs = append(errs, e.CompensationErr)
	}
	return errs
}

// StorageError reports a failed local write or read.
// RemoteApplied is set when the ledger already acknowledged the mutation.
type StorageError struct {
	Err           error
	Op            string
	CorrelationID string
	RemoteApplied bool
}

func (e *StorageError) Error() string {
	msg := fmt.Sprintf("%s: %s: %v", ErrStorage, e.Op, e.Err)
	if e.RemoteApplied {
		msg += fmt.Sprintf(" (remote mutation already applied, correlation %s)", e.CorrelationID)
	}
	return msg
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
