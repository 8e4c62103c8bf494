package usecase

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInconsistentLedger is returned when a transfer has only one recorded leg.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: transfer legs are unpaired")
)

// LedgerReader is the part of TransactionRepository needed for checks.
type LedgerReader interface {
	CountUnpairedTransfers(ctx context.Context) (int64, error)
}

// UnpairedGauge receives the unpaired count of every successful check.
type UnpairedGauge interface {
	SetUnpairedTransfers(n int64)
}

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	reader LedgerReader
	gauge  UnpairedGauge
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(reader LedgerReader) *LedgerUseCase {
	return &LedgerUseCase{
		reader: reader,
	}
}

// WithGauge reports check results to g.
func (uc *LedgerUseCase) WithGauge(g UnpairedGauge) *LedgerUseCase {
	uc.gauge = g
	return uc
}

// CheckConsistency verifies that every TRANSFER_OUT has a matching TRANSFER_IN.
// It returns the number of unpaired correlation ids alongside the verdict.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (bool, int64, error) {
	unpaired, err := uc.reader.CountUnpairedTransfers(ctx)
	if err != nil {
		return false, 0, err
	}
	if uc.gauge != nil {
		uc.gauge.SetUnpairedTransfers(unpaired)
	}

	if unpaired != 0 {
		return false, unpaired, fmt.Errorf("%w: %d correlation ids", ErrInconsistentLedger, unpaired)
	}

	return true, 0, nil
}
