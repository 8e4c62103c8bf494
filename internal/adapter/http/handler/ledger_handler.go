package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/iho/gotransfer/internal/adapter/http/dto"
	"github.com/iho/gotransfer/internal/usecase"
)

// ConsistencyChecker reports unpaired transfer legs.
type ConsistencyChecker interface {
	CheckConsistency(ctx context.Context) (bool, int64, error)
}

// LedgerHandler handles ledger-wide operations.
type LedgerHandler struct {
	checker ConsistencyChecker
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(checker ConsistencyChecker) *LedgerHandler {
	return &LedgerHandler{checker: checker}
}

// CheckConsistency checks if every transfer has both legs recorded.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	consistent, unpaired, err := h.checker.CheckConsistency(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrInconsistentLedger) {
			writeJSON(w, http.StatusConflict, dto.ConsistencyResponse{
				Status:            "inconsistent",
				Consistent:        false,
				UnpairedTransfers: unpaired,
				Message:           err.Error(),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to check consistency", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyResponse{
		Status:     "consistent",
		Consistent: consistent,
	})
}
