package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/iho/gotransfer/internal/adapter/http/dto"
	"github.com/iho/gotransfer/internal/domain"
)

const maxBodyBytes = 1 << 20

// Error codes returned in ErrorResponse.Code.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidBody        = "INVALID_BODY"
	CodeRejected           = "REJECTED"
	CodeLedgerUnavailable  = "LEDGER_UNAVAILABLE"
	CodeCompensatedFailure = "COMPENSATED_FAILURE"
	CodeInconsistentState  = "INCONSISTENT_STATE"
	CodeStorageError       = "STORAGE_ERROR"
	CodeCanceled           = "CANCELED"
	CodeInternal           = "INTERNAL"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

type errorMapping struct {
	status  int
	code    string
	message string
}

// mapDomainError maps domain errors to HTTP status codes and stable codes.
// Transfer outcomes are checked before remote kinds because a TransferError
// wraps the remote error that caused it.
func mapDomainError(err error) errorMapping {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return errorMapping{http.StatusBadRequest, CodeValidationFailed, "validation failed"}
	case errors.Is(err, domain.ErrCanceled):
		return errorMapping{http.StatusRequestTimeout, CodeCanceled, "request canceled"}
	case errors.Is(err, domain.ErrInconsistentState):
		return errorMapping{http.StatusInternalServerError, CodeInconsistentState, "transfer requires manual reconciliation"}
	case errors.Is(err, domain.ErrCompensatedFailure):
		return errorMapping{http.StatusConflict, CodeCompensatedFailure, "transfer failed and was reversed"}
	case errors.Is(err, domain.ErrStorage):
		return errorMapping{http.StatusInternalServerError, CodeStorageError, "failed to record transaction"}
	case errors.Is(err, domain.ErrRejected):
		return errorMapping{http.StatusUnprocessableEntity, CodeRejected, "ledger rejected the request"}
	case errors.Is(err, domain.ErrUnavailable):
		return errorMapping{http.StatusServiceUnavailable, CodeLedgerUnavailable, "ledger unavailable"}
	default:
		return errorMapping{http.StatusInternalServerError, CodeInternal, "internal error"}
	}
}

// writeDomainError writes err using mapDomainError. result, when present,
// adds the correlation id and final state of a transfer attempt.
func writeDomainError(w http.ResponseWriter, err error, result *domain.TransferResult) {
	m := mapDomainError(err)
	resp := dto.ErrorResponse{
		Error:   m.message,
		Code:    m.code,
		Message: err.Error(),
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}

	var serr *domain.StorageError
	if errors.As(err, &serr) {
		resp.CorrelationID = serr.CorrelationID
	}

	if result != nil {
		resp.CorrelationID = result.CorrelationID
		resp.State = string(result.State)
	}

	writeJSON(w, m.status, resp)
}

// decodeBody decodes a bounded JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request body",
			Code:    CodeInvalidBody,
			Message: err.Error(),
		})
		return false
	}
	return true
}

// parseAccountID parses a positive account id.
func parseAccountID(raw, field string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		verr := &domain.ValidationError{}
		verr.Add(field, "must be a positive integer")
		return 0, verr
	}
	return id, nil
}
