package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gotransfer/internal/adapter/http/dto"
	"github.com/iho/gotransfer/internal/adapter/http/middleware"
	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

// TransactionService is the orchestrator as seen by the HTTP layer.
type TransactionService interface {
	Deposit(ctx context.Context, caller domain.Caller, input usecase.DepositInput) (*domain.TransactionRecord, error)
	Withdraw(ctx context.Context, caller domain.Caller, input usecase.WithdrawInput) (*domain.TransactionRecord, error)
	Transfer(ctx context.Context, caller domain.Caller, input usecase.TransferInput) (*domain.TransferResult, error)
	History(ctx context.Context, accountID int64) ([]*domain.TransactionRecord, error)
}

// TransactionHandler handles deposit, withdrawal, transfer and history requests.
type TransactionHandler struct {
	service TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(service TransactionService) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// Deposit credits an account.
func (h *TransactionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req dto.DepositRequest
	if !decodeBody(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	record, err := h.service.Deposit(r.Context(), middleware.CallerFromContext(r.Context()), input)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(record))
}

// Withdraw debits an account.
func (h *TransactionHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawRequest
	if !decodeBody(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	record, err := h.service.Withdraw(r.Context(), middleware.CallerFromContext(r.Context()), input)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(record))
}

// Transfer moves funds between two accounts.
func (h *TransactionHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if !decodeBody(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	result, err := h.service.Transfer(r.Context(), middleware.CallerFromContext(r.Context()), input)
	if err != nil {
		writeDomainError(w, err, result)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransferFromDomain(result))
}

// History lists an account's records, oldest first. The account comes from
// the account_id query parameter.
func (h *TransactionHandler) History(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("account_id")
	if raw == "" {
		raw = r.URL.Query().Get("accountId")
	}
	h.history(w, r, raw, "account_id")
}

// ListByAccount is History addressed as /accounts/{id}/transactions.
func (h *TransactionHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, chi.URLParam(r, "id"), "id")
}

func (h *TransactionHandler) history(w http.ResponseWriter, r *http.Request, raw, field string) {
	accountID, err := parseAccountID(raw, field)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	records, err := h.service.History(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(records))
}
