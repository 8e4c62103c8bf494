package dto

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

// DepositRequest represents a request to deposit into an account.
// Amount accepts a JSON number or a numeric string.
type DepositRequest struct {
	AccountID int64       `json:"account_id"`
	Amount    json.Number `json:"amount"`
	Currency  string      `json:"currency,omitempty"`
	Memo      string      `json:"memo,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *DepositRequest) ToUseCaseInput() (usecase.DepositInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.DepositInput{}, err
	}
	return usecase.DepositInput{
		AccountID: r.AccountID,
		Amount:    amount,
		Currency:  r.Currency,
		Memo:      r.Memo,
	}, nil
}

// WithdrawRequest represents a request to withdraw from an account.
type WithdrawRequest struct {
	AccountID int64       `json:"account_id"`
	Amount    json.Number `json:"amount"`
	Currency  string      `json:"currency,omitempty"`
	Memo      string      `json:"memo,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *WithdrawRequest) ToUseCaseInput() (usecase.WithdrawInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.WithdrawInput{}, err
	}
	return usecase.WithdrawInput{
		AccountID: r.AccountID,
		Amount:    amount,
		Currency:  r.Currency,
		Memo:      r.Memo,
	}, nil
}

// TransferRequest represents a request to move funds between two accounts.
type TransferRequest struct {
	FromAccountID int64       `json:"from_account_id"`
	ToAccountID   int64       `json:"to_account_id"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency,omitempty"`
	Memo          string      `json:"memo,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *TransferRequest) ToUseCaseInput() (usecase.TransferInput, error) {
	amount, err := parseAmount(r.Amount)
	if err != nil {
		return usecase.TransferInput{}, err
	}
	return usecase.TransferInput{
		FromAccountID: r.FromAccountID,
		ToAccountID:   r.ToAccountID,
		Amount:        amount,
		Currency:      r.Currency,
		Memo:          r.Memo,
	}, nil
}

// parseAmount reports an unparseable amount the same way the validator
// reports a bad one.
func parseAmount(raw json.Number) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw.String())
	if s == "" {
		verr := &domain.ValidationError{}
		verr.Add("amount", "is required")
		return decimal.Decimal{}, verr
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		verr := &domain.ValidationError{}
		verr.Add("amount", "must be a decimal number")
		return decimal.Decimal{}, verr
	}
	return amount, nil
}
