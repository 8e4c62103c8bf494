package dto

import (
	"time"

	"github.com/iho/gotransfer/internal/domain"
)

// TransactionResponse represents a transaction record in API responses.
type TransactionResponse struct {
	ID                    string    `json:"id"`
	AccountID             int64     `json:"account_id"`
	Amount                string    `json:"amount"`
	Kind                  string    `json:"kind"`
	Currency              string    `json:"currency"`
	Memo                  string    `json:"memo"`
	CorrelationID         string    `json:"correlation_id"`
	CounterpartyAccountID *int64    `json:"counterparty_account_id,omitempty"`
	CreatedBy             string    `json:"created_by"`
	CreatedAt             time.Time `json:"created_at"`
	FormattedAmount       string    `json:"formatted_amount"`
}

// TransactionFromDomain converts a domain record to response.
func TransactionFromDomain(r *domain.TransactionRecord) *TransactionResponse {
	resp := &TransactionResponse{
		ID:              r.ID,
		AccountID:       r.AccountID,
		Amount:          r.Amount.StringFixed(domain.MaxAmountFractionDigits),
		Kind:            string(r.Kind),
		Currency:        r.Currency,
		Memo:            r.Memo,
		CorrelationID:   r.CorrelationID,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		FormattedAmount: r.FormattedAmount(),
	}
	if r.CounterpartyAccountID != 0 {
		id := r.CounterpartyAccountID
		resp.CounterpartyAccountID = &id
	}
	return resp
}

// TransactionsFromDomain converts domain records to responses.
func TransactionsFromDomain(records []*domain.TransactionRecord) []*TransactionResponse {
	result := make([]*TransactionResponse, len(records))
	for i, r := range records {
		result[i] = TransactionFromDomain(r)
	}
	return result
}

// TransferResponse reports how a transfer ended.
type TransferResponse struct {
	CorrelationID string                 `json:"correlation_id"`
	State         string                 `json:"state"`
	Records       []*TransactionResponse `json:"records,omitempty"`
}

// TransferFromDomain converts a transfer result to response.
func TransferFromDomain(res *domain.TransferResult) *TransferResponse {
	resp := &TransferResponse{
		CorrelationID: res.CorrelationID,
		State:         string(res.State),
	}
	if len(res.Records) > 0 {
		resp.Records = TransactionsFromDomain(res.Records)
	}
	return resp
}

// ConsistencyResponse is the result of the unpaired transfer check.
type ConsistencyResponse struct {
	Status            string `json:"status"`
	Consistent        bool   `json:"consistent"`
	UnpairedTransfers int64  `json:"unpaired_transfers"`
	Message           string `json:"message,omitempty"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error         string              `json:"error"`
	Code          string              `json:"code,omitempty"`
	Message       string              `json:"message,omitempty"`
	CorrelationID string              `json:"correlation_id,omitempty"`
	State         string              `json:"state,omitempty"`
	Fields        []domain.FieldError `json:"fields,omitempty"`
}
