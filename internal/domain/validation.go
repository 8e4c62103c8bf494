package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxMemoLength           = 200
	MaxAmountFractionDigits = 2
	MaxAmountIntegerDigits  = 15
	DefaultCurrency         = "ETB"
)

var (
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
	maxAmount     = decimal.New(1, MaxAmountIntegerDigits)
)

// Shape bounds checked before any rescaling arithmetic. Trailing zeros
// ("1.500") stay within them.
const (
	minAmountExponent        = -(MaxAmountFractionDigits + 18)
	maxAmountCoefficientBits = 128
)

// MovementRequest is a deposit or withdrawal on a single account.
type MovementRequest struct {
	Currency  string
	Memo      string
	AccountID int64
	Amount    decimal.Decimal
}

// TransferRequest moves funds from one account to another.
type TransferRequest struct {
	Currency      string
	Memo          string
	FromAccountID int64
	ToAccountID   int64
	Amount        decimal.Decimal
}

// RequestValidator checks and normalizes caller input. It performs no I/O.
type RequestValidator struct {
	defaultCurrency string
}

// NewRequestValidator creates a validator. An empty currency in a request
// is replaced by defaultCurrency.
func NewRequestValidator(defaultCurrency string) *RequestValidator {
	if defaultCurrency == "" {
		defaultCurrency = DefaultCurrency
	}
	return &RequestValidator{defaultCurrency: defaultCurrency}
}

// ValidateDeposit validates a deposit request.
func (v *RequestValidator) ValidateDeposit(req MovementRequest) (MovementRequest, error) {
	return v.validateMovement(req)
}

// ValidateWithdrawal validates a withdrawal request.
func (v *RequestValidator) ValidateWithdrawal(req MovementRequest) (MovementRequest, error) {
	return v.validateMovement(req)
}

func (v *RequestValidator) validateMovement(req MovementRequest) (MovementRequest, error) {
	verr := &ValidationError{}

	checkAccountID(verr, "account_id", req.AccountID)
	req.Amount = checkAmount(verr, req.Amount)
	req.Currency = v.checkCurrency(verr, req.Currency)
	req.Memo = checkMemo(verr, req.Memo)

	if verr.HasErrors() {
		return MovementRequest{}, verr
	}
	return req, nil
}

// ValidateTransfer validates a transfer request.
func (v *RequestValidator) ValidateTransfer(req TransferRequest) (TransferRequest, error) {
	verr := &ValidationError{}

	checkAccountID(verr, "from_account_id", req.FromAccountID)
	checkAccountID(verr, "to_account_id", req.ToAccountID)
	if req.FromAccountID > 0 && req.FromAccountID == req.ToAccountID {
		verr.Add("to_account_id", "must differ from from_account_id")
	}
	req.Amount = checkAmount(verr, req.Amount)
	req.Currency = v.checkCurrency(verr, req.Currency)
	req.Memo = checkMemo(verr, req.Memo)

	if verr.HasErrors() {
		return TransferRequest{}, verr
	}
	return req, nil
}

func checkAccountID(verr *ValidationError, field string, id int64) {
	if id <= 0 {
		verr.Add(field, "must be positive")
	}
}

func checkAmount(verr *ValidationError, amount decimal.Decimal) decimal.Decimal {
	if err := ValidateAmount(amount); err != nil {
		verr.Add("amount", err.Error())
		return amount
	}
	return amount.Round(MaxAmountFractionDigits)
}

func (v *RequestValidator) checkCurrency(verr *ValidationError, currency string) string {
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return v.defaultCurrency
	}
	if err := ValidateCurrency(currency); err != nil {
		verr.Add("currency", err.Error())
	}
	return currency
}

func checkMemo(verr *ValidationError, memo string) string {
	memo = strings.TrimSpace(memo)
	if !utf8.ValidString(memo) {
		verr.Add("memo", "must be valid UTF-8")
		return memo
	}
	// The local store cannot hold NUL in text columns.
	if strings.ContainsRune(memo, 0) {
		verr.Add("memo", "must not contain NUL characters")
	}
	if utf8.RuneCountInString(memo) > MaxMemoLength {
		verr.Add("memo", fmt.Sprintf("must not exceed %d characters", MaxMemoLength))
	}
	return memo
}

// ValidateAmount checks that amount is positive with at most 2 fractional
// and 15 integer digits.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("must be positive")
	}
	exp := amount.Exponent()
	if exp < minAmountExponent {
		return fmt.Errorf("must have at most %d fractional digits", MaxAmountFractionDigits)
	}
	if exp >= MaxAmountIntegerDigits || amount.Coefficient().BitLen() > maxAmountCoefficientBits {
		return fmt.Errorf("must have at most %d integer digits", MaxAmountIntegerDigits)
	}
	if !amount.Equal(amount.Truncate(MaxAmountFractionDigits)) {
		return fmt.Errorf("must have at most %d fractional digits", MaxAmountFractionDigits)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("must have at most %d integer digits", MaxAmountIntegerDigits)
	}
	return nil
}

// ValidateCurrency checks the 3 uppercase letter currency format.
func ValidateCurrency(currency string) error {
	if !currencyRegex.MatchString(currency) {
		return fmt.Errorf("%q must be 3 uppercase letters (ISO 4217)", currency)
	}
	return nil
}
