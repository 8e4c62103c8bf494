package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/gotransfer/internal/adapter/ledgerclient"
	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
	"github.com/iho/gotransfer/internal/usecase/mocks"
)

var operator = domain.Caller{ID: "user-1", Role: domain.RoleOperator}

type harness struct {
	ledger *mocks.MockLedgerClient
	repo   *mocks.MemoryTransactionRepository
	txm    *mocks.FakeTxManager
	alerts *mocks.RecordingAlertPublisher
	uc     *usecase.TransactionUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	h := &harness{
		ledger: mocks.NewMockLedgerClient(ctrl),
		repo:   mocks.NewMemoryTransactionRepository(),
		txm:    mocks.NewFakeTxManager(),
		alerts: &mocks.RecordingAlertPublisher{},
	}
	h.uc = usecase.NewTransactionUseCase(
		h.ledger,
		h.txm,
		h.repo,
		mocks.NewSequenceIDGenerator("id"),
		mocks.OnceRetrier{},
		h.alerts,
		usecase.NoopMetrics{},
		domain.NewRequestValidator("ETB"),
		zerolog.Nop(),
	)
	return h
}

// onAccount matches a LedgerMutation by target account.
type onAccount int64

func (a onAccount) Matches(x any) bool {
	m, ok := x.(domain.LedgerMutation)
	return ok && m.AccountID == int64(a)
}

func (a onAccount) String() string {
	return fmt.Sprintf("mutation on account %d", int64(a))
}

func ack(context.Context, domain.LedgerMutation) (domain.LedgerAck, error) {
	return domain.LedgerAck{Reference: "ref"}, nil
}

func rejected(op string, accountID int64) error {
	return domain.NewRemoteError(domain.RemoteRejected, op, accountID, errors.New("insufficient funds"))
}

func unavailable(op string, accountID int64) error {
	return domain.NewRemoteError(domain.RemoteUnavailable, op, accountID, context.DeadlineExceeded)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTransactionUseCase_Deposit_Success(t *testing.T) {
	h := newHarness(t)

	var sent domain.LedgerMutation
	h.ledger.EXPECT().Credit(gomock.Any(), onAccount(1)).DoAndReturn(
		func(ctx context.Context, m domain.LedgerMutation) (domain.LedgerAck, error) {
			sent = m
			return ack(ctx, m)
		})

	record, err := h.uc.Deposit(context.Background(), operator, usecase.DepositInput{
		AccountID: 1,
		Amount:    amount("100.00"),
		Memo:      "salary",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Kind != domain.KindDeposit {
		t.Errorf("expected DEPOSIT, got %s", record.Kind)
	}
	if !record.Amount.Equal(amount("100")) {
		t.Errorf("expected +100, got %s", record.Amount)
	}
	if record.Currency != "ETB" {
		t.Errorf("expected default currency ETB, got %s", record.Currency)
	}
	if record.CreatedBy != "user-1" {
		t.Errorf("expected created_by user-1, got %s", record.CreatedBy)
	}
	if record.CreatedAt.Location() != time.UTC {
		t.Errorf("expected UTC timestamp, got %v", record.CreatedAt.Location())
	}

	if sent.Memo != "Deposit - salary" {
		t.Errorf("unexpected remote memo %q", sent.Memo)
	}
	if sent.IdempotencyKey != record.CorrelationID+":deposit" {
		t.Errorf("unexpected idempotency key %q", sent.IdempotencyKey)
	}

	history, _ := h.uc.History(context.Background(), 1)
	if len(history) != 1 {
		t.Fatalf("expected 1 record, got %d", len(history))
	}
}

func TestTransactionUseCase_Deposit_RemoteFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"rejected", rejected("credit", 1), domain.ErrRejected},
		{"unavailable", unavailable("credit", 1), domain.ErrUnavailable},
		{"unclassified error is unavailable", errors.New("socket closed"), domain.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.ledger.EXPECT().Credit(gomock.Any(), onAccount(1)).Return(domain.LedgerAck{}, tt.err)

			record, err := h.uc.Deposit(context.Background(), operator, usecase.DepositInput{
				AccountID: 1,
				Amount:    amount("10"),
			})

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if record != nil {
				t.Fatalf("expected no record, got %+v", record)
			}
			if n := len(h.repo.Records()); n != 0 {
				t.Fatalf("expected no local records, got %d", n)
			}
			if n := len(h.txm.Transactions()); n != 0 {
				t.Fatalf("expected no local transaction, got %d", n)
			}
		})
	}
}

func TestTransactionUseCase_Withdraw_Success(t *testing.T) {
	h := newHarness(t)

	var sent domain.LedgerMutation
	h.ledger.EXPECT().Debit(gomock.Any(), onAccount(1)).DoAndReturn(
		func(ctx context.Context, m domain.LedgerMutation) (domain.LedgerAck, error) {
			sent = m
			return ack(ctx, m)
		})

	record, err := h.uc.Withdraw(context.Background(), operator, usecase.WithdrawInput{
		AccountID: 1,
		Amount:    amount("40"),
		Currency:  "ETB",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Kind != domain.KindWithdrawal {
		t.Errorf("expected WITHDRAWAL, got %s", record.Kind)
	}
	if !record.Amount.Equal(amount("-40")) {
		t.Errorf("expected -40, got %s", record.Amount)
	}
	if got := record.FormattedAmount(); got != "-ETB 40.00" {
		t.Errorf("expected -ETB 40.00, got %s", got)
	}
	if !sent.Amount.Equal(amount("40")) {
		t.Errorf("expected positive remote amount, got %s", sent.Amount)
	}
	if sent.Memo != "Withdrawal" {
		t.Errorf("unexpected remote memo %q", sent.Memo)
	}
}

func TestTransactionUseCase_ValidationFailsBeforeRemoteCall(t *testing.T) {
	h := newHarness(t)

	_, err := h.uc.Transfer(context.Background(), operator, usecase.TransferInput{
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        amount("0"),
	})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if len(verr.Fields) != 1 || verr.Fields[0].Field != "amount" {
		t.Fatalf("expected a single amount violation, got %+v", verr.Fields)
	}
	if n := len(h.repo.Records()); n != 0 {
		t.Fatalf("expected no records, got %d", n)
	}
}

func TestTransactionUseCase_CanceledBeforeRemoteCall(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.uc.Deposit(ctx, operator, usecase.DepositInput{AccountID: 1, Amount: amount("5")})
	if !errors.Is(err, domain.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled to be wrapped, got %v", err)
	}

	result, err := h.uc.Transfer(ctx, operator, usecase.TransferInput{FromAccountID: 1, ToAccountID: 2, Amount: amount("5")})
	if !errors.Is(err, domain.ErrCanceled) {
		t.Fatalf("expected ErrCanceled, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result, got %+v", result)
	}
}

func TestTransactionUseCase_Transfer_Completed(t *testing.T) {
	h := newHarness(t)

	gomock.InOrder(
		h.ledger.EXPECT().Debit(gomock.Any(), onAccount(1)).DoAndReturn(
			func(ctx context.Context, m domain.LedgerMutation) (domain.LedgerAck, error) {
				if m.Memo != "Transfer to 2 - rent" {
					t.Errorf("unexpected debit memo %q", m.Memo)
				}
				return ack(ctx, m)
			}),
		h.ledger.EXPECT().Credit(gomock.Any(), onAccount(2)).DoAndReturn(
			func(ctx context.Context, m domain.LedgerMutation) (domain.LedgerAck, error) {
				if m.Memo != "Transfer from 1 - rent" {
					t.Errorf("unexpected credit memo %q", m.Memo)
				}
				return ack(ctx, m)
			}),
	)

	result, err := h.uc.Transfer(context.Background(), operator, usecase.TransferInput{
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        amount("25.00"),
		Memo:          "rent",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != domain.TransferCompleted {
		t.Fatalf("expected COMPLETED, got %s", result.State)
	}

	out, _ := h.uc.History(context.Background(), 1)
	in, _ := h.uc.History(context.Background(), 2)
	if len(out) != 1 || len(in) != 1 {
		t.Fatalf("expected one record per account, got %d and %d", len(out), len(in))
	}

	if out[0].Kind != domain.KindTransferOut || !out[0].Amount.Equal(amount("-25")) {
		t.Errorf("unexpected source record %+v", out[0])
	}
	if in[0].Kind != domain.KindTransferIn || !in[0].Amount.Equal(amount("25")) {
		t.Errorf("unexpected destination record %+v", in[0])
	}
	if out[0].CorrelationID != result.CorrelationID || in[0].CorrelationID != result.CorrelationID {
		t.Errorf("records must share the correlation id %s", result.CorrelationID)
	}
	if !out[0].CreatedAt.Equal(in[0].CreatedAt) {
		t.Errorf("legs must share a timestamp")
	}
	if out[0].Memo != "rent -> 2" || in[0].Memo != "rent <- 1" {
		t.Errorf("unexpected record memos %q, %q", out[0].Memo, in[0].Memo)
	}

	txs := h.txm.Transactions()
	if len(txs) != 1 || !txs[0].Committed() {
		t.Fatalf("expected both legs in one committed transaction, got %d", len(txs))
	}

	unpaired, _ := h.repo.CountUnpairedTransfers(context.Background())
	if unpaired != 0 {
		t.Fatalf("expected no unpaired transfers, got %d", unpaired)
	}
}

func TestTransactionUseCase_Transfer_DebitFails(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{"rejected", rejected("debit", 1), domain.ErrRejected},
		{"unavailable", unavailable("debit", 1), domain.ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.ledger.EXPECT().Debit(gomock.Any(), onAccount(1)).Return(domain.LedgerAck{}, tt.err)
			// No Credit expectation: any credit call fails the test.

			result, err := h.uc.Transfer(context.Background(), operator, usecase.TransferInput{
				FromAccountID: 1,
				ToAccountID:   2,
				Amount:        amount("25"),
			})

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if result.State != domain.TransferAbortedNoEffect {
				t.Fatalf("expected ABORTED_NO_EFFECT, got %s", result.State)
			}
			if n := len(h.repo.Records()); n != 0 {
				t.Fatalf("expected no records, got %d", n)
			}
			if n := len(h.alerts.Alerts()); n != 0 {
				t.Fatalf("expected no alerts, got %d", n)
			}
		})
	}
}

func TestTransactionUseCase_Transfer_CompensatedFailure(t *testing.T) {
	tests := []struct {
		name      string
		creditErr error
	}{
		{"credit rejected", rejected("credit", 2)},
		{"credit unavailable", unavailable("credit", 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			var compensation domain.LedgerMutation
			gomock.InOrder(
				h.ledger.EXPECT().Debit(gomock.Any(), onAccount(1)).DoAndReturn(ack),
				h.ledger.EXPECT().Credit(gomock.Any(), onAccount(2)).Return(domain.LedgerAck{}, tt.creditErr),
				h.ledger.EXPECT().Credit(gomock.Any(), onAccount(1)).DoAndReturn(
					func(ctx context.Context, m domain.LedgerMutation) (domain.LedgerAck, error) {
						compensation = m
						return ack(ctx, m)
					}),
			)

			result, err := h.uc.Transfer(context.Background(), operator, usecase.TransferInput{
				FromAccountID: 1,
				ToAccountID:   2,
				Amount:        amount("25.00"),
			})

			if !errors.Is(err, domain.ErrCompensatedFailure) {
				t.Fatalf("expected ErrCompensatedFailure, got %v", err)
			}
			if errors.Is(err, domain.ErrInconsistentState) {
				t.Fatalf("compensated failure must not be reported as inconsistent")
			}
			if result.State != domain.TransferCompensatedFailure {
				t.Fatalf("expected COMPENSATED_FAILURE, got %s", result.State)
			}

			if compensation.Memo != "Compensation for failed transfer to 2 - Transfer" {
				t.Errorf("unexpected compensation memo %q", compensation.Memo)
			}
			if compensation.IdempotencyKey != result.CorrelationID+":compensate" {
				t.Errorf("unexpected compensation key %q", compensation.IdempotencyKey)
			}

			source, _ := h.uc.History(context.Background(), 1)
			dest, _ := h.uc.History(context.Background(), 2)
			if len(source) != 1 {
				t.Fatalf("expected one COMPENSATION record on account 1, got %d", len(source))
			}
			if source[0].Kind != domain.KindCompensation || !source[0].Amount.Equal(amount("25")) {
				t.Errorf("unexpected compensation record %+v", source[0])
			}
			if len(dest) != 0 {
				t.Errorf("expected no records on account 2, got %d", len(dest))
			}
		})
	}
}

// flakyCreditLedger acks debits and fails credits to one account.
type flakyCreditLedger struct {
	failAccount int64
	credits     []domain.LedgerMutation
}

func (l *flakyCreditLedger) Debit(context.Context, domain.LedgerMutation) (domain.LedgerAck, error) {
	return domain.LedgerAck{Reference: "debit"}, nil
}

func (l *flakyCreditLedger) Credit(_ context.Context, m domain.LedgerMutation) (domain.LedgerAck, error) {
	l.credits = append(l.credits, m)
	if m.AccountID == l.failAccount {
		return domain.LedgerAck{}, unavailable("credit", m.AccountID)
	}
	return domain.LedgerAck{Reference: "credit"}, nil
}

func TestTransactionUseCase_Transfer_CompensatesThroughTrippedBreaker(t *testing.T) {
	remote := &flakyCreditLedger{failAccount: 2}
	breaker := ledgerclient.NewBreakerClient(remote, ledgerclient.BreakerConfig{
		ConsecutiveFailures: 1,
		Timeout:             time.Minute,
	}, zerolog.Nop())

	repo := mocks.NewMemoryTransactionRepository()
	uc := usecase.NewTransactionUseCase(
		breaker,
		mocks.NewFakeTxManager(),
		repo,
		mocks.NewSequenceIDGenerator("id"),
		mocks.OnceRetrier{},
		&mocks.RecordingAlertPublisher{},
		usecase.NoopMetrics{},
		domain.NewRequestValidator("ETB"),
		zerolog.Nop(),
	)

	result, err := uc.Transfer(context.Background(), operator, usecase.TransferInput{
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        amount("25.00"),
	})

	if !errors.Is(err, domain.ErrCompensatedFailure) {
		t.Fatalf("expected ErrCompensatedFailure, got %v", err)
	}
	if result.State != domain.TransferCompensatedFailure {
		t.Fatalf("expected COMPENSATED_FAILURE, got %s", result.State)
	}
	if len(remote.credits) != 2 {
		t.Fatalf("expected credit and compensation to reach the ledger, got %d credits", len(remote.credits))
	}
	if c := remote.credits[1]; c.AccountID != 1 || c.Step != domain.StepCompensate {
		t.Fatalf("unexpected compensation %+v", c)
	}
}

func TestTransactionUseCase_Transfer_InconsistentState(t *testing.T) {
	h := newHarness(t)

	gomock.InOrder(
		h.ledger.EXPECT().Debit(gomock.Any(), onAccount(1)).DoAndReturn(ack),
		h.ledger.EXPECT().Credit(gomock.Any(), onAccount(2)).Return(domain.LedgerAck{}, rejected("credit", 2)),
		h.ledger.EXPECT().Credit(gomock.Any(), onAccount(1)).Return(domain.LedgerAck{}, unavailable("credit", 1)),
	)

	result, err := h.uc.Transfer(context.Background(), operator, usecase.TransferInput{
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        amount("25"),
	})

	if !errors.Is(err, domain.ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState, got %v", err)
	}
	if errors.Is(err, domain.ErrCompensatedFailure) {
		t.Fatalf("inconsistent state must not be reported as compensated")
	}
	if result.State != domain.TransferInconsistentState {
		t.Fatalf("expected INCONSISTENT_STATE, got %s", result.State)
	}

	var terr *domain.TransferError
	if !errors.As(err, &terr) || terr.CompensationErr == nil {
		t.Fatalf("expected TransferError carrying both causes, got %v", err)
	}

	if n := len(h.repo.Records()); n != 0 {
		t.Fatalf("expected zero local records, got %d", n)
	}

	alerts := h.alerts.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("expected one alert, got %d", len(alerts))
	}
	if alerts[0].Reason != domain.AlertCompensationFailed || alerts[0].CorrelationID != result.CorrelationID {
		t.Errorf("unexpected alert %+v", alerts[0])
	}
}

func TestTransactionUseCase_Transfer_AlertFailureKeepsError(t *testing.T) {
	h := newHarness(t)
	h.alerts.Err = errors.New("broker down")

	h.ledger.EXPECT().Debit(gomock.Any(), onAccount(1)).DoAndReturn(ack)
	h.ledger.EXPECT().Credit(gomock.Any(), gomock.Any()).Return(domain.LedgerAck{}, unavailable("credit", 0)).Times(2)

	_, err := h.uc.Transfer(context.Background(), operator, usecase.TransferInput{
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        amount("1"),
	})
	if !errors.Is(err, domain.ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState, got %v", err)
	}
}

func TestTransactionUseCase_Transfer_StorageFailure(t *testing.T) {
	h := newHarness(t)
	storageErr := errors.New("disk full")
	h.repo.AppendFunc = func(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) error {
		return storageErr
	}

	h.ledger.EXPECT().Debit(gomock.Any(), onAccount(1)).DoAndReturn(ack)
	h.ledger.EXPECT().Credit(gomock.Any(), onAccount(2)).DoAndReturn(ack)

	result, err := h.uc.Transfer(context.Background(), operator, usecase.TransferInput{
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        amount("25"),
	})

	if !errors.Is(err, domain.ErrStorage) || !errors.Is(err, storageErr) {
		t.Fatalf("expected storage error wrapping the cause, got %v", err)
	}
	var serr *domain.StorageError
	if !errors.As(err, &serr) || !serr.RemoteApplied {
		t.Fatalf("expected RemoteApplied storage error, got %v", err)
	}
	if result.State != domain.TransferStorageFailed {
		t.Fatalf("expected STORAGE_FAILED, got %s", result.State)
	}
	if n := len(h.repo.Records()); n != 0 {
		t.Fatalf("expected no partial records, got %d", n)
	}

	alerts := h.alerts.Alerts()
	if len(alerts) != 1 || alerts[0].Reason != domain.AlertRecordNotPersisted {
		t.Fatalf("expected one RECORD_NOT_PERSISTED alert, got %+v", alerts)
	}
}

func TestTransactionUseCase_Transfer_CommitFailureLeavesNoLegs(t *testing.T) {
	h := newHarness(t)
	h.txm.CommitErr = errors.New("commit failed")

	h.ledger.EXPECT().Debit(gomock.Any(), onAccount(1)).DoAndReturn(ack)
	h.ledger.EXPECT().Credit(gomock.Any(), onAccount(2)).DoAndReturn(ack)

	_, err := h.uc.Transfer(context.Background(), operator, usecase.TransferInput{
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        amount("25"),
	})
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}

	unpaired, _ := h.repo.CountUnpairedTransfers(context.Background())
	if unpaired != 0 || len(h.repo.Records()) != 0 {
		t.Fatalf("expected no transfer legs, got %d records", len(h.repo.Records()))
	}
}

func TestTransactionUseCase_Transfer_NotCancellableAfterDebit(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gomock.InOrder(
		h.ledger.EXPECT().Debit(gomock.Any(), onAccount(1)).DoAndReturn(
			func(c context.Context, m domain.LedgerMutation) (domain.LedgerAck, error) {
				cancel()
				return ack(c, m)
			}),
		h.ledger.EXPECT().Credit(gomock.Any(), onAccount(2)).DoAndReturn(
			func(c context.Context, m domain.LedgerMutation) (domain.LedgerAck, error) {
				if c.Err() != nil {
					t.Errorf("credit must not observe the caller's cancellation: %v", c.Err())
				}
				return ack(c, m)
			}),
	)

	result, err := h.uc.Transfer(ctx, operator, usecase.TransferInput{
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        amount("25"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.State != domain.TransferCompleted {
		t.Fatalf("expected COMPLETED, got %s", result.State)
	}
	if n := len(h.repo.Records()); n != 2 {
		t.Fatalf("expected 2 records, got %d", n)
	}
}

func TestTransactionUseCase_History(t *testing.T) {
	h := newHarness(t)

	h.ledger.EXPECT().Credit(gomock.Any(), onAccount(1)).DoAndReturn(ack)
	h.ledger.EXPECT().Debit(gomock.Any(), onAccount(1)).DoAndReturn(ack)

	if _, err := h.uc.Deposit(context.Background(), operator, usecase.DepositInput{AccountID: 1, Amount: amount("100")}); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := h.uc.Withdraw(context.Background(), operator, usecase.WithdrawInput{AccountID: 1, Amount: amount("40")}); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	records, err := h.uc.History(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Kind != domain.KindDeposit || records[1].Kind != domain.KindWithdrawal {
		t.Errorf("expected deposit then withdrawal, got %s then %s", records[0].Kind, records[1].Kind)
	}
	if records[0].CreatedAt.After(records[1].CreatedAt) {
		t.Errorf("expected ascending creation order")
	}

	empty, err := h.uc.History(context.Background(), 99)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty history, got %d records, err %v", len(empty), err)
	}
}

func TestTransactionUseCase_History_Errors(t *testing.T) {
	h := newHarness(t)

	if _, err := h.uc.History(context.Background(), 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	h.repo.ListByAccountFunc = func(ctx context.Context, accountID int64) ([]*domain.TransactionRecord, error) {
		return nil, errors.New("connection reset")
	}
	if _, err := h.uc.History(context.Background(), 1); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestTransactionUseCase_MetricsRecorded(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerClient(ctrl)
	metrics := mocks.NewMockMetricsRecorder(ctrl)

	uc := usecase.NewTransactionUseCase(
		ledger,
		mocks.NewFakeTxManager(),
		mocks.NewMemoryTransactionRepository(),
		mocks.NewSequenceIDGenerator("id"),
		mocks.OnceRetrier{},
		&mocks.RecordingAlertPublisher{},
		metrics,
		nil,
		zerolog.Nop(),
	)

	ledger.EXPECT().Debit(gomock.Any(), onAccount(1)).DoAndReturn(ack)
	ledger.EXPECT().Credit(gomock.Any(), onAccount(2)).Return(domain.LedgerAck{}, rejected("credit", 2))
	ledger.EXPECT().Credit(gomock.Any(), onAccount(1)).DoAndReturn(ack)

	metrics.EXPECT().RecordRemoteCall(domain.StepDebit, usecase.RemoteResultAck)
	metrics.EXPECT().RecordRemoteCall(domain.StepCredit, usecase.RemoteResultRejected)
	metrics.EXPECT().RecordRemoteCall(domain.StepCompensate, usecase.RemoteResultAck)
	metrics.EXPECT().RecordCompensation(true)
	metrics.EXPECT().RecordOperation(usecase.OperationTransfer, usecase.OutcomeCompensated, gomock.Any())

	if _, err := uc.Transfer(context.Background(), operator, usecase.TransferInput{
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        amount("3"),
	}); !errors.Is(err, domain.ErrCompensatedFailure) {
		t.Fatalf("expected ErrCompensatedFailure, got %v", err)
	}
}
