package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gotransfer/internal/domain"
)

const (
	defaultTransferDescription = "Transfer"
	alertPublishTimeout        = 5 * time.Second
)

// TransactionUseCase orchestrates deposits, withdrawals and transfers
// against the remote ledger and records acknowledged effects locally.
// It holds no per-request state and is safe for concurrent use.
type TransactionUseCase struct {
	ledger    LedgerClient
	txManager TransactionManager
	repo      TransactionRepository
	idGen     IDGenerator
	retrier   Retrier
	alerts    AlertPublisher
	metrics   MetricsRecorder
	validator *domain.RequestValidator
	logger    zerolog.Logger
	now       func() time.Time
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(
	ledger LedgerClient,
	txManager TransactionManager,
	repo TransactionRepository,
	idGen IDGenerator,
	retrier Retrier,
	alerts AlertPublisher,
	metrics MetricsRecorder,
	validator *domain.RequestValidator,
	logger zerolog.Logger,
) *TransactionUseCase {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	if validator == nil {
		validator = domain.NewRequestValidator(domain.DefaultCurrency)
	}
	return &TransactionUseCase{
		ledger:    ledger,
		txManager: txManager,
		repo:      repo,
		idGen:     idGen,
		retrier:   retrier,
		alerts:    alerts,
		metrics:   metrics,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// DepositInput represents input for a deposit.
type DepositInput struct {
	Currency  string
	Memo      string
	AccountID int64
	Amount    decimal.Decimal
}

// WithdrawInput represents input for a withdrawal.
type WithdrawInput struct {
	Currency  string
	Memo      string
	AccountID int64
	Amount    decimal.Decimal
}

// TransferInput represents input for a transfer between two accounts.
type TransferInput struct {
	Currency      string
	Memo          string
	FromAccountID int64
	ToAccountID   int64
	Amount        decimal.Decimal
}

type ledgerCall func(context.Context, domain.LedgerMutation) (domain.LedgerAck, error)

type movement struct {
	call      ledgerCall
	operation string
	label     string
	step      domain.LedgerStep
	kind      domain.TransactionKind
	req       domain.MovementRequest
	negate    bool
}

// Deposit credits an account on the remote ledger and records the deposit.
func (uc *TransactionUseCase) Deposit(ctx context.Context, caller domain.Caller, input DepositInput) (*domain.TransactionRecord, error) {
	start := uc.now()
	req, err := uc.validator.ValidateDeposit(domain.MovementRequest(input))
	if err != nil {
		uc.metrics.RecordOperation(OperationDeposit, OutcomeValidation, time.Since(start))
		return nil, err
	}

	return uc.move(ctx, caller, start, movement{
		call:      uc.ledger.Credit,
		operation: OperationDeposit,
		label:     "Deposit",
		step:      domain.StepDeposit,
		kind:      domain.KindDeposit,
		req:       req,
	})
}

// Withdraw debits an account on the remote ledger and records the withdrawal.
func (uc *TransactionUseCase) Withdraw(ctx context.Context, caller domain.Caller, input WithdrawInput) (*domain.TransactionRecord, error) {
	start := uc.now()
	req, err := uc.validator.ValidateWithdrawal(domain.MovementRequest(input))
	if err != nil {
		uc.metrics.RecordOperation(OperationWithdrawal, OutcomeValidation, time.Since(start))
		return nil, err
	}

	return uc.move(ctx, caller, start, movement{
		call:      uc.ledger.Debit,
		operation: OperationWithdrawal,
		label:     "Withdrawal",
		step:      domain.StepWithdrawal,
		kind:      domain.KindWithdrawal,
		req:       req,
		negate:    true,
	})
}

func (uc *TransactionUseCase) move(ctx context.Context, caller domain.Caller, start time.Time, mv movement) (*domain.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		uc.metrics.RecordOperation(mv.operation, OutcomeCanceled, time.Since(start))
		return nil, fmt.Errorf("%w: %w", domain.ErrCanceled, err)
	}

	correlationID := uc.idGen.Generate()
	log := uc.logger.With().
		Str("operation", mv.operation).
		Str("correlation_id", correlationID).
		Int64("account_id", mv.req.AccountID).
		Str("amount", mv.req.Amount.String()).
		Logger()

	_, err := uc.call(ctx, mv.step, mv.call, domain.LedgerMutation{
		IdempotencyKey: domain.IdempotencyKeyFor(correlationID, mv.step),
		Memo:           remoteMemo(mv.label, mv.req.Memo),
		AccountID:      mv.req.AccountID,
		Amount:         mv.req.Amount,
	})
	if err != nil {
		logRemoteFailure(log, err).Msg(mv.operation + " failed, nothing recorded")
		uc.metrics.RecordOperation(mv.operation, outcomeOf(err), time.Since(start))
		return nil, err
	}

	// Acknowledged: the rest is not cancellable by the caller.
	ctx = context.WithoutCancel(ctx)

	amount := mv.req.Amount
	if mv.negate {
		amount = amount.Neg()
	}
	record := &domain.TransactionRecord{
		ID:            uc.idGen.Generate(),
		CorrelationID: correlationID,
		AccountID:     mv.req.AccountID,
		Amount:        amount,
		Kind:          mv.kind,
		Currency:      mv.req.Currency,
		Memo:          mv.req.Memo,
		CreatedBy:     caller.ID,
		CreatedAt:     uc.now().UTC(),
	}

	if err := uc.persist(ctx, record); err != nil {
		serr := &domain.StorageError{Err: err, Op: "record " + mv.operation, CorrelationID: correlationID, RemoteApplied: true}
		log.Error().Err(serr).Msg(mv.operation + " applied remotely but not recorded")
		uc.raise(ctx, domain.ReconciliationAlert{
			CorrelationID: correlationID,
			Reason:        domain.AlertRecordNotPersisted,
			Operation:     mv.operation,
			Currency:      mv.req.Currency,
			Amount:        amount,
			FromAccountID: ifNegative(amount, mv.req.AccountID),
			ToAccountID:   ifPositive(amount, mv.req.AccountID),
			Detail:        serr.Error(),
		})
		uc.metrics.RecordOperation(mv.operation, OutcomeStorage, time.Since(start))
		return nil, serr
	}

	log.Info().Str("record_id", record.ID).Msg(mv.operation + " recorded")
	uc.metrics.RecordOperation(mv.operation, OutcomeSuccess, time.Since(start))
	return record, nil
}

// Transfer debits the source, credits the destination and records both legs.
// If the credit fails after a successful debit, a single compensating credit
// is issued back to the source.
//
// Once a correlation id is assigned the result is returned together with any
// error so callers can see the terminal state.
func (uc *TransactionUseCase) Transfer(ctx context.Context, caller domain.Caller, input TransferInput) (*domain.TransferResult, error) {
	start := uc.now()
	req, err := uc.validator.ValidateTransfer(domain.TransferRequest(input))
	if err != nil {
		uc.metrics.RecordOperation(OperationTransfer, OutcomeValidation, time.Since(start))
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		uc.metrics.RecordOperation(OperationTransfer, OutcomeCanceled, time.Since(start))
		return nil, fmt.Errorf("%w: %w", domain.ErrCanceled, err)
	}

	t := &transferRun{
		uc:          uc,
		caller:      caller,
		req:         req,
		description: transferDescription(req.Memo),
		start:       start,
		result: &domain.TransferResult{
			CorrelationID: uc.idGen.Generate(),
			State:         domain.TransferStart,
		},
	}
	t.log = uc.logger.With().
		Str("operation", OperationTransfer).
		Str("correlation_id", t.result.CorrelationID).
		Int64("from_account_id", req.FromAccountID).
		Int64("to_account_id", req.ToAccountID).
		Str("amount", req.Amount.String()).
		Logger()

	return t.run(ctx)
}

// transferRun carries one transfer attempt through its states.
type transferRun struct {
	uc          *TransactionUseCase
	result      *domain.TransferResult
	caller      domain.Caller
	req         domain.TransferRequest
	description string
	start       time.Time
	log         zerolog.Logger
}

func (t *transferRun) run(ctx context.Context) (*domain.TransferResult, error) {
	uc := t.uc
	id := t.result.CorrelationID

	t.result.State = domain.TransferDebitingSource
	_, err := uc.call(ctx, domain.StepDebit, uc.ledger.Debit, domain.LedgerMutation{
		IdempotencyKey: domain.IdempotencyKeyFor(id, domain.StepDebit),
		Memo:           fmt.Sprintf("Transfer to %d - %s", t.req.ToAccountID, t.description),
		AccountID:      t.req.FromAccountID,
		Amount:         t.req.Amount,
	})
	if err != nil {
		t.result.State = domain.TransferAbortedNoEffect
		logRemoteFailure(t.log, err).Str("state", string(t.result.State)).Msg("transfer aborted at debit")
		return t.finish(outcomeOf(err), err)
	}

	// Debit acknowledged: run to a terminal state regardless of the caller.
	ctx = context.WithoutCancel(ctx)

	t.result.State = domain.TransferCreditingDestination
	_, creditErr := uc.call(ctx, domain.StepCredit, uc.ledger.Credit, domain.LedgerMutation{
		IdempotencyKey: domain.IdempotencyKeyFor(id, domain.StepCredit),
		Memo:           fmt.Sprintf("Transfer from %d - %s", t.req.FromAccountID, t.description),
		AccountID:      t.req.ToAccountID,
		Amount:         t.req.Amount,
	})
	if creditErr != nil {
		return t.compensate(ctx, creditErr)
	}

	t.result.State = domain.TransferPersistingRecords
	now := uc.now().UTC()
	out := &domain.TransactionRecord{
		ID:                    uc.idGen.Generate(),
		CorrelationID:         id,
		AccountID:             t.req.FromAccountID,
		CounterpartyAccountID: t.req.ToAccountID,
		Amount:                t.req.Amount.Neg(),
		Kind:                  domain.KindTransferOut,
		Currency:              t.req.Currency,
		Memo:                  fmt.Sprintf("%s -> %d", t.description, t.req.ToAccountID),
		CreatedBy:             t.caller.ID,
		CreatedAt:             now,
	}
	in := &domain.TransactionRecord{
		ID:                    uc.idGen.Generate(),
		CorrelationID:         id,
		AccountID:             t.req.ToAccountID,
		CounterpartyAccountID: t.req.FromAccountID,
		Amount:                t.req.Amount,
		Kind:                  domain.KindTransferIn,
		Currency:              t.req.Currency,
		Memo:                  fmt.Sprintf("%s <- %d", t.description, t.req.FromAccountID),
		CreatedBy:             t.caller.ID,
		CreatedAt:             now,
	}

	if err := uc.persist(ctx, out, in); err != nil {
		return t.storageFailed(ctx, "record transfer", err)
	}

	t.result.State = domain.TransferCompleted
	t.result.Records = []*domain.TransactionRecord{out, in}
	t.log.Info().Str("state", string(t.result.State)).Msg("transfer completed")
	return t.finish(OutcomeSuccess, nil)
}

func (t *transferRun) compensate(ctx context.Context, creditErr error) (*domain.TransferResult, error) {
	uc := t.uc
	id := t.result.CorrelationID

	t.result.State = domain.TransferCompensating
	logRemoteFailure(t.log, creditErr).Msg("credit failed after debit, compensating")

	memo := fmt.Sprintf("Compensation for failed transfer to %d - %s", t.req.ToAccountID, t.description)
	_, compErr := uc.call(ctx, domain.StepCompensate, uc.ledger.Credit, domain.LedgerMutation{
		IdempotencyKey: domain.IdempotencyKeyFor(id, domain.StepCompensate),
		Memo:           memo,
		AccountID:      t.req.FromAccountID,
		Amount:         t.req.Amount,
	})
	uc.metrics.RecordCompensation(compErr == nil)

	if compErr != nil {
		t.result.State = domain.TransferInconsistentState
		terr := &domain.TransferError{
			CreditErr:       creditErr,
			CompensationErr: compErr,
			CorrelationID:   id,
			State:           t.result.State,
		}
		t.log.Error().
			Err(terr).
			Str("state", string(t.result.State)).
			Bool("reconcile", true).
			Msg("compensation failed, manual reconciliation required")
		uc.raise(ctx, t.alert(domain.AlertCompensationFailed, terr))
		return t.finish(OutcomeInconsistent, terr)
	}

	record := &domain.TransactionRecord{
		ID:                    uc.idGen.Generate(),
		CorrelationID:         id,
		AccountID:             t.req.FromAccountID,
		CounterpartyAccountID: t.req.ToAccountID,
		Amount:                t.req.Amount,
		Kind:                  domain.KindCompensation,
		Currency:              t.req.Currency,
		Memo:                  memo,
		CreatedBy:             t.caller.ID,
		CreatedAt:             uc.now().UTC(),
	}
	if err := uc.persist(ctx, record); err != nil {
		return t.storageFailed(ctx, "record compensation", err)
	}

	t.result.State = domain.TransferCompensatedFailure
	t.result.Records = []*domain.TransactionRecord{record}
	terr := &domain.TransferError{CreditErr: creditErr, CorrelationID: id, State: t.result.State}
	t.log.Warn().Err(creditErr).Str("state", string(t.result.State)).Msg("transfer reversed")
	return t.finish(OutcomeCompensated, terr)
}

func (t *transferRun) storageFailed(ctx context.Context, op string, cause error) (*domain.TransferResult, error) {
	t.result.State = domain.TransferStorageFailed
	serr := &domain.StorageError{Err: cause, Op: op, CorrelationID: t.result.CorrelationID, RemoteApplied: true}
	t.log.Error().
		Err(serr).
		Str("state", string(t.result.State)).
		Bool("reconcile", true).
		Msg("transfer applied remotely but not recorded")
	t.uc.raise(ctx, t.alert(domain.AlertRecordNotPersisted, serr))
	return t.finish(OutcomeStorage, serr)
}

func (t *transferRun) alert(reason domain.AlertReason, err error) domain.ReconciliationAlert {
	return domain.ReconciliationAlert{
		CorrelationID: t.result.CorrelationID,
		Reason:        reason,
		Operation:     OperationTransfer,
		State:         t.result.State,
		Currency:      t.req.Currency,
		Amount:        t.req.Amount,
		FromAccountID: t.req.FromAccountID,
		ToAccountID:   t.req.ToAccountID,
		Detail:        err.Error(),
	}
}

func (t *transferRun) finish(outcome string, err error) (*domain.TransferResult, error) {
	t.uc.metrics.RecordOperation(OperationTransfer, outcome, time.Since(t.start))
	return t.result, err
}

// History returns every record of an account in creation order.
func (uc *TransactionUseCase) History(ctx context.Context, accountID int64) ([]*domain.TransactionRecord, error) {
	if accountID <= 0 {
		verr := &domain.ValidationError{}
		verr.Add("account_id", "must be positive")
		return nil, verr
	}

	records, err := uc.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, &domain.StorageError{Err: err, Op: "list history"}
	}
	return records, nil
}

// call performs one remote mutation. Failures that are not already
// classified are treated as unexpected.
func (uc *TransactionUseCase) call(ctx context.Context, step domain.LedgerStep, fn ledgerCall, m domain.LedgerMutation) (domain.LedgerAck, error) {
	m.Step = step
	ack, err := fn(ctx, m)
	if err != nil {
		var rerr *domain.RemoteError
		if !errors.As(err, &rerr) {
			err = domain.NewRemoteError(domain.RemoteUnexpected, string(step), m.AccountID, err)
		}
	}
	uc.metrics.RecordRemoteCall(step, remoteResult(err))
	return ack, err
}

// persist writes records in one local transaction, retrying transient
// storage failures.
func (uc *TransactionUseCase) persist(ctx context.Context, records ...*domain.TransactionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	return uc.retrier.Retry(ctx, func() error {
		tx, err := uc.txManager.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		for _, r := range records {
			if err := uc.repo.Append(ctx, tx, r); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
}

// raise publishes an alert; failures are logged only.
func (uc *TransactionUseCase) raise(ctx context.Context, alert domain.ReconciliationAlert) {
	if uc.alerts == nil {
		return
	}
	alert.OccurredAt = uc.now().UTC()

	ctx, cancel := context.WithTimeout(ctx, alertPublishTimeout)
	defer cancel()

	if err := uc.alerts.Publish(ctx, alert); err != nil {
		uc.logger.Error().
			Err(err).
			Str("correlation_id", alert.CorrelationID).
			Str("reason", string(alert.Reason)).
			Msg("failed to publish reconciliation alert")
	}
}

// logRemoteFailure picks the level for a failed remote call. Ambiguous
// outcomes are flagged for reconciliation.
func logRemoteFailure(log zerolog.Logger, err error) *zerolog.Event {
	if errors.Is(err, domain.ErrRejected) {
		return log.Warn().Err(err)
	}
	return log.Warn().Err(err).Bool("reconcile", true)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, domain.ErrInconsistentState):
		return OutcomeInconsistent
	case errors.Is(err, domain.ErrCompensatedFailure):
		return OutcomeCompensated
	case errors.Is(err, domain.ErrRejected):
		return OutcomeRejected
	case errors.Is(err, domain.ErrUnavailable):
		return OutcomeUnavailable
	case errors.Is(err, domain.ErrStorage):
		return OutcomeStorage
	}
	return OutcomeUnavailable
}

func remoteResult(err error) string {
	switch {
	case err == nil:
		return RemoteResultAck
	case errors.Is(err, domain.ErrRejected):
		return RemoteResultRejected
	}
	return RemoteResultUnavailable
}

func remoteMemo(label, memo string) string {
	if memo == "" {
		return label
	}
	return label + " - " + memo
}

func transferDescription(memo string) string {
	if memo == "" {
		return defaultTransferDescription
	}
	return memo
}

func ifNegative(amount decimal.Decimal, accountID int64) int64 {
	if amount.IsNegative() {
		return accountID
	}
	return 0
}

func ifPositive(amount decimal.Decimal, accountID int64) int64 {
	if amount.IsPositive() {
		return accountID
	}
	return 0
}
