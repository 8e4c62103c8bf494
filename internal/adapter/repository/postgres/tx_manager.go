package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/gotransfer/internal/infrastructure/postgres/generated"
	"github.com/iho/gotransfer/internal/usecase"
)

// ErrForeignTransaction is returned when a repository receives a
// usecase.Transaction that was not started by TxManager.
var ErrForeignTransaction = errors.New("transaction was not started by postgres.TxManager")

type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// TxManager implements usecase.TransactionManager. Records are append-only,
// so read committed is enough for the multi-record writes of a transfer.
type TxManager struct {
	pool txBeginner
	opts pgx.TxOptions
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return newTxManager(pool)
}

func newTxManager(pool txBeginner) *TxManager {
	return &TxManager{
		pool: pool,
		opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
	}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	tx, err := m.pool.BeginTx(ctx, m.opts)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	return &Tx{tx: tx}, nil
}

// Tx wraps a pgx transaction.
type Tx struct {
	tx pgx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the transaction. It is a no-op after Commit, so
// callers can defer it unconditionally.
func (t *Tx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if err == nil || errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return fmt.Errorf("rollback transaction: %w", err)
}

// queriesFor returns queries bound to tx, or to fallback when tx is nil.
func queriesFor(tx usecase.Transaction, fallback *generated.Queries) (*generated.Queries, error) {
	if tx == nil {
		return fallback, nil
	}
	pgTx, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrForeignTransaction, tx)
	}
	return fallback.WithTx(pgTx.tx), nil
}
