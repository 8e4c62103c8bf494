package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/infrastructure/postgres/generated"
	"github.com/iho/gotransfer/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	queries *generated.Queries
}

// NewTransactionRepository creates a new TransactionRepository.
// db is usually a *pgxpool.Pool.
func NewTransactionRepository(db generated.DBTX) *TransactionRepository {
	return &TransactionRepository{
		queries: generated.New(db),
	}
}

// Append inserts a record. With a nil tx the insert runs on its own.
func (r *TransactionRepository) Append(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) error {
	queries, err := queriesFor(tx, r.queries)
	if err != nil {
		return err
	}

	return queries.InsertTransactionRecord(ctx, generated.InsertTransactionRecordParams{
		ID:                    record.ID,
		CorrelationID:         record.CorrelationID,
		AccountID:             record.AccountID,
		CounterpartyAccountID: int64ToPgInt8(record.CounterpartyAccountID),
		Amount:                decimalToNumeric(record.Amount),
		Kind:                  string(record.Kind),
		Currency:              record.Currency,
		Memo:                  record.Memo,
		CreatedBy:             record.CreatedBy,
		CreatedAt:             timeToPgTimestamptz(record.CreatedAt),
	})
}

// ListByAccount returns the full history of an account, oldest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID int64) ([]*domain.TransactionRecord, error) {
	rows, err := r.queries.ListTransactionRecordsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	records := make([]*domain.TransactionRecord, len(rows))
	for i, row := range rows {
		records[i] = rowToRecord(row)
	}

	return records, nil
}

// CountUnpairedTransfers counts correlation ids with a single transfer leg.
func (r *TransactionRepository) CountUnpairedTransfers(ctx context.Context) (int64, error) {
	return r.queries.CountUnpairedTransfers(ctx)
}

func rowToRecord(row generated.TransactionRecord) *domain.TransactionRecord {
	return &domain.TransactionRecord{
		ID:                    row.ID,
		CorrelationID:         row.CorrelationID,
		AccountID:             row.AccountID,
		CounterpartyAccountID: row.CounterpartyAccountID.Int64,
		Amount:                numericToDecimal(row.Amount),
		Kind:                  domain.TransactionKind(row.Kind),
		Currency:              row.Currency,
		Memo:                  row.Memo,
		CreatedBy:             row.CreatedBy,
		CreatedAt:             row.CreatedAt.Time.UTC(),
	}
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func int64ToPgInt8(v int64) pgtype.Int8 {
	return pgtype.Int8{Int64: v, Valid: v != 0}
}
