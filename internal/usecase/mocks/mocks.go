package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

// MemoryTransactionRepository is an in-memory TransactionRepository.
// Records appended inside a FakeTx become visible only on commit.
type MemoryTransactionRepository struct {
	mu      sync.RWMutex
	records []*domain.TransactionRecord

	AppendFunc        func(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) error
	ListByAccountFunc func(ctx context.Context, accountID int64) ([]*domain.TransactionRecord, error)
}

func NewMemoryTransactionRepository() *MemoryTransactionRepository {
	return &MemoryTransactionRepository{}
}

func (m *MemoryTransactionRepository) Append(ctx context.Context, tx usecase.Transaction, record *domain.TransactionRecord) error {
	if m.AppendFunc != nil {
		if err := m.AppendFunc(ctx, tx, record); err != nil {
			return err
		}
	}

	store := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.records = append(m.records, record)
	}

	if ftx, ok := tx.(*FakeTx); ok {
		ftx.onCommit(store)
		return nil
	}
	store()
	return nil
}

func (m *MemoryTransactionRepository) ListByAccount(ctx context.Context, accountID int64) ([]*domain.TransactionRecord, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.TransactionRecord
	for _, r := range m.records {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryTransactionRepository) CountUnpairedTransfers(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	legs := map[string]int{}
	for _, r := range m.records {
		switch r.Kind {
		case domain.KindTransferOut:
			legs[r.CorrelationID]++
		case domain.KindTransferIn:
			legs[r.CorrelationID]--
		}
	}

	var unpaired int64
	for _, n := range legs {
		if n != 0 {
			unpaired++
		}
	}
	return unpaired, nil
}

// Records returns every committed record.
func (m *MemoryTransactionRepository) Records() []*domain.TransactionRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.TransactionRecord(nil), m.records...)
}

// FakeTx is a Transaction that runs staged writes on commit.
type FakeTx struct {
	mu         sync.Mutex
	staged     []func()
	committed  bool
	rolledBack bool

	CommitErr error
}

func (t *FakeTx) onCommit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staged = append(t.staged, fn)
}

func (t *FakeTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.CommitErr != nil {
		return t.CommitErr
	}
	for _, fn := range t.staged {
		fn()
	}
	t.staged = nil
	t.committed = true
	return nil
}

func (t *FakeTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed {
		return nil
	}
	t.staged = nil
	t.rolledBack = true
	return nil
}

// Committed reports whether Commit succeeded.
func (t *FakeTx) Committed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed
}

// FakeTxManager hands out FakeTx values.
type FakeTxManager struct {
	mu  sync.Mutex
	txs []*FakeTx

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
	CommitErr error
}

func NewFakeTxManager() *FakeTxManager {
	return &FakeTxManager{}
}

func (m *FakeTxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &FakeTx{CommitErr: m.CommitErr}
	m.txs = append(m.txs, tx)
	return tx, nil
}

// Transactions returns every transaction begun so far.
func (m *FakeTxManager) Transactions() []*FakeTx {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*FakeTx(nil), m.txs...)
}

// SequenceIDGenerator yields prefix-1, prefix-2, ...
type SequenceIDGenerator struct {
	prefix string
	n      atomic.Int64
}

func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	return &SequenceIDGenerator{prefix: prefix}
}

func (g *SequenceIDGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}

// OnceRetrier runs the operation a single time.
type OnceRetrier struct{}

func (OnceRetrier) Retry(ctx context.Context, operation func() error) error {
	return operation()
}

// RecordingAlertPublisher keeps every published alert.
type RecordingAlertPublisher struct {
	mu     sync.Mutex
	alerts []domain.ReconciliationAlert

	Err error
}

func (p *RecordingAlertPublisher) Publish(ctx context.Context, alert domain.ReconciliationAlert) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
	return p.Err
}

// Alerts returns the published alerts.
func (p *RecordingAlertPublisher) Alerts() []domain.ReconciliationAlert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ReconciliationAlert(nil), p.alerts...)
}
