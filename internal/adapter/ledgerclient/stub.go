package ledgerclient

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iho/gotransfer/internal/domain"
)

// StubClient acknowledges every mutation without contacting anything.
// It is meant for local runs without a ledger service.
type StubClient struct {
	logger zerolog.Logger
}

// NewStubClient creates a new StubClient.
func NewStubClient(logger zerolog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

// Debit implements usecase.LedgerClient.
func (s *StubClient) Debit(ctx context.Context, mutation domain.LedgerMutation) (domain.LedgerAck, error) {
	return s.ack(opDebit, mutation), nil
}

// Credit implements usecase.LedgerClient.
func (s *StubClient) Credit(ctx context.Context, mutation domain.LedgerMutation) (domain.LedgerAck, error) {
	return s.ack(opCredit, mutation), nil
}

func (s *StubClient) ack(op string, mutation domain.LedgerMutation) domain.LedgerAck {
	s.logger.Info().
		Str("op", op).
		Int64("account_id", mutation.AccountID).
		Str("amount", mutation.Amount.String()).
		Str("description", mutation.Memo).
		Msg("stub ledger acknowledged mutation")
	return domain.LedgerAck{Reference: "stub-" + mutation.IdempotencyKey}
}
