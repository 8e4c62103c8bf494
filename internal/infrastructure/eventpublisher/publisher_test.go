package eventpublisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gotransfer/internal/domain"
)

type stubWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *stubWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *stubWriter) Close() error {
	w.closed = true
	return nil
}

func testAlert() domain.ReconciliationAlert {
	return domain.ReconciliationAlert{
		OccurredAt:    time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		CorrelationID: "corr-1",
		Reason:        domain.AlertCompensationFailed,
		Operation:     "transfer",
		State:         domain.TransferInconsistentState,
		Currency:      "ETB",
		Detail:        "credit rejected; compensation unavailable",
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        decimal.RequireFromString("40.00"),
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &stubWriter{}
	p := &KafkaPublisher{writer: writer, topic: "alerts", logger: zerolog.Nop()}

	require.NoError(t, p.Publish(context.Background(), testAlert()))
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "corr-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "reason", msg.Headers[0].Key)
	assert.Equal(t, string(domain.AlertCompensationFailed), string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "INCONSISTENT_STATE", decoded["state"])
	assert.Equal(t, "40", decoded["amount"])
	assert.EqualValues(t, 2, decoded["to_account_id"])
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	writer := &stubWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: writer, topic: "alerts", logger: zerolog.Nop()}

	err := p.Publish(context.Background(), testAlert())
	require.Error(t, err)
	assert.ErrorIs(t, err, writer.err)
	assert.Contains(t, err.Error(), "alerts")
}

func TestKafkaPublisher_Close(t *testing.T) {
	writer := &stubWriter{}
	p := &KafkaPublisher{writer: writer}

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)

	assert.NoError(t, (&KafkaPublisher{}).Close())
}

func TestNewKafkaPublisherConfiguresWriter(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "alerts", zerolog.Nop())
	t.Cleanup(func() { _ = p.Close() })

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "alerts", w.Topic)
	assert.False(t, w.Async)
	assert.Equal(t, kafka.RequireOne, w.RequiredAcks)
}

func TestLogPublisher_Publish(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	require.NoError(t, p.Publish(context.Background(), testAlert()))

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"correlation_id":"corr-1"`)
	assert.Contains(t, out, `"reason":"COMPENSATION_FAILED"`)
	assert.Contains(t, out, "RECONCILIATION ALERT")
}
