// Package eventpublisher ships reconciliation alerts out of band.
package eventpublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

var (
	_ usecase.AlertPublisher = (*KafkaPublisher)(nil)
	_ usecase.AlertPublisher = (*LogPublisher)(nil)
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes alerts to a Kafka topic, keyed by correlation id so
// every alert of one transfer lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger zerolog.Logger
}

// NewKafkaPublisher creates a KafkaPublisher with synchronous writes.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	logger.Info().Strs("brokers", brokers).Str("topic", topic).Msg("alert publisher initialized")
	return &KafkaPublisher{writer: writer, topic: topic, logger: logger}
}

// Publish implements usecase.AlertPublisher.
func (p *KafkaPublisher) Publish(ctx context.Context, alert domain.ReconciliationAlert) error {
	msg, err := alertMessage(alert)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish alert to %s: %w", p.topic, err)
	}

	p.logger.Debug().
		Str("correlation_id", alert.CorrelationID).
		Str("reason", string(alert.Reason)).
		Str("topic", p.topic).
		Msg("reconciliation alert published")
	return nil
}

// Close closes the Kafka writer
func (p *KafkaPublisher) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

func alertMessage(alert domain.ReconciliationAlert) (kafka.Message, error) {
	payload, err := json.Marshal(alert)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode alert: %w", err)
	}
	return kafka.Message{
		Key:   []byte(alert.CorrelationID),
		Value: payload,
		Time:  alert.OccurredAt,
		Headers: []kafka.Header{
			{Key: "reason", Value: []byte(alert.Reason)},
		},
	}, nil
}

// LogPublisher writes alerts to the log. Used when no broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the alert.
func (p *LogPublisher) Publish(ctx context.Context, alert domain.ReconciliationAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	p.logger.Error().
		Str("correlation_id", alert.CorrelationID).
		Str("reason", string(alert.Reason)).
		RawJSON("alert", payload).
		Msg("RECONCILIATION ALERT")

	return nil
}
