package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/propcrm-transaction-import/internal/config"
	"github.com/segmentio/kafka-go"
)

// BatchEventType distinguishes the lifecycle events a batch emits
type BatchEventType string

const (
	BatchImported BatchEventType = "batch.imported"
	BatchDeleted  BatchEventType = "batch.deleted"
)

// BatchEvent is the message published after a batch import or deletion so
// downstream consumers (reporting, statements) can react
type BatchEvent struct {
	Type                BatchEventType `json:"type"`
	BatchID             string         `json:"batch_id"`
	SourceLabel         string         `json:"source_label,omitempty"`
	SuccessfulImports   int            `json:"successful_imports,omitempty"`
	FailedImports       int            `json:"failed_imports,omitempty"`
	SkippedDuplicates   int            `json:"skipped_duplicates,omitempty"`
	DeletedTransactions int64          `json:"deleted_transactions,omitempty"`
	OccurredAt          time.Time      `json:"occurred_at"`
}

type BatchEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewBatchEventProducer creates the batch event producer and ensures the
// topic exists
func NewBatchEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*BatchEventProducer, error) {
	if cfg.BatchEventTopic == "" {
		return nil, fmt.Errorf("kafka batch event topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for batch event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.BatchEventTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure batch event topic %s exists: %w", cfg.BatchEventTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.BatchEventTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Batch events are advisory, favor throughput
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.BatchEventTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.BatchEventTopic, "count", len(messages))
			}
		},
	}

	return &BatchEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.BatchEventTopic,
	}, nil
}

func (p *BatchEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal batch event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish batch event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish batch event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published batch event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *BatchEventProducer) Close() error {
	p.logger.Info("Closing batch event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
