package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/logger"
)

// Producer writes ingest events to the document topic. Messages are keyed
// by document id, so every version of a document lands on one partition
// in publish order and a replay sees the latest version last.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{
		writer: w,
		logger: logger.WithComponent("kafka-producer").With("topic", topic),
	}
}

// PublishEvents writes events in one synchronous call.
func (p *Producer) PublishEvents(ctx context.Context, events []ingestion.IngestEvent) error {
	messages, err := encodeEvents(events)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("failed to publish ingest events",
			"count", len(messages),
			"error", err,
		)
		return fmt.Errorf("publishing %d ingest events: %w", len(messages), err)
	}
	p.logger.Debug("ingest events published", "count", len(messages))
	return nil
}

func encodeEvents(events []ingestion.IngestEvent) ([]kafka.Message, error) {
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		if event.DocumentID == "" {
			return nil, fmt.Errorf("ingest event without document id")
		}
		value, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("encoding ingest event %q: %w", event.DocumentID, err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(event.DocumentID),
			Value: value,
			Time:  event.IngestedAt,
		})
	}
	return messages, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
