// Package kafka provides the document topic clients backed by
// segmentio/kafka-go. The producer writes JSON ingest events keyed by
// document id; the consumer replays a partition and hands each message to
// a MessageHandler.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/logger"
)

// MessageHandler is a callback invoked for each Kafka message.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// ErrStopReplay may be returned by a MessageHandler to end a replay early
// without reporting an error.
var ErrStopReplay = errors.New("stop replay")

// Consumer replays one partition of a topic from its first offset.
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	handler MessageHandler
}

// NewConsumer creates a Consumer for the given topic and handler. No
// consumer group is used, so offsets are never committed and every replay
// sees the whole partition.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		Partition:   cfg.Partition,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})

	return &Consumer{
		reader:  r,
		logger:  logger.WithComponent("kafka-consumer").With("topic", topic, "partition", cfg.Partition),
		handler: handler,
	}
}

// Replay delivers every message currently in the partition and returns
// once the reader has caught up with the high-water mark. Messages
// produced after Replay starts may or may not be included.
func (c *Consumer) Replay(ctx context.Context) (int, error) {
	lag, err := c.reader.ReadLag(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading partition lag: %w", err)
	}
	c.logger.Info("replay started", "lag", lag)
	if lag == 0 {
		return 0, nil
	}

	delivered := 0
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return delivered, ctx.Err()
			}
			return delivered, fmt.Errorf("fetching message: %w", err)
		}
		c.logger.Debug("message received",
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			if errors.Is(err, ErrStopReplay) {
				return delivered, nil
			}
			return delivered, fmt.Errorf("handling message at offset %d: %w", msg.Offset, err)
		}
		delivered++
		if msg.Offset+1 >= msg.HighWaterMark {
			c.logger.Info("replay caught up", "messages", delivered, "high_water_mark", msg.HighWaterMark)
			return delivered, nil
		}
	}
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
