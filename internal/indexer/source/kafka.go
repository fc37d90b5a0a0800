package source

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/logger"
)

// Kafka replays IngestEvent messages from one topic partition, from the
// first offset up to the high-water mark observed while reading. The topic
// is an upsert log: a document id published again replaces its earlier
// contents, as the Postgres store does.
type Kafka struct {
	cfg    config.KafkaConfig
	topic  string
	logger *slog.Logger
}

func NewKafka(cfg config.KafkaConfig, topic string) *Kafka {
	return &Kafka{
		cfg:    cfg,
		topic:  topic,
		logger: logger.WithComponent("kafka-source").With("topic", topic),
	}
}

func (k *Kafka) Name() string { return "kafka" }

// Stream replays the whole partition before sending anything, since a later
// message may supersede an earlier one. Documents are sent in the order
// their ids first appeared.
func (k *Kafka) Stream(ctx context.Context, out chan<- ingestion.Document) error {
	latest := newLatestByID()
	consumer := kafka.NewConsumer(k.cfg, k.topic, handleMessage(latest, k.logger))
	defer consumer.Close()
	n, err := consumer.Replay(ctx)
	if err != nil {
		return err
	}
	k.logger.Info("topic replayed",
		"messages", n,
		"documents", len(latest.order),
		"superseded", latest.superseded,
	)
	for _, id := range latest.order {
		if err := send(ctx, out, latest.docs[id]); err != nil {
			return err
		}
	}
	return nil
}

// latestByID keeps the newest document per id.
type latestByID struct {
	order      []string
	docs       map[string]ingestion.Document
	superseded int
}

func newLatestByID() *latestByID {
	return &latestByID{docs: make(map[string]ingestion.Document)}
}

func (l *latestByID) add(doc ingestion.Document) {
	if _, seen := l.docs[doc.ID]; seen {
		l.superseded++
	} else {
		l.order = append(l.order, doc.ID)
	}
	l.docs[doc.ID] = doc
}

// handleMessage decodes each ingest event into latest. Undecodable messages
// are logged and skipped so one bad record does not block the rebuild.
func handleMessage(latest *latestByID, log *slog.Logger) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			log.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		latest.add(event.Document())
		return nil
	}
}
