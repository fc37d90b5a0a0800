// Package publisher validates collection documents, stores them in
// PostgreSQL and publishes them as ingest events to Kafka, where the
// Kafka source later replays them into an index build.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/resilience"
)

const DefaultBatchSize = 500

// DocumentStore persists documents; *postgres.Client satisfies it.
type DocumentStore interface {
	UpsertDocuments(ctx context.Context, docs []ingestion.Document) error
}

// EventWriter writes ingest events; *kafka.Producer satisfies it.
type EventWriter interface {
	PublishEvents(ctx context.Context, events []ingestion.IngestEvent) error
}

// Streamer is the subset of source.Source the publisher reads from.
type Streamer interface {
	Stream(ctx context.Context, out chan<- ingestion.Document) error
}

type Publisher struct {
	store     DocumentStore
	writer    EventWriter
	batchSize int
	now       func() time.Time
	logger    *slog.Logger
}

// New returns a publisher. store may be nil to skip persistence; writer
// may be nil to only persist.
func New(store DocumentStore, writer EventWriter, batchSize int) *Publisher {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Publisher{
		store:     store,
		writer:    writer,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger.WithComponent("publisher"),
	}
}

// Publish validates every document before writing any of them. An id
// repeated within docs is rejected; publishing an id again in a later call
// replaces the stored document and the replayed one.
func (p *Publisher) Publish(ctx context.Context, docs []ingestion.Document) error {
	batchIDs := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		if err := validator.ValidateDocument(doc); err != nil {
			return apperrors.InvalidArgumentf("%v", err)
		}
		if _, dup := batchIDs[doc.ID]; dup {
			return apperrors.InvalidArgumentf("duplicate document id %q", doc.ID)
		}
		batchIDs[doc.ID] = struct{}{}
	}

	for start := 0; start < len(docs); start += p.batchSize {
		if err := p.publishBatch(ctx, docs[start:min(start+p.batchSize, len(docs))]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishBatch(ctx context.Context, batch []ingestion.Document) error {
	if p.store != nil {
		if err := p.store.UpsertDocuments(ctx, batch); err != nil {
			return fmt.Errorf("storing %d documents: %w", len(batch), err)
		}
	}
	if p.writer == nil {
		return nil
	}
	ingestedAt := p.now().UTC()
	events := make([]ingestion.IngestEvent, 0, len(batch))
	for _, doc := range batch {
		events = append(events, ingestion.IngestEvent{
			DocumentID: doc.ID,
			Contents:   doc.Contents,
			IngestedAt: ingestedAt,
		})
	}
	err := resilience.Retry(ctx, "kafka-publish", resilience.RetryConfig{
		MaxAttempts: 3,
		Retryable: func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
	}, func() error {
		return p.writer.PublishEvents(ctx, events)
	})
	if err != nil {
		return fmt.Errorf("publishing %d events: %w", len(events), err)
	}
	p.logger.Debug("batch published", "documents", len(batch))
	return nil
}

// PublishFrom streams src into batches and publishes each, returning the
// number of documents written. progress, when set, is called after every
// batch with the running total.
func (p *Publisher) PublishFrom(ctx context.Context, src Streamer, progress func(int)) (int, error) {
	g, ctx := errgroup.WithContext(ctx)
	docs := make(chan ingestion.Document, p.batchSize)

	g.Go(func() error {
		defer close(docs)
		return src.Stream(ctx, docs)
	})

	total := 0
	g.Go(func() error {
		batch := make([]ingestion.Document, 0, p.batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if err := p.Publish(ctx, batch); err != nil {
				return err
			}
			total += len(batch)
			if progress != nil {
				progress(total)
			}
			batch = batch[:0]
			return nil
		}
		for doc := range docs {
			batch = append(batch, doc)
			if len(batch) == p.batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	if err := g.Wait(); err != nil {
		return total, err
	}
	p.logger.Info("documents published", "count", total)
	return total, nil
}
