// Package source streams collection documents into the index builder from
// JSONL files, a SQL table or a Kafka topic.
package source

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/postgres"
)

// Source produces the documents of a collection. Stream sends every
// document to out and returns when the collection is exhausted, ctx is
// cancelled or reading fails. It never closes out.
type Source interface {
	Stream(ctx context.Context, out chan<- ingestion.Document) error
	Name() string
}

// FromConfig opens the source selected by cfg.Source. The returned close
// function releases any connection the source holds.
func FromConfig(ctx context.Context, cfg *config.Config) (Source, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Source.Type {
	case config.SourceJSONL:
		return NewJSONL(cfg.Source.Paths...), noop, nil
	case config.SourceSQLite:
		db, err := OpenSQLite(cfg.Source.DSN)
		if err != nil {
			return nil, nil, err
		}
		return NewSQL(db, cfg.Source.Query), db.Close, nil
	case config.SourcePostgres:
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres source: %w", err)
		}
		return NewSQL(client.DB, cfg.Source.Query), client.Close, nil
	case config.SourceKafka:
		return NewKafka(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest), noop, nil
	default:
		return nil, nil, apperrors.Configurationf("unknown source type %q", cfg.Source.Type)
	}
}

func send(ctx context.Context, out chan<- ingestion.Document, doc ingestion.Document) error {
	select {
	case out <- doc:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Collect drains src into a slice. Intended for small collections and
// tests.
func Collect(ctx context.Context, src Source) ([]ingestion.Document, error) {
	out := make(chan ingestion.Document)
	errc := make(chan error, 1)
	go func() {
		errc <- src.Stream(ctx, out)
		close(out)
	}()
	var docs []ingestion.Document
	for doc := range out {
		docs = append(docs, doc)
	}
	return docs, <-errc
}
