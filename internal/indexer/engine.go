// Package indexer builds the in-memory inverted index from a document
// source using a pool of workers, each filling its own partial builder.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/metrics"
)

// ProgressFunc is called after each document is added, with the running
// total. It is called from several goroutines at once.
type ProgressFunc func(indexed int64)

type Engine struct {
	analyzer tokenizer.Analyzer
	workers  int
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewEngine returns an engine using cfg.Workers partitions. m may be nil.
func NewEngine(analyzer tokenizer.Analyzer, cfg config.IndexerConfig, m *metrics.Metrics) *Engine {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		analyzer: analyzer,
		workers:  workers,
		metrics:  m,
		logger:   logger.WithComponent("indexer"),
	}
}

// Build streams every document of src into the index. Documents are routed
// to partitions by identifier hash, indexed concurrently, and the partials
// are merged by term before freezing. The first error from the source, a
// worker or ctx cancels the whole build.
func (e *Engine) Build(ctx context.Context, src source.Source, progress ProgressFunc) (*index.Index, error) {
	start := time.Now()
	e.logger.Info("index build started", "source", src.Name(), "workers", e.workers)

	idx, err := e.build(ctx, src, progress)
	if err != nil {
		e.recordBuild("error", start)
		e.logger.Error("index build failed", "source", src.Name(), "error", err)
		return nil, err
	}
	e.recordBuild("success", start)
	if e.metrics != nil {
		e.metrics.IndexDocuments.Set(float64(idx.Stats().TotalDocs()))
		e.metrics.IndexVocabulary.Set(float64(idx.Stats().VocabularySize()))
	}
	e.logger.Info("index build complete",
		"documents", idx.Stats().TotalDocs(),
		"terms", idx.Stats().VocabularySize(),
		"avg_doc_length", idx.Stats().AvgDocLength(),
		"duration", time.Since(start),
	)
	return idx, nil
}

func (e *Engine) build(ctx context.Context, src source.Source, progress ProgressFunc) (*index.Index, error) {
	router := shard.NewRouter(e.analyzer, e.workers)
	g, gctx := errgroup.WithContext(ctx)

	docs := make(chan ingestion.Document, e.workers*64)
	g.Go(func() error {
		defer close(docs)
		if err := src.Stream(gctx, docs); err != nil {
			return fmt.Errorf("streaming from %s source: %w", src.Name(), err)
		}
		return nil
	})

	partitions := make([]chan ingestion.Document, router.NumShards())
	for i := range partitions {
		partitions[i] = make(chan ingestion.Document, 64)
	}
	g.Go(func() error {
		defer func() {
			for _, ch := range partitions {
				close(ch)
			}
		}()
		for doc := range docs {
			if err := validator.ValidateDocument(doc); err != nil {
				return apperrors.InvalidArgumentf("%v", err)
			}
			shardID, _ := router.Route(doc.ID)
			select {
			case partitions[shardID] <- doc:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var indexed atomic.Int64
	for i := range partitions {
		shardID := i
		builder := router.Builder(shardID)
		g.Go(func() error {
			for doc := range partitions[shardID] {
				if _, err := builder.Add(doc.ID, doc.Contents); err != nil {
					return err
				}
				n := indexed.Add(1)
				if e.metrics != nil {
					e.metrics.DocsIndexedTotal.Inc()
				}
				if progress != nil {
					progress(n)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for shardID, b := range router.Builders() {
		count := b.DocCount()
		e.logger.Debug("partition built", "partition", shardID, "documents", count)
		if e.metrics != nil {
			e.metrics.PartitionDocCount.WithLabelValues(strconv.Itoa(shardID)).Set(float64(count))
		}
	}
	merged, err := index.Merge(e.analyzer, router.Builders()...)
	if err != nil {
		return nil, err
	}
	return merged.Build(), nil
}

func (e *Engine) recordBuild(status string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
	e.metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
}
