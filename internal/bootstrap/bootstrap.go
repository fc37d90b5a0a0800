// Package bootstrap wires a configured collection into a ready-to-query
// executor. Both the search service and bm25ctl start through it.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/retriever"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/metrics"
)

// Runtime is a built index together with everything needed to query it.
type Runtime struct {
	Index     *index.Index
	Analyzer  tokenizer.Analyzer
	Scorer    *ranker.Scorer
	Retriever *retriever.Retriever
	Executor  *executor.Executor
}

// Build reads the configured source, indexes it and prepares a scorer. m
// and progress may be nil. An empty collection fails with
// ErrConfiguration since BM25 is undefined without documents.
func Build(ctx context.Context, cfg *config.Config, m *metrics.Metrics, progress indexer.ProgressFunc) (*Runtime, error) {
	src, closeSrc, err := source.FromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("opening %s source: %w", cfg.Source.Type, err)
	}
	defer closeSrc()

	return BuildFrom(ctx, cfg, src, m, progress)
}

// BuildFrom is Build over an already opened source.
func BuildFrom(ctx context.Context, cfg *config.Config, src source.Source, m *metrics.Metrics, progress indexer.ProgressFunc) (*Runtime, error) {
	log := logger.WithComponent("bootstrap")
	analyzer := tokenizer.FromConfig(cfg.Analyzer)

	start := time.Now()
	idx, err := indexer.NewEngine(analyzer, cfg.Indexer, m).Build(ctx, src, progress)
	if err != nil {
		return nil, err
	}
	scorer, err := ranker.NewScorer(ranker.ParamsFromConfig(cfg.Search.BM25), idx.Stats())
	if err != nil {
		return nil, fmt.Errorf("preparing scorer for %s source: %w", src.Name(), err)
	}
	r := retriever.New(idx, scorer)
	exec := executor.New(r, parser.NewEncoder(analyzer), m, cfg.Search.Timeout)

	stats := idx.Stats()
	log.Info("index ready",
		"source", src.Name(),
		"documents", stats.TotalDocs(),
		"vocabulary", stats.VocabularySize(),
		"avg_doc_length", stats.AvgDocLength(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return &Runtime{
		Index:     idx,
		Analyzer:  analyzer,
		Scorer:    scorer,
		Retriever: r,
		Executor:  exec,
	}, nil
}
