// Package executor runs parsed queries against the serving index and
// records per-query metrics.
package executor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/retriever"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/vector"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/tracing"
)

type SearchResult struct {
	Query     string             `json:"query"`
	Mode      string             `json:"mode"`
	Terms     parser.Terms       `json:"terms"`
	TotalHits int                `json:"total_hits"`
	Results   []ranker.ScoredDoc `json:"results"`
	TermStats map[string]int     `json:"term_stats"`
}

// IndexStats summarizes the serving index for the stats endpoint.
type IndexStats struct {
	Documents    int     `json:"documents"`
	Tokens       int64   `json:"tokens"`
	Vocabulary   int     `json:"vocabulary"`
	AvgDocLength float64 `json:"avg_doc_length"`
	K1           float64 `json:"k1"`
	B            float64 `json:"b"`
}

type Executor struct {
	retriever *retriever.Retriever
	encoder   *parser.Encoder
	metrics   *metrics.Metrics
	timeout   time.Duration
}

// New returns an executor over r. m may be nil; a zero timeout disables
// the per-query deadline.
func New(r *retriever.Retriever, encoder *parser.Encoder, m *metrics.Metrics, timeout time.Duration) *Executor {
	return &Executor{
		retriever: r,
		encoder:   encoder,
		metrics:   m,
		timeout:   timeout,
	}
}

// Parse analyzes raw with the index-time analyzer.
func (e *Executor) Parse(raw string) (*parser.QueryPlan, error) {
	return e.encoder.Parse(raw)
}

// Execute retrieves the top limit documents for plan.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	log := logger.FromContext(ctx).With("component", "query-executor")
	result := &SearchResult{
		Query:     plan.RawQuery,
		Mode:      plan.Type.String(),
		Terms:     plan.Terms,
		Results:   []ranker.ScoredDoc{},
		TermStats: make(map[string]int, len(plan.Terms)),
	}
	if len(plan.Terms) == 0 {
		e.recordQuery(result, nil)
		return result, nil
	}

	ctx, span := tracing.StartChildSpan(ctx, "retrieve")
	defer span.End()
	span.SetAttr("mode", result.Mode)
	span.SetAttr("terms", len(plan.Terms))

	var res *retriever.Result
	err := resilience.WithTimeout(ctx, e.timeout, "search", func(ctx context.Context) error {
		var err error
		res, err = e.retriever.RetrievePlan(plan, limit)
		return err
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = apperrors.Newf(apperrors.ErrTimeout, http.StatusServiceUnavailable,
				"query %q exceeded %v", plan.RawQuery, e.timeout)
		}
		e.recordQuery(nil, err)
		log.Error("query failed", "query", plan.RawQuery, "error", err)
		return nil, err
	}

	idx := e.retriever.Index()
	for _, term := range plan.Terms {
		result.TermStats[term] = idx.DocumentFrequency(term)
	}
	result.TotalHits = res.TotalHits
	result.Results = res.Docs
	span.SetAttr("postings", res.PostingsVisited)
	span.SetAttr("candidates", res.TotalHits)
	if e.metrics != nil {
		e.metrics.PostingsTraversed.Observe(float64(res.PostingsVisited))
		e.metrics.CandidatesScored.Observe(float64(res.TotalHits))
	}
	e.recordQuery(result, nil)

	log.Info("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"mode", result.Mode,
		"postings", res.PostingsVisited,
		"candidates", res.TotalHits,
		"results", len(res.Docs),
	)
	return result, nil
}

// Vector returns docID's BM25 vector, heaviest terms first.
func (e *Executor) Vector(docID string) ([]vector.Entry, error) {
	v, err := vector.Document(e.retriever.Index(), e.retriever.Scorer(), docID)
	if err != nil {
		return nil, err
	}
	return v.Entries(), nil
}

func (e *Executor) Stats() IndexStats {
	stats := e.retriever.Index().Stats()
	params := e.retriever.Scorer().Params()
	return IndexStats{
		Documents:    stats.TotalDocs(),
		Tokens:       stats.TotalTokens(),
		Vocabulary:   stats.VocabularySize(),
		AvgDocLength: stats.AvgDocLength(),
		K1:           params.K1,
		B:            params.B,
	}
}

// Generation identifies the serving index for cache keys. Two indexes
// with identical statistics and parameters share a generation.
func (e *Executor) Generation() string {
	s := e.Stats()
	return fmt.Sprintf("n%d-t%d-v%d-k%g-b%g", s.Documents, s.Tokens, s.Vocabulary, s.K1, s.B)
}

func (e *Executor) recordQuery(result *SearchResult, err error) {
	if e.metrics == nil {
		return
	}
	switch {
	case err != nil:
		e.metrics.SearchQueriesTotal.WithLabelValues("error").Inc()
	case len(result.Results) == 0:
		e.metrics.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
	default:
		e.metrics.SearchQueriesTotal.WithLabelValues("hit").Inc()
	}
	if result != nil {
		e.metrics.SearchResultsCount.Observe(float64(len(result.Results)))
	}
}
