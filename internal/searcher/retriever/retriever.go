// Package retriever ranks documents for a query by summed BM25 weight and
// returns the best k.
//
// Scores are accumulated term-at-a-time: each query term's postings are
// walked once and only documents containing at least one query term are
// ever scored. Selection uses a bounded min-heap of size k, so memory is
// O(candidates + k) regardless of collection size.
package retriever

import (
	"net/http"

	"github.com/RoaringBitmap/roaring"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
)

// Result is a ranked list plus the number of documents that matched
// before truncation to k.
type Result struct {
	Docs            []ranker.ScoredDoc `json:"results"`
	TotalHits       int                `json:"total_hits"`
	PostingsVisited int                `json:"-"`
}

// Retriever is safe for concurrent use: it only reads the index and the
// scorer, and keeps all per-query state on the stack.
type Retriever struct {
	idx    *index.Index
	scorer *ranker.Scorer
}

func New(idx *index.Index, scorer *ranker.Scorer) *Retriever {
	return &Retriever{idx: idx, scorer: scorer}
}

// Index returns the index the retriever reads from.
func (r *Retriever) Index() *index.Index {
	return r.idx
}

func (r *Retriever) Scorer() *ranker.Scorer {
	return r.scorer
}

// Retrieve returns at most k documents ordered by descending score, ties
// broken by ascending docID. Out-of-vocabulary terms contribute nothing;
// an empty term set yields an empty list. k <= 0 fails with
// ErrInvalidArgument.
func (r *Retriever) Retrieve(terms parser.Terms, k int) ([]ranker.ScoredDoc, error) {
	res, err := r.retrieve(terms, nil, k)
	if err != nil {
		return nil, err
	}
	return res.Docs, nil
}

// RetrievePlan ranks by plan.Terms like Retrieve, restricted by the plan's
// boolean filters: in AND mode a document must contain every term, and
// documents containing any excluded term are dropped.
func (r *Retriever) RetrievePlan(plan *parser.QueryPlan, k int) (*Result, error) {
	if plan == nil {
		return nil, apperrors.InvalidArgumentf("nil query plan")
	}
	var allowed *roaring.Bitmap
	if plan.Type == parser.QueryAND && len(plan.Terms) > 1 {
		allowed = r.idx.DocSet(plan.Terms[0])
		for _, term := range plan.Terms[1:] {
			allowed.And(r.idx.DocSet(term))
		}
	}
	if len(plan.ExcludeTerms) > 0 {
		if allowed == nil {
			allowed = r.idx.AllDocs()
		}
		for _, term := range plan.ExcludeTerms {
			allowed.AndNot(r.idx.DocSet(term))
		}
	}
	return r.retrieve(plan.Terms, allowed, k)
}

func (r *Retriever) retrieve(terms parser.Terms, allowed *roaring.Bitmap, k int) (*Result, error) {
	if k <= 0 {
		return nil, apperrors.InvalidArgumentf("k must be positive, got %d", k)
	}
	res := &Result{Docs: []ranker.ScoredDoc{}}
	if len(terms) == 0 {
		return res, nil
	}

	stats := r.idx.Stats()
	accumulators := make(map[string]float64)
	for _, term := range terms {
		postings := r.idx.Postings(term)
		if len(postings) == 0 {
			continue
		}
		df := len(postings)
		for _, p := range postings {
			if allowed != nil {
				ord, _ := r.idx.Ordinal(p.DocID)
				if !allowed.Contains(ord) {
					continue
				}
			}
			docLen, err := stats.DocLength(p.DocID)
			if err != nil {
				return nil, apperrors.Newf(apperrors.ErrInternal, http.StatusInternalServerError,
					"posting references unknown document %q: %v", p.DocID, err)
			}
			w, err := r.scorer.Weight(p.Frequency, df, docLen)
			if err != nil {
				return nil, err
			}
			accumulators[p.DocID] += w
			res.PostingsVisited++
		}
	}

	top := merger.NewTopK(k)
	for docID, score := range accumulators {
		top.Offer(ranker.ScoredDoc{DocID: docID, Score: score})
	}
	res.TotalHits = len(accumulators)
	res.Docs = top.Results()
	return res, nil
}

// Exhaustive scores every document in the collection against terms and
// returns the same ranking Retrieve should. It is quadratic in practice
// and exists as a correctness oracle.
func Exhaustive(idx *index.Index, scorer *ranker.Scorer, terms parser.Terms, k int) ([]ranker.ScoredDoc, error) {
	if k <= 0 {
		return nil, apperrors.InvalidArgumentf("k must be positive, got %d", k)
	}
	stats := idx.Stats()
	top := merger.NewTopK(k)
	for _, docID := range idx.DocIDs() {
		docTerms, err := stats.DocTerms(docID)
		if err != nil {
			return nil, err
		}
		docLen, err := stats.DocLength(docID)
		if err != nil {
			return nil, err
		}
		var score float64
		matched := false
		for _, term := range terms {
			tf := docTerms[term]
			if tf == 0 {
				continue
			}
			w, err := scorer.Weight(tf, idx.DocumentFrequency(term), docLen)
			if err != nil {
				return nil, err
			}
			score += w
			matched = true
		}
		if matched {
			top.Offer(ranker.ScoredDoc{DocID: docID, Score: score})
		}
	}
	return top.Results(), nil
}
