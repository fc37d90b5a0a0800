// Package merger keeps the best k scored documents out of an arbitrary
// stream of candidates.
package merger

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/ranker"
)

// TopK is a bounded min-heap. The root is the worst document currently
// kept, so a new candidate only has to beat the root to get in.
type TopK struct {
	limit int
	h     scoredDocHeap
}

func NewTopK(limit int) *TopK {
	if limit < 0 {
		limit = 0
	}
	return &TopK{limit: limit, h: make(scoredDocHeap, 0, limit)}
}

// Offer considers doc for the result set, evicting the current minimum
// when doc ranks above it.
func (t *TopK) Offer(doc ranker.ScoredDoc) {
	if t.limit == 0 {
		return
	}
	if t.h.Len() < t.limit {
		heap.Push(&t.h, doc)
		return
	}
	if ranker.RanksBelow(t.h[0], doc) {
		t.h[0] = doc
		heap.Fix(&t.h, 0)
	}
}

func (t *TopK) Len() int { return t.h.Len() }

// Results drains the heap, best document first.
func (t *TopK) Results() []ranker.ScoredDoc {
	result := make([]ranker.ScoredDoc, t.h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(&t.h).(ranker.ScoredDoc)
	}
	return result
}

type scoredDocHeap []ranker.ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool {
	return ranker.RanksBelow(h[i], h[j])
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x interface{}) {
	*h = append(*h, x.(ranker.ScoredDoc))
}

func (h *scoredDocHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
