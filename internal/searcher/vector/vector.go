// Package vector expresses documents and queries as sparse term-weight maps.
// A term missing from a map has weight zero.
package vector

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/ranker"
)

// Sparse maps a term to its weight. Zero weights are never stored.
type Sparse map[string]float64

// Entry is one term of a Sparse vector.
type Entry struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Query returns the multi-hot vector of terms: each distinct term has
// weight 1.
func Query(terms []string) Sparse {
	v := make(Sparse, len(terms))
	for _, term := range terms {
		v[term] = 1
	}
	return v
}

// Document returns docID's BM25 vector: one weight per term it contains.
func Document(idx *index.Index, scorer *ranker.Scorer, docID string) (Sparse, error) {
	stats := idx.Stats()
	termFreqs, err := stats.DocTerms(docID)
	if err != nil {
		return nil, err
	}
	docLen, err := stats.DocLength(docID)
	if err != nil {
		return nil, err
	}
	v := make(Sparse, len(termFreqs))
	for term, tf := range termFreqs {
		w, err := scorer.Weight(tf, idx.DocumentFrequency(term), docLen)
		if err != nil {
			return nil, err
		}
		if w != 0 {
			v[term] = w
		}
	}
	return v, nil
}

// Dot returns the inner product of a and b over their shared terms,
// summed in term order so the result is bit-for-bit reproducible.
func Dot(a, b Sparse) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	shared := make([]string, 0, len(a))
	for term := range a {
		if _, ok := b[term]; ok {
			shared = append(shared, term)
		}
	}
	sort.Strings(shared)
	var sum float64
	for _, term := range shared {
		sum += a[term] * b[term]
	}
	return sum
}

// Entries lists the vector by descending weight, ties by term.
func (v Sparse) Entries() []Entry {
	entries := make([]Entry, 0, len(v))
	for term, w := range v {
		entries = append(entries, Entry{Term: term, Weight: w})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Weight != entries[j].Weight {
			return entries[i].Weight > entries[j].Weight
		}
		return entries[i].Term < entries[j].Term
	})
	return entries
}
