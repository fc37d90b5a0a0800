// Package index holds the in-memory inverted index: term to postings,
// per-document term frequencies, and the collection statistics BM25 needs.
// An Index is immutable once built and may be shared by any number of
// concurrent readers without locking.
package index

import (
	"sort"

	"github.com/RoaringBitmap/roaring"

	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
)

type termData struct {
	postings PostingList
	docSet   *roaring.Bitmap
}

// Index is the frozen inverted index. Documents are assigned dense
// ordinals in ascending docID order so that each term's document set can
// be kept as a roaring bitmap in the same order as its postings.
type Index struct {
	terms    map[string]termData
	ordinals map[string]uint32
	docIDs   []string
	stats    *Stats
}

func newIndex(entries []TermEntry, docs map[string]map[string]int, docLengths map[string]int, totalTokens int64) *Index {
	docIDs := make([]string, 0, len(docLengths))
	for docID := range docLengths {
		docIDs = append(docIDs, docID)
	}
	sort.Strings(docIDs)
	ordinals := make(map[string]uint32, len(docIDs))
	for i, docID := range docIDs {
		ordinals[docID] = uint32(i)
	}

	terms := make(map[string]termData, len(entries))
	docFreq := make(map[string]int, len(entries))
	for _, entry := range entries {
		set := roaring.NewBitmap()
		for _, p := range entry.Postings {
			set.Add(ordinals[p.DocID])
		}
		set.RunOptimize()
		terms[entry.Term] = termData{postings: entry.Postings, docSet: set}
		docFreq[entry.Term] = len(entry.Postings)
	}

	return &Index{
		terms:    terms,
		ordinals: ordinals,
		docIDs:   docIDs,
		stats:    newStats(docs, docLengths, docFreq, totalTokens),
	}
}

// Postings returns the term's postings ordered by docID. An
// out-of-vocabulary term yields an empty list, not an error. The returned
// slice is shared and must not be modified.
func (idx *Index) Postings(term string) PostingList {
	return idx.terms[term].postings
}

// DocumentFrequency returns the number of documents containing term, zero
// when the term is out of vocabulary.
func (idx *Index) DocumentFrequency(term string) int {
	return len(idx.terms[term].postings)
}

// DocSet returns a copy of the ordinals of documents containing term.
func (idx *Index) DocSet(term string) *roaring.Bitmap {
	data, ok := idx.terms[term]
	if !ok {
		return roaring.NewBitmap()
	}
	return data.docSet.Clone()
}

// AllDocs returns the ordinals of every indexed document.
func (idx *Index) AllDocs() *roaring.Bitmap {
	all := roaring.NewBitmap()
	all.AddRange(0, uint64(len(idx.docIDs)))
	return all
}

// Ordinal returns the dense ordinal assigned to docID.
func (idx *Index) Ordinal(docID string) (uint32, bool) {
	ord, ok := idx.ordinals[docID]
	return ord, ok
}

// DocID maps an ordinal back to its document identifier.
func (idx *Index) DocID(ordinal uint32) (string, error) {
	if int(ordinal) >= len(idx.docIDs) {
		return "", apperrors.NotFoundf("document ordinal %d", ordinal)
	}
	return idx.docIDs[ordinal], nil
}

// DocIDs returns every indexed docID in ascending order.
func (idx *Index) DocIDs() []string {
	out := make([]string, len(idx.docIDs))
	copy(out, idx.docIDs)
	return out
}

// Vocabulary returns every indexed term in lexical order.
func (idx *Index) Vocabulary() []string {
	vocab := make([]string, 0, len(idx.terms))
	for term := range idx.terms {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)
	return vocab
}

func (idx *Index) Stats() *Stats {
	return idx.stats
}
