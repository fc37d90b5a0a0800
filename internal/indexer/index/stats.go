package index

import (
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
)

// Stats is the read-only term statistics store: collection size, average
// document length, per-term document frequency and per-document term
// frequencies. It is computed once at build time.
type Stats struct {
	totalDocs   int
	totalTokens int64
	avgDocLen   float64
	docFreq     map[string]int
	docs        map[string]map[string]int
	docLengths  map[string]int
}

func newStats(docs map[string]map[string]int, docLengths map[string]int, docFreq map[string]int, totalTokens int64) *Stats {
	s := &Stats{
		totalDocs:   len(docLengths),
		totalTokens: totalTokens,
		docFreq:     docFreq,
		docs:        docs,
		docLengths:  docLengths,
	}
	if s.totalDocs > 0 {
		s.avgDocLen = float64(totalTokens) / float64(s.totalDocs)
	}
	return s
}

// TotalDocs returns N, the number of indexed documents.
func (s *Stats) TotalDocs() int {
	return s.totalDocs
}

func (s *Stats) TotalTokens() int64 {
	return s.totalTokens
}

// AvgDocLength is zero for an empty collection.
func (s *Stats) AvgDocLength() float64 {
	return s.avgDocLen
}

func (s *Stats) VocabularySize() int {
	return len(s.docFreq)
}

// DocumentFrequency returns df(term), failing with ErrNotFound for a term
// absent from the collection.
func (s *Stats) DocumentFrequency(term string) (int, error) {
	df, ok := s.docFreq[term]
	if !ok {
		return 0, apperrors.NotFoundf("term %q", term)
	}
	return df, nil
}

// TermFrequency returns tf(docID, term), failing with ErrNotFound when the
// document is unknown or does not contain term.
func (s *Stats) TermFrequency(docID string, term string) (int, error) {
	terms, ok := s.docs[docID]
	if !ok {
		return 0, apperrors.NotFoundf("document %q", docID)
	}
	tf, ok := terms[term]
	if !ok {
		return 0, apperrors.NotFoundf("term %q in document %q", term, docID)
	}
	return tf, nil
}

// DocLength returns the number of analyzed terms in docID.
func (s *Stats) DocLength(docID string) (int, error) {
	length, ok := s.docLengths[docID]
	if !ok {
		return 0, apperrors.NotFoundf("document %q", docID)
	}
	return length, nil
}

// DocTerms returns a copy of docID's term frequencies.
func (s *Stats) DocTerms(docID string) (map[string]int, error) {
	terms, ok := s.docs[docID]
	if !ok {
		return nil, apperrors.NotFoundf("document %q", docID)
	}
	out := make(map[string]int, len(terms))
	for term, tf := range terms {
		out[term] = tf
	}
	return out, nil
}
