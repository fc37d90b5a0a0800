package index

import (
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
)

// Builder accumulates documents before they are frozen into an Index.
// It is safe for concurrent use, but parallel builds give each worker its
// own Builder and Merge them afterwards to avoid lock contention.
type Builder struct {
	mu          sync.Mutex
	analyzer    tokenizer.Analyzer
	index       map[string]map[string]int
	docs        map[string]map[string]int
	docLengths  map[string]int
	totalTokens int64
}

func NewBuilder(analyzer tokenizer.Analyzer) *Builder {
	return &Builder{
		analyzer:   analyzer,
		index:      make(map[string]map[string]int),
		docs:       make(map[string]map[string]int),
		docLengths: make(map[string]int),
	}
}

// Add analyzes text and records its term frequencies under docID. It
// returns the document length in terms. A docID may be added only once.
func (b *Builder) Add(docID string, text string) (int, error) {
	if docID == "" {
		return 0, apperrors.InvalidArgumentf("document id must not be empty")
	}
	terms := b.analyzer.Analyze(text)
	termFreqs := make(map[string]int, len(terms))
	for _, term := range terms {
		termFreqs[term]++
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.docLengths[docID]; exists {
		return 0, apperrors.InvalidArgumentf("duplicate document id %q", docID)
	}
	b.addLocked(docID, termFreqs, len(terms))
	return len(terms), nil
}

func (b *Builder) addLocked(docID string, termFreqs map[string]int, length int) {
	for term, tf := range termFreqs {
		docs, exists := b.index[term]
		if !exists {
			docs = make(map[string]int)
			b.index[term] = docs
		}
		docs[docID] = tf
	}
	b.docs[docID] = termFreqs
	b.docLengths[docID] = length
	b.totalTokens += int64(length)
}

func (b *Builder) DocCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.docLengths)
}

// Merge unions partial builders by term. The partials are left untouched.
// A docID present in more than one partial is rejected.
func Merge(analyzer tokenizer.Analyzer, parts ...*Builder) (*Builder, error) {
	merged := NewBuilder(analyzer)
	for _, part := range parts {
		part.mu.Lock()
		for docID, termFreqs := range part.docs {
			if _, exists := merged.docLengths[docID]; exists {
				part.mu.Unlock()
				return nil, apperrors.InvalidArgumentf("duplicate document id %q across partitions", docID)
			}
			merged.addLocked(docID, termFreqs, part.docLengths[docID])
		}
		part.mu.Unlock()
	}
	return merged, nil
}

// Snapshot returns every term with its docID-sorted postings, terms in
// lexical order.
func (b *Builder) Snapshot() []TermEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := make([]TermEntry, 0, len(b.index))
	for term, docs := range b.index {
		postings := make(PostingList, 0, len(docs))
		for docID, tf := range docs {
			postings = append(postings, Posting{DocID: docID, Frequency: tf})
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Build freezes the accumulated documents into an immutable Index. The
// Index takes ownership of them and the Builder starts over empty.
func (b *Builder) Build() *Index {
	entries := b.Snapshot()

	b.mu.Lock()
	defer b.mu.Unlock()
	idx := newIndex(entries, b.docs, b.docLengths, b.totalTokens)
	b.index = make(map[string]map[string]int)
	b.docs = make(map[string]map[string]int)
	b.docLengths = make(map[string]int)
	b.totalTokens = 0
	return idx
}
