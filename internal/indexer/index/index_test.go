package index

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
)

func plainAnalyzer() tokenizer.Analyzer {
	return tokenizer.New(tokenizer.Options{Stemming: false, MinTokenLength: 2})
}

var collection = []struct {
	id   string
	text string
}{
	{"d3", "search engine ranking"},
	{"d1", "distributed search search index"},
	{"d2", "inverted index postings"},
	{"d4", "ranking ranking ranking"},
}

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	b := NewBuilder(plainAnalyzer())
	for _, doc := range collection {
		if _, err := b.Add(doc.id, doc.text); err != nil {
			t.Fatalf("Add(%s): %v", doc.id, err)
		}
	}
	return b.Build()
}

func TestPostingsOrderedByDocID(t *testing.T) {
	idx := buildTestIndex(t)
	got := idx.Postings("search")
	want := PostingList{{DocID: "d1", Frequency: 2}, {DocID: "d3", Frequency: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Postings(search) = %v, want %v", got, want)
	}
	for _, term := range idx.Vocabulary() {
		postings := idx.Postings(term)
		if len(postings) == 0 {
			t.Fatalf("term %q has empty postings", term)
		}
		for i := 1; i < len(postings); i++ {
			if postings[i-1].DocID >= postings[i].DocID {
				t.Fatalf("term %q postings not strictly increasing: %v", term, postings)
			}
		}
	}
}

func TestOutOfVocabularyTerm(t *testing.T) {
	idx := buildTestIndex(t)
	if got := idx.Postings("missing"); len(got) != 0 {
		t.Errorf("expected empty postings, got %v", got)
	}
	if df := idx.DocumentFrequency("missing"); df != 0 {
		t.Errorf("expected df=0, got %d", df)
	}
	if _, err := idx.Stats().DocumentFrequency("missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound from stats, got %v", err)
	}
	if card := idx.DocSet("missing").GetCardinality(); card != 0 {
		t.Errorf("expected empty doc set, got %d", card)
	}
}

func TestDocumentFrequencyMatchesCollection(t *testing.T) {
	idx := buildTestIndex(t)
	a := plainAnalyzer()
	contains := make(map[string]int)
	for _, doc := range collection {
		seen := make(map[string]bool)
		for _, term := range a.Analyze(doc.text) {
			if !seen[term] {
				seen[term] = true
				contains[term]++
			}
		}
	}
	if len(contains) != len(idx.Vocabulary()) {
		t.Fatalf("vocabulary size %d, want %d", len(idx.Vocabulary()), len(contains))
	}
	for term, want := range contains {
		df := idx.DocumentFrequency(term)
		if df != want {
			t.Errorf("df(%q) = %d, want %d", term, df, want)
		}
		if df != len(idx.Postings(term)) {
			t.Errorf("df(%q) != len(postings)", term)
		}
		if int(idx.DocSet(term).GetCardinality()) != df {
			t.Errorf("bitmap cardinality for %q != df", term)
		}
		if df > idx.Stats().TotalDocs() {
			t.Errorf("df(%q) exceeds N", term)
		}
	}
}

func TestStats(t *testing.T) {
	idx := buildTestIndex(t)
	stats := idx.Stats()
	if stats.TotalDocs() != 4 {
		t.Errorf("TotalDocs = %d, want 4", stats.TotalDocs())
	}
	if stats.TotalTokens() != 13 {
		t.Errorf("TotalTokens = %d, want 13", stats.TotalTokens())
	}
	if stats.AvgDocLength() != 3.25 {
		t.Errorf("AvgDocLength = %v, want 3.25", stats.AvgDocLength())
	}
	if tf, err := stats.TermFrequency("d4", "ranking"); err != nil || tf != 3 {
		t.Errorf("TermFrequency(d4, ranking) = %d, %v", tf, err)
	}
	if n, err := stats.DocLength("d1"); err != nil || n != 4 {
		t.Errorf("DocLength(d1) = %d, %v", n, err)
	}
	if _, err := stats.TermFrequency("d2", "ranking"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for absent term, got %v", err)
	}
	if _, err := stats.TermFrequency("nope", "ranking"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown doc, got %v", err)
	}
	if _, err := stats.DocLength("nope"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown doc length, got %v", err)
	}
}

func TestOrdinalsFollowDocIDOrder(t *testing.T) {
	idx := buildTestIndex(t)
	want := []string{"d1", "d2", "d3", "d4"}
	if got := idx.DocIDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("DocIDs = %v, want %v", got, want)
	}
	for i, docID := range want {
		ord, ok := idx.Ordinal(docID)
		if !ok || ord != uint32(i) {
			t.Errorf("Ordinal(%s) = %d, %v", docID, ord, ok)
		}
		back, err := idx.DocID(ord)
		if err != nil || back != docID {
			t.Errorf("DocID(%d) = %s, %v", ord, back, err)
		}
	}
	if _, err := idx.DocID(99); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if got := idx.DocSet("ranking").ToArray(); !reflect.DeepEqual(got, []uint32{2, 3}) {
		t.Errorf("DocSet(ranking) = %v", got)
	}
	if idx.AllDocs().GetCardinality() != 4 {
		t.Errorf("AllDocs cardinality = %d", idx.AllDocs().GetCardinality())
	}
}

func TestBuilderRejectsDuplicates(t *testing.T) {
	b := NewBuilder(plainAnalyzer())
	if _, err := b.Add("d1", "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Add("d1", "second"); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := b.Add("", "empty id"); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty id, got %v", err)
	}
}

func TestBuildDetachesFromBuilder(t *testing.T) {
	b := NewBuilder(plainAnalyzer())
	for _, doc := range collection {
		if _, err := b.Add(doc.id, doc.text); err != nil {
			t.Fatal(err)
		}
	}
	idx := b.Build()
	if b.DocCount() != 0 {
		t.Fatalf("builder holds %d documents after Build", b.DocCount())
	}

	if _, err := b.Add("d5", "ranking search"); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Add("d1", "search search search"); err != nil {
		t.Fatalf("reusing an id after Build: %v", err)
	}

	stats := idx.Stats()
	if stats.TotalDocs() != 4 || stats.TotalTokens() != 13 {
		t.Errorf("stats changed: N=%d tokens=%d", stats.TotalDocs(), stats.TotalTokens())
	}
	if _, err := stats.DocLength("d5"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("d5 leaked into the built index: %v", err)
	}
	if tf, err := stats.TermFrequency("d1", "search"); err != nil || tf != 2 {
		t.Errorf("TermFrequency(d1, search) = %d, %v", tf, err)
	}
	if df := idx.DocumentFrequency("ranking"); df != 2 {
		t.Errorf("DocumentFrequency(ranking) = %d, want 2", df)
	}
}

func TestMergeMatchesSequentialBuild(t *testing.T) {
	a := plainAnalyzer()
	parts := []*Builder{NewBuilder(a), NewBuilder(a)}
	for i, doc := range collection {
		if _, err := parts[i%2].Add(doc.id, doc.text); err != nil {
			t.Fatal(err)
		}
	}
	merged, err := Merge(a, parts...)
	if err != nil {
		t.Fatal(err)
	}
	got := merged.Build()
	want := buildTestIndex(t)
	if !reflect.DeepEqual(got.Vocabulary(), want.Vocabulary()) {
		t.Fatalf("vocabulary mismatch: %v vs %v", got.Vocabulary(), want.Vocabulary())
	}
	for _, term := range want.Vocabulary() {
		if !reflect.DeepEqual(got.Postings(term), want.Postings(term)) {
			t.Errorf("postings(%q) = %v, want %v", term, got.Postings(term), want.Postings(term))
		}
	}
	if got.Stats().AvgDocLength() != want.Stats().AvgDocLength() {
		t.Errorf("avg doc length mismatch")
	}
}

func TestMergeRejectsCrossPartitionDuplicates(t *testing.T) {
	a := plainAnalyzer()
	p1, p2 := NewBuilder(a), NewBuilder(a)
	p1.Add("d1", "alpha")
	p2.Add("d1", "beta")
	if _, err := Merge(a, p1, p2); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestBuilderConcurrentAdd(t *testing.T) {
	b := NewBuilder(plainAnalyzer())
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if _, err := b.Add(fmt.Sprintf("w%d-%03d", w, i), "shared term body"); err != nil {
					t.Error(err)
				}
			}
		}(w)
	}
	wg.Wait()
	idx := b.Build()
	if idx.DocumentFrequency("shared") != 400 {
		t.Fatalf("df(shared) = %d, want 400", idx.DocumentFrequency("shared"))
	}
}

func TestEmptyIndex(t *testing.T) {
	idx := NewBuilder(plainAnalyzer()).Build()
	if idx.Stats().TotalDocs() != 0 || idx.Stats().AvgDocLength() != 0 {
		t.Fatalf("unexpected stats for empty index: %+v", idx.Stats())
	}
	if len(idx.Vocabulary()) != 0 {
		t.Fatalf("expected empty vocabulary")
	}
}
