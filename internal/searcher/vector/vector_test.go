package vector

import (
	"errors"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
)

// paulaDeenVector is a BM25 document vector for an MS MARCO passage about
// Paula Deen's brother. Only paula, deen and brother are asserted against
// published reference weights; the remaining entries fill out the passage.
// The weights were computed over the full MS MARCO passage collection,
// whose document frequencies are not available here, so this table checks
// Dot only. Score is checked against hand-computed values in the ranker
// tests and against Document in TestDocumentVector.
var paulaDeenVector = Sparse{
	"paula":    6.438522,
	"deen":     7.419724,
	"brother":  4.091242,
	"hier":     11.671068,
	"bubba":    7.622178,
	"earl":     5.901534,
	"sued":     6.142009,
	"former":   3.347413,
	"general":  2.910227,
	"manag":    3.203641,
	"uncl":     5.013776,
	"oyster":   7.282307,
	"hous":     2.766912,
	"savannah": 6.907585,
	"restaur":  3.801029,
}

func TestReferenceInnerProduct(t *testing.T) {
	if len(paulaDeenVector) != 15 {
		t.Fatalf("fixture should have 15 distinct terms, has %d", len(paulaDeenVector))
	}
	a := tokenizer.New(tokenizer.DefaultOptions())
	q := Query(a.Analyze("what is paula deen's brother"))
	if len(q) != 4 {
		t.Fatalf("expected 4 query terms, got %v", q)
	}
	for _, term := range []string{"what", "paula", "deen", "brother"} {
		if q[term] != 1 {
			t.Errorf("query vector missing %q: %v", term, q)
		}
	}

	got := Dot(q, paulaDeenVector)
	want := paulaDeenVector["paula"] + paulaDeenVector["deen"] + paulaDeenVector["brother"]
	if math.Abs(got-17.949488) > 1e-5 {
		t.Errorf("Dot() = %.6f, want 17.949488", got)
	}

	var brute float64
	for term, w := range paulaDeenVector {
		brute += q[term] * w
	}
	if math.Abs(got-want) > 1e-9 || math.Abs(got-brute) > 1e-9 {
		t.Errorf("Dot() = %v disagrees with brute force %v / %v", got, brute, want)
	}
}

func TestQueryCollapsesDuplicates(t *testing.T) {
	q := Query([]string{"deen", "deen", "paula"})
	if len(q) != 2 || q["deen"] != 1 {
		t.Fatalf("Query() = %v", q)
	}
}

func TestDotSymmetric(t *testing.T) {
	a := Sparse{"x": 2, "y": 3}
	b := Sparse{"y": 4, "z": 5, "w": 1}
	if Dot(a, b) != 12 || Dot(b, a) != 12 {
		t.Fatalf("Dot mismatch: %v %v", Dot(a, b), Dot(b, a))
	}
	if Dot(a, Sparse{}) != 0 {
		t.Fatal("dot with empty vector should be zero")
	}
}

func TestDocumentVector(t *testing.T) {
	b := index.NewBuilder(tokenizer.New(tokenizer.Options{MinTokenLength: 2}))
	docs := map[string]string{
		"d1": "paula deen brother brother",
		"d2": "paula cooking show",
		"d3": "oyster house savannah",
	}
	for id, text := range docs {
		if _, err := b.Add(id, text); err != nil {
			t.Fatal(err)
		}
	}
	idx := b.Build()
	scorer, err := ranker.NewScorer(ranker.DefaultParams(), idx.Stats())
	if err != nil {
		t.Fatal(err)
	}

	v, err := Document(idx, scorer, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 3 {
		t.Fatalf("expected 3 terms, got %v", v)
	}
	for _, absent := range []string{"cooking", "oyster", "savannah"} {
		if _, ok := v[absent]; ok {
			t.Errorf("absent term %q present in vector", absent)
		}
	}
	stats := idx.Stats()
	want, err := ranker.Score(2, 1, stats.TotalDocs(), 4, stats.AvgDocLength(), ranker.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v["brother"]-want) > 1e-12 {
		t.Errorf("brother weight = %v, want %v", v["brother"], want)
	}
	if v["brother"] <= v["paula"] {
		t.Errorf("rarer, repeated term should outweigh common one: %v", v)
	}

	entries := v.Entries()
	if entries[0].Term != "brother" {
		t.Errorf("expected brother first, got %+v", entries)
	}

	if _, err := Document(idx, scorer, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
