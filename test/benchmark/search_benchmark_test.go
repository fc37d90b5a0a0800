package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/retriever"
)

func BenchmarkQueryParse(b *testing.B) {
	enc := parser.NewEncoder(tokenizer.New(tokenizer.DefaultOptions()))
	queries := []struct {
		name  string
		query string
	}{
		{"simple", "hurricane season"},
		{"question", "what is paula deen's brother's name"},
		{"boolean_and", "oyster AND restaurant AND savannah"},
		{"with_not", "storm NOT atlantic"},
		{"long", "how long does it take to boil an egg in water at high altitude in a city"},
	}
	for _, q := range queries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := enc.Parse(q.query); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func newRetriever(b *testing.B, n int) *retriever.Retriever {
	b.Helper()
	idx := buildIndex(b, n)
	scorer, err := ranker.NewScorer(ranker.DefaultParams(), idx.Stats())
	if err != nil {
		b.Fatal(err)
	}
	return retriever.New(idx, scorer)
}

func encode(b *testing.B, query string) parser.Terms {
	b.Helper()
	terms, err := parser.NewEncoder(tokenizer.New(tokenizer.DefaultOptions())).Encode(query)
	if err != nil {
		b.Fatal(err)
	}
	return terms
}

// BenchmarkRetrieveVsExhaustive contrasts postings traversal with scoring
// every document.
func BenchmarkRetrieveVsExhaustive(b *testing.B) {
	r := newRetriever(b, 20000)
	terms := encode(b, "brother oyster savannah")
	b.Run("inverted", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := r.Retrieve(terms, 10); err != nil {
				b.Fatal(err)
			}
		}
	})
	b.Run("exhaustive", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := retriever.Exhaustive(r.Index(), r.Scorer(), terms, 10); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func BenchmarkRetrieveQueryLength(b *testing.B) {
	r := newRetriever(b, 20000)
	for _, n := range []int{1, 3, 5, 10} {
		words := make([]string, 0, n)
		for i := 0; i < n; i++ {
			words = append(words, vocabulary[i*3%len(vocabulary)])
		}
		terms := encode(b, strings.Join(words, " "))
		b.Run(fmt.Sprintf("terms_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := r.Retrieve(terms, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRetrieveTopK(b *testing.B) {
	r := newRetriever(b, 20000)
	terms := encode(b, "hurricane season storm")
	for _, k := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("k_%d", k), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := r.Retrieve(terms, k); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkExecuteParallel(b *testing.B) {
	r := newRetriever(b, 20000)
	exec := executor.New(r, parser.NewEncoder(tokenizer.New(tokenizer.DefaultOptions())), nil, 0)
	plan, err := exec.Parse("hurricane season in the atlantic")
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := exec.Execute(context.Background(), plan, 10); err != nil {
				b.Fatal(err)
			}
		}
	})
}
