package merger

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/ranker"
)

func TestTopKKeepsBest(t *testing.T) {
	top := NewTopK(3)
	for _, d := range []ranker.ScoredDoc{
		{DocID: "a", Score: 1},
		{DocID: "b", Score: 5},
		{DocID: "c", Score: 3},
		{DocID: "d", Score: 4},
		{DocID: "e", Score: 0.5},
	} {
		top.Offer(d)
	}
	got := top.Results()
	want := []ranker.ScoredDoc{{DocID: "b", Score: 5}, {DocID: "d", Score: 4}, {DocID: "c", Score: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Results() = %v, want %v", got, want)
	}
}

func TestTopKTiesPreferSmallerDocID(t *testing.T) {
	top := NewTopK(2)
	for _, id := range []string{"z", "m", "b", "q", "a"} {
		top.Offer(ranker.ScoredDoc{DocID: id, Score: 2})
	}
	got := top.Results()
	if len(got) != 2 || got[0].DocID != "a" || got[1].DocID != "b" {
		t.Fatalf("Results() = %v", got)
	}
}

func TestTopKZeroLimit(t *testing.T) {
	top := NewTopK(0)
	top.Offer(ranker.ScoredDoc{DocID: "a", Score: 1})
	if top.Len() != 0 || len(top.Results()) != 0 {
		t.Fatal("zero-limit heap kept a document")
	}
}
