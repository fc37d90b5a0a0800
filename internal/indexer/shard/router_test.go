package shard

import (
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/tokenizer"
)

func TestAssignStable(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("doc-%d", i)
		first := Assign(id, 8)
		if first < 0 || first >= 8 {
			t.Fatalf("Assign(%s) = %d out of range", id, first)
		}
		if Assign(id, 8) != first {
			t.Fatalf("Assign(%s) not stable", id)
		}
	}
}

func TestAssignSpreads(t *testing.T) {
	counts := make([]int, 4)
	for i := 0; i < 4000; i++ {
		counts[Assign(fmt.Sprintf("doc-%d", i), 4)]++
	}
	for shardID, n := range counts {
		if n < 500 {
			t.Errorf("partition %d got only %d of 4000 documents", shardID, n)
		}
	}
}

func TestRouterRoute(t *testing.T) {
	r := NewRouter(tokenizer.New(tokenizer.DefaultOptions()), 0)
	if r.NumShards() != 1 {
		t.Fatalf("NumShards() = %d, want 1", r.NumShards())
	}
	r = NewRouter(tokenizer.New(tokenizer.DefaultOptions()), 3)
	id, b := r.Route("7067032")
	if b != r.Builder(id) {
		t.Fatal("Route returned a builder other than Builder(id)")
	}
	if len(r.Builders()) != 3 {
		t.Fatalf("Builders() has %d entries", len(r.Builders()))
	}
}
