// Package shard partitions documents across the per-worker builders of a
// parallel index build. A document always lands in the same partition, so
// duplicate identifiers collide inside one builder and are rejected there.
package shard

import (
	"hash/fnv"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/tokenizer"
)

// Router maps partition IDs to dedicated index.Builder instances.
type Router struct {
	builders  []*index.Builder
	numShards int
}

// NewRouter creates numShards builders sharing one analyzer. numShards
// below 1 is treated as 1.
func NewRouter(analyzer tokenizer.Analyzer, numShards int) *Router {
	if numShards < 1 {
		numShards = 1
	}
	r := &Router{
		builders:  make([]*index.Builder, numShards),
		numShards: numShards,
	}
	for i := range r.builders {
		r.builders[i] = index.NewBuilder(analyzer)
	}
	return r
}

// Assign returns the partition responsible for docID.
func Assign(docID string, numShards int) int {
	h := fnv.New32a()
	h.Write([]byte(docID))
	return int(h.Sum32() % uint32(numShards))
}

// Route returns the partition ID and builder for docID.
func (r *Router) Route(docID string) (int, *index.Builder) {
	id := Assign(docID, r.numShards)
	return id, r.builders[id]
}

// Builder returns the builder of one partition.
func (r *Router) Builder(shardID int) *index.Builder {
	return r.builders[shardID]
}

// Builders returns every partition builder in partition order.
func (r *Router) Builders() []*index.Builder {
	out := make([]*index.Builder, len(r.builders))
	copy(out, r.builders)
	return out
}

func (r *Router) NumShards() int {
	return r.numShards
}
