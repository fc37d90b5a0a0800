package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/resilience"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
	fail bool
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (s *memStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return "", errors.New("connection refused")
	}
	v, ok := s.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection refused")
	}
	switch v := value.(type) {
	case []byte:
		s.data[key] = string(v)
	case string:
		s.data[key] = v
	}
	return nil
}

func (s *memStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func plan(terms ...string) *parser.QueryPlan {
	return &parser.QueryPlan{Terms: terms, ExcludeTerms: parser.Terms{}, RawQuery: strings.Join(terms, " ")}
}

func result() *executor.SearchResult {
	return &executor.SearchResult{
		Query:     "paula deen",
		Mode:      "OR",
		TotalHits: 1,
		Results:   []ranker.ScoredDoc{{DocID: "7067032", Score: 13.858246}},
	}
}

func TestGetOrCompute(t *testing.T) {
	c := New(newMemStore(), config.RedisConfig{CacheTTL: time.Minute}, "gen1", nil)
	ctx := context.Background()
	calls := 0
	compute := func() (*executor.SearchResult, error) {
		calls++
		return result(), nil
	}

	got, hit, err := c.GetOrCompute(ctx, plan("deen", "paula"), 10, compute)
	if err != nil || hit || got.Results[0].DocID != "7067032" {
		t.Fatalf("first call: %+v, hit=%v, err=%v", got, hit, err)
	}
	got, hit, err = c.GetOrCompute(ctx, plan("deen", "paula"), 10, compute)
	if err != nil || !hit || got.Results[0].Score != 13.858246 {
		t.Fatalf("second call: %+v, hit=%v, err=%v", got, hit, err)
	}
	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	if _, hit, _ := c.GetOrCompute(ctx, plan("deen", "paula"), 5, compute); hit {
		t.Error("different limit must not share a cache entry")
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 2 {
		t.Errorf("Stats() = %d hits, %d misses", hits, misses)
	}
}

func TestGenerationSeparatesEntries(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	New(store, config.RedisConfig{}, "gen1", nil).Set(ctx, plan("paula"), 10, result())
	if _, ok := New(store, config.RedisConfig{}, "gen2", nil).Get(ctx, plan("paula"), 10); ok {
		t.Fatal("entry from another index generation was returned")
	}
}

func TestSingleflightDeduplicates(t *testing.T) {
	c := New(newMemStore(), config.RedisConfig{}, "gen1", nil)
	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return result(), nil
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := c.GetOrCompute(context.Background(), plan("paula"), 10, compute); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	if n := calls.Load(); n < 1 || n > 2 {
		t.Fatalf("compute called %d times, want 1", n)
	}
}

func TestRedisFailureDegrades(t *testing.T) {
	store := newMemStore()
	store.fail = true
	c := New(store, config.RedisConfig{}, "gen1", nil)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		got, hit, err := c.GetOrCompute(ctx, plan("paula"), 10, func() (*executor.SearchResult, error) {
			return result(), nil
		})
		if err != nil || hit || got == nil {
			t.Fatalf("call %d: got %v, hit=%v, err=%v", i, got, hit, err)
		}
	}
	if c.BreakerState() != resilience.StateOpen {
		t.Errorf("breaker state = %v, want open", c.BreakerState())
	}
}

func TestComputeErrorNotCached(t *testing.T) {
	c := New(newMemStore(), config.RedisConfig{}, "gen1", nil)
	boom := errors.New("boom")
	if _, _, err := c.GetOrCompute(context.Background(), plan("x"), 1, func() (*executor.SearchResult, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if _, ok := c.Get(context.Background(), plan("x"), 1); ok {
		t.Fatal("failed computation was cached")
	}
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, config.RedisConfig{}, "gen1", nil)
	ctx := context.Background()
	c.Set(ctx, plan("a"), 10, result())
	c.Set(ctx, plan("b"), 10, result())
	store.data["unrelated"] = "keep"
	n, err := c.Invalidate(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Invalidate() = %d, %v", n, err)
	}
	if _, ok := store.data["unrelated"]; !ok {
		t.Fatal("non-cache key was deleted")
	}
}
