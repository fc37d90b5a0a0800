package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

var (
	loadURL         string
	loadConcurrency int
	loadDuration    time.Duration
	loadTopics      string
	loadLimit       int
	loadRPS         float64
)

var defaultLoadQueries = []string{
	"what is paula deen's brother",
	"hurricane season atlantic",
	"how long to boil an egg",
	"definition of inverted index",
	"symptoms of vitamin d deficiency",
	"cost of living in savannah",
	"what is bm25 ranking",
	"oyster house restaurant",
}

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Drive a running search service with concurrent queries",
	Long: `Send search requests from concurrent workers for a fixed duration and
report throughput, latency percentiles and status codes. Queries come from
a topics file when given, otherwise from a small built-in set.

Example:
  bm25ctl loadtest --url http://localhost:8080 -c 32 -d 1m --topics queries.dev.tsv`,
	RunE: runLoadtest,
}

func init() {
	rootCmd.AddCommand(loadtestCmd)
	loadtestCmd.Flags().StringVar(&loadURL, "url", "http://localhost:8080", "base URL of the search service")
	loadtestCmd.Flags().IntVarP(&loadConcurrency, "concurrency", "c", 10, "concurrent workers")
	loadtestCmd.Flags().DurationVarP(&loadDuration, "duration", "d", 30*time.Second, "test duration")
	loadtestCmd.Flags().StringVar(&loadTopics, "topics", "", "tab-separated topics file")
	loadtestCmd.Flags().IntVarP(&loadLimit, "top-k", "k", 10, "limit sent with each query")
	loadtestCmd.Flags().Float64Var(&loadRPS, "rps", 0, "cap on requests per second across all workers, 0 for unlimited")
}

type loadStats struct {
	total       atomic.Int64
	success     atomic.Int64
	failed      atomic.Int64
	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func newLoadStats() *loadStats {
	return &loadStats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

func (s *loadStats) record(d time.Duration, status int, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
	} else {
		s.failed.Add(1)
	}
	s.mu.Lock()
	s.latencies = append(s.latencies, d)
	s.statusCodes[status]++
	s.mu.Unlock()
}

func runLoadtest(cmd *cobra.Command, args []string) error {
	queries := defaultLoadQueries
	if loadTopics != "" {
		f, err := os.Open(loadTopics)
		if err != nil {
			return fmt.Errorf("opening topics: %w", err)
		}
		topics, err := readTopics(f)
		f.Close()
		if err != nil {
			return err
		}
		queries = make([]string, len(topics))
		for i, t := range topics {
			queries[i] = t.Query
		}
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries to send")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "target %s, %d workers, %s, %d distinct queries\n", loadURL, loadConcurrency, loadDuration, len(queries))
	if loadRPS > 0 {
		fmt.Fprintf(out, "paced at %.1f req/s\n", loadRPS)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), loadDuration)
	defer cancel()
	stats := driveLoad(ctx, loadURL, queries, loadConcurrency, loadLimit, loadRPS)
	printLoadReport(out, stats, loadDuration)
	if stats.total.Load() == 0 {
		return fmt.Errorf("no requests completed; is the service running?")
	}
	return nil
}

// driveLoad runs workers until ctx is done. rps <= 0 leaves them unpaced.
func driveLoad(ctx context.Context, baseURL string, queries []string, concurrency, limit int, rps float64) *loadStats {
	stats := newLoadStats()
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), max(1, concurrency))
	}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(next int) {
			defer wg.Done()
			for ctx.Err() == nil {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				q := queries[next%len(queries)]
				next++
				target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d", baseURL, url.QueryEscape(q), limit)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					stats.record(0, 0, err)
					return
				}
				start := time.Now()
				resp, err := client.Do(req)
				elapsed := time.Since(start)
				if err != nil {
					if ctx.Err() == nil {
						stats.record(elapsed, 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(elapsed, resp.StatusCode, nil)
			}
		}(w)
	}
	wg.Wait()
	return stats
}

func printLoadReport(w io.Writer, stats *loadStats, duration time.Duration) {
	total := stats.total.Load()
	fmt.Fprintf(w, "\nrequests  %d (ok %d, failed %d)\n", total, stats.success.Load(), stats.failed.Load())
	if total > 0 {
		fmt.Fprintf(w, "rate      %.2f req/s, error rate %.2f%%\n",
			float64(total)/duration.Seconds(), float64(stats.failed.Load())/float64(total)*100)
	}

	stats.mu.Lock()
	latencies := append([]time.Duration(nil), stats.latencies...)
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	counts := make(map[int]int64, len(codes))
	for _, code := range codes {
		counts[code] = stats.statusCodes[code]
	}
	stats.mu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		fmt.Fprintf(w, "latency   min %s  p50 %s  p90 %s  p99 %s  max %s  stddev %s\n",
			latencies[0],
			percentile(latencies, 50),
			percentile(latencies, 90),
			percentile(latencies, 99),
			latencies[len(latencies)-1],
			stddev(latencies),
		)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "status    %d: %d\n", code, counts[code])
	}
}

// percentile uses the nearest-rank method on sorted latencies.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}

func stddev(latencies []time.Duration) time.Duration {
	var sum float64
	for _, l := range latencies {
		sum += float64(l)
	}
	mean := sum / float64(len(latencies))
	var sq float64
	for _, l := range latencies {
		d := float64(l) - mean
		sq += d * d
	}
	return time.Duration(math.Sqrt(sq / float64(len(latencies))))
}
