package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/errors"
)

var (
	runTopics  string
	runOutput  string
	runTopK    int
	runTag     string
	runWorkers int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Retrieve a topics file and write a TREC run",
	Long: `Read queries from a tab-separated topics file (query id, query text per
line), retrieve the top k documents for each and write them in TREC run
format: "qid Q0 docid rank score tag".

Example:
  bm25ctl run --topics queries.dev.small.tsv -k 1000 --output run.dev.txt`,
	RunE: runTREC,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runTopics, "topics", "", "tab-separated topics file (required)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "run file to write (default stdout)")
	runCmd.Flags().IntVarP(&runTopK, "top-k", "k", 1000, "documents per query")
	runCmd.Flags().StringVar(&runTag, "tag", "bm25", "run tag written in the last column")
	runCmd.Flags().IntVar(&runWorkers, "workers", 4, "queries retrieved concurrently")
	runCmd.MarkFlagRequired("topics")
}

type topic struct {
	ID    string
	Query string
}

func runTREC(cmd *cobra.Command, args []string) error {
	f, err := os.Open(runTopics)
	if err != nil {
		return fmt.Errorf("opening topics: %w", err)
	}
	topics, err := readTopics(f)
	f.Close()
	if err != nil {
		return err
	}

	rt, err := buildRuntime(cmd)
	if err != nil {
		return err
	}
	results, err := retrieveTopics(cmd, rt, topics, runTopK, runWorkers)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runOutput != "" {
		file, err := os.Create(runOutput)
		if err != nil {
			return fmt.Errorf("creating run file: %w", err)
		}
		defer file.Close()
		out = file
	}
	w := bufio.NewWriter(out)
	for i, t := range topics {
		writeRun(w, t.ID, results[i], runTag)
	}
	return w.Flush()
}

func readTopics(r io.Reader) ([]topic, error) {
	var topics []topic
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		id, query, ok := strings.Cut(text, "\t")
		if !ok || strings.TrimSpace(id) == "" {
			return nil, apperrors.InvalidArgumentf("topics line %d: want \"id<TAB>query\"", line)
		}
		topics = append(topics, topic{ID: strings.TrimSpace(id), Query: query})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading topics: %w", err)
	}
	return topics, nil
}

// retrieveTopics ranks each topic; the index is immutable so queries run
// in parallel without coordination.
func retrieveTopics(cmd *cobra.Command, rt *bootstrap.Runtime, topics []topic, k, workers int) ([][]ranker.ScoredDoc, error) {
	results := make([][]ranker.ScoredDoc, len(topics))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(workers, 1))
	for i, t := range topics {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			plan, err := rt.Executor.Parse(t.Query)
			if err != nil {
				return fmt.Errorf("topic %s: %w", t.ID, err)
			}
			res, err := rt.Retriever.RetrievePlan(plan, k)
			if err != nil {
				return fmt.Errorf("topic %s: %w", t.ID, err)
			}
			results[i] = res.Docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeRun(w io.Writer, qid string, docs []ranker.ScoredDoc, tag string) {
	for rank, doc := range docs {
		fmt.Fprintf(w, "%s Q0 %s %d %.6f %s\n", qid, doc.DocID, rank+1, doc.Score, tag)
	}
}
