package cli

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/retriever"
)

var (
	verifyQueries []string
	verifyTopK    int
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check inverted-index retrieval against exhaustive scoring",
	Long: `Run each query through the inverted index and through a brute-force scan
of every document, and fail if the rankings differ in documents, order or
score. Boolean operators are ignored: NOT terms are dropped and the
remaining terms are ranked as a disjunction.

Example:
  bm25ctl verify -q "paula deen brother" -q "hurricane season" -k 100`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringArrayVarP(&verifyQueries, "query", "q", nil, "query to verify (repeatable, required)")
	verifyCmd.Flags().IntVarP(&verifyTopK, "top-k", "k", 100, "number of results to compare")
	verifyCmd.MarkFlagRequired("query")
}

func runVerify(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	failed := 0
	for _, q := range verifyQueries {
		ok, err := verifyQuery(out, rt, q, verifyTopK)
		if err != nil {
			return err
		}
		if !ok {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d queries disagree with exhaustive scoring", failed, len(verifyQueries))
	}
	fmt.Fprintf(out, "all %d queries match\n", len(verifyQueries))
	return nil
}

func verifyQuery(out io.Writer, rt *bootstrap.Runtime, query string, k int) (bool, error) {
	terms, err := parserTerms(rt, query)
	if err != nil {
		return false, err
	}
	got, err := rt.Retriever.Retrieve(terms, k)
	if err != nil {
		return false, err
	}
	want, err := retriever.Exhaustive(rt.Index, rt.Scorer, terms, k)
	if err != nil {
		return false, err
	}
	if i, ok := firstMismatch(got, want); !ok {
		fmt.Fprintf(out, "MISMATCH %q at rank %d: index=%v exhaustive=%v\n", query, i+1, at(got, i), at(want, i))
		return false, nil
	}
	fmt.Fprintf(out, "ok       %q (%d results)\n", query, len(got))
	return true, nil
}

func parserTerms(rt *bootstrap.Runtime, query string) (parser.Terms, error) {
	plan, err := rt.Executor.Parse(query)
	if err != nil {
		return nil, err
	}
	return plan.Terms, nil
}

// firstMismatch returns the first rank at which the lists differ. Scores
// must agree exactly; both sides sum the same terms in the same order.
func firstMismatch(a, b []ranker.ScoredDoc) (int, bool) {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		if i >= len(a) || i >= len(b) {
			return i, false
		}
		if a[i].DocID != b[i].DocID || math.Float64bits(a[i].Score) != math.Float64bits(b[i].Score) {
			return i, false
		}
	}
	return 0, true
}

func at(docs []ranker.ScoredDoc, i int) any {
	if i < len(docs) {
		return docs[i]
	}
	return "<none>"
}
