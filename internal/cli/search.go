package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/searcher/executor"
)

var (
	searchQuery string
	searchTopK  int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Retrieve the top-k documents for a query",
	Long: `Build the index from the configured source and print the k best documents
for a query, best first. Uppercase AND, OR and NOT act as operators.

Examples:
  bm25ctl search -q "paula deen brother"
  bm25ctl search -q "hurricane AND season NOT atlantic" -k 20 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 10, "number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(cmd)
	if err != nil {
		return err
	}
	plan, err := rt.Executor.Parse(searchQuery)
	if err != nil {
		return err
	}
	result, err := rt.Executor.Execute(cmd.Context(), plan, searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if searchJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return printResult(cmd.OutOrStdout(), result)
}

func printResult(w io.Writer, result *executor.SearchResult) error {
	if len(result.Results) == 0 {
		_, err := fmt.Fprintf(w, "No results for %q (terms: %v)\n", result.Query, result.Terms)
		return err
	}
	fmt.Fprintf(w, "%d of %d matching documents for %q (%s over %v)\n\n",
		len(result.Results), result.TotalHits, result.Query, result.Mode, result.Terms)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tDOC ID\tSCORE")
	for i, doc := range result.Results {
		fmt.Fprintf(tw, "%d\t%s\t%.6f\n", i+1, doc.DocID, doc.Score)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
