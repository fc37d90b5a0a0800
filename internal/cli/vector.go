package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	vectorDocID string
	vectorJSON  bool
)

var vectorCmd = &cobra.Command{
	Use:   "vector",
	Short: "Print a document's BM25 vector",
	Long: `Print every term of one document with its BM25 weight, heaviest first.

Example:
  bm25ctl vector --doc 7067032`,
	RunE: runVector,
}

func init() {
	rootCmd.AddCommand(vectorCmd)
	vectorCmd.Flags().StringVar(&vectorDocID, "doc", "", "document identifier (required)")
	vectorCmd.Flags().BoolVar(&vectorJSON, "json", false, "output as JSON")
	vectorCmd.MarkFlagRequired("doc")
}

func runVector(cmd *cobra.Command, args []string) error {
	rt, err := buildRuntime(cmd)
	if err != nil {
		return err
	}
	entries, err := rt.Executor.Vector(vectorDocID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if vectorJSON {
		return writeJSON(out, map[string]any{"doc_id": vectorDocID, "vector": entries})
	}
	fmt.Fprintf(out, "%s: %d terms\n\n", vectorDocID, len(entries))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TERM\tWEIGHT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%.6f\n", e.Term, e.Weight)
	}
	return tw.Flush()
}
