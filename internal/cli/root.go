// Package cli implements bm25ctl, the operator command line: ad hoc
// searches, document vectors, oracle verification, TREC runs, publishing
// and load testing.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/logger"
)

var (
	cfgFile    string
	logLevel   string
	sourcePath []string
	noProgress bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "bm25ctl",
	Short: "Operate a BM25 sparse retrieval index",
	Long: `bm25ctl builds an in-memory BM25 index from the configured collection
and queries it from the command line.

Example usage:
  bm25ctl search -q "what is paula deen's brother" -k 10
  bm25ctl vector --doc 7067032
  bm25ctl verify -q "hurricane season" -k 100
  bm25ctl run --topics queries.dev.tsv --output run.trec
  bm25ctl publish --input "data/collection/*.jsonl"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if len(sourcePath) > 0 {
			cfg.Source.Type = config.SourceJSONL
			cfg.Source.Paths = sourcePath
		}
		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		logger.SetupWriter(cmd.ErrOrStderr(), level, "text")
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringSliceVar(&sourcePath, "source", nil, "JSONL collection glob, overrides the configured source")
	rootCmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable the build progress bar")
}

// buildRuntime indexes the configured collection, rendering progress on
// stderr unless disabled.
func buildRuntime(cmd *cobra.Command) (*bootstrap.Runtime, error) {
	bar := newDocProgress(cmd.ErrOrStderr(), !noProgress, "Indexing")
	rt, err := bootstrap.Build(cmd.Context(), cfg, nil, bar.Update)
	bar.Finish()
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	return rt, nil
}
