package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/postgres"
)

var (
	publishInput []string
	publishStore bool
	publishBatch int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish JSONL documents to the Kafka ingest topic",
	Long: `Validate JSONL documents and publish them as ingest events to the
configured Kafka topic, keyed by document id. With --store the documents
are also upserted into the PostgreSQL documents table, which the postgres
source reads.

Example:
  bm25ctl publish --input "data/collection/*.jsonl" --store`,
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringSliceVar(&publishInput, "input", nil, "JSONL file glob (repeatable, required)")
	publishCmd.Flags().BoolVar(&publishStore, "store", false, "also upsert documents into PostgreSQL")
	publishCmd.Flags().IntVar(&publishBatch, "batch-size", publisher.DefaultBatchSize, "documents per write")
	publishCmd.MarkFlagRequired("input")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	var store publisher.DocumentStore
	if publishStore {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		store = db
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest)
	defer producer.Close()

	bar := newDocProgress(cmd.ErrOrStderr(), !noProgress, "Publishing")
	n, err := publisher.New(store, producer, publishBatch).PublishFrom(ctx, source.NewJSONL(publishInput...), func(total int) {
		bar.Update(int64(total))
	})
	bar.Finish()
	if err != nil {
		return fmt.Errorf("published %d documents before failing: %w", n, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published %d documents to %s\n", n, cfg.Kafka.Topics.DocumentIngest)
	return nil
}
