// Command indexer builds the index from the configured source once, prints
// the collection statistics as JSON and exits. A non-zero exit means the
// collection cannot be served: unreadable input, a duplicate document
// identifier, or no documents at all.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/internal/bootstrap"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/sparse-retrieval/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting index build",
		"source", cfg.Source.Type,
		"workers", cfg.Indexer.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.Build(ctx, cfg, nil, nil)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rt.Executor.Stats()); err != nil {
		slog.Error("failed to write stats", "error", err)
		os.Exit(1)
	}
}
