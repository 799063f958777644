// Package cmd wires the CLI surface: indexing, searching, and the MCP
// server all share the same application assembly.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heronlancellot/bee2bee/internal/config"
	"github.com/heronlancellot/bee2bee/internal/embedder"
	"github.com/heronlancellot/bee2bee/internal/fetcher"
	"github.com/heronlancellot/bee2bee/internal/indexer"
	"github.com/heronlancellot/bee2bee/internal/parser"
	"github.com/heronlancellot/bee2bee/internal/search"
	"github.com/heronlancellot/bee2bee/internal/store"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "bee2bee",
	Short:         "Index GitHub repositories and search their code semantically",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default ./bee2bee.yaml)")
}

// app bundles the assembled services behind the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.VectorStore
	indexer  *indexer.Orchestrator
	searcher *search.Service
}

func newApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Log)

	backend, err := store.NewQdrant(cfg.Vector.Host, cfg.Vector.Port)
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}

	meta, err := store.OpenMeta(cfg.Meta.Path)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	dual, err := embedder.NewFromConfig(cfg.Embedding)
	if err != nil {
		backend.Close()
		meta.Close()
		return nil, err
	}

	vs := store.New(backend, meta, dual, cfg.Embedding.BatchSize, logger)

	f := fetcher.New(cfg.GitHub.Token, cfg.Indexing.FetchTimeout, logger)
	p := parser.New(parser.DefaultRegistry())
	orch, err := indexer.New(f, p, vs, indexer.Options{
		Workers:      cfg.Indexing.Workers,
		JobPoolSize:  cfg.Indexing.JobPoolSize,
		MaxFileSize:  cfg.Indexing.MaxFileSize,
		FetchTimeout: cfg.Indexing.FetchTimeout,
	}, logger)
	if err != nil {
		vs.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    vs,
		indexer:  orch,
		searcher: search.NewService(vs, logger),
	}, nil
}

func (a *app) Close() {
	a.indexer.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close store", "error", err)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
