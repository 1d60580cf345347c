package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsHarvest/internal/config"
	"github.com/IshaanNene/NewsHarvest/internal/engine"
	"github.com/IshaanNene/NewsHarvest/internal/fetcher"
	"github.com/IshaanNene/NewsHarvest/internal/history"
	"github.com/IshaanNene/NewsHarvest/internal/observability"
	"github.com/IshaanNene/NewsHarvest/internal/parser"
	"github.com/IshaanNene/NewsHarvest/internal/storage"
)

var (
	cfgFile     string
	verbose     bool
	userID      string
	concurrency int
	delay       string
	storageType string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "newsharvest",
		Short: "NewsHarvest: news article crawler",
		Long: `NewsHarvest crawls news articles from a single site and stores normalized records.

It can extract a single article, crawl every article linked from an index page
(optionally filtered by a keyword in the link text), and re-crawl the entry page
on a cron schedule. Every crawl writes one history entry.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "cli", "initiator id recorded in history")
	rootCmd.PersistentFlags().StringVar(&storageType, "storage", "", "storage backend override: "+strings.Join(config.StorageBackends, ", "))

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(keywordCmd())
	rootCmd.AddCommand(triggerCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())
	return rootCmd
}

// app holds the wired components shared by all commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    storage.Store
	recorder *history.Recorder
	fetcher  *fetcher.HTTPFetcher
	metrics  *observability.Metrics
	engine   *engine.Engine
}

// newApp loads configuration and wires the crawler.
func newApp(ctx context.Context) (*app, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg)

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("create storage: %w", err)
	}

	metrics := observability.NewMetrics(logger)
	recorder := history.NewRecorder(store, logger)
	httpFetcher := fetcher.NewHTTPFetcher(cfg, logger)
	articleParser := parser.NewArticleParser(cfg.Site, logger)

	eng, err := engine.New(cfg, httpFetcher, articleParser, store, recorder, metrics, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		recorder: recorder,
		fetcher:  httpFetcher,
		metrics:  metrics,
		engine:   eng,
	}, nil
}

func (a *app) Close() {
	a.fetcher.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("storage close failed", "error", err)
	}
	a.logger.Debug("final stats", "stats", a.engine.Stats().Snapshot())
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("NewsHarvest %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			applyCLIOverrides(cfg)
			fmt.Printf("Engine:\n")
			fmt.Printf("  Concurrency:       %d\n", cfg.Engine.Concurrency)
			fmt.Printf("  Politeness Delay:  %s\n", cfg.Engine.PolitenessDelay)
			fmt.Printf("  Batch Timeout:     %s\n", cfg.Engine.BatchTimeout)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Timeout:           %s (index %s)\n", cfg.Fetcher.Timeout, cfg.Fetcher.IndexTimeout)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("\nSite:\n")
			fmt.Printf("  Entry URL:         %s\n", cfg.Site.EntryURL)
			fmt.Printf("  Article Patterns:  %s\n", strings.Join(cfg.Site.ArticlePatterns, "\n                     "))
			fmt.Printf("  Time Layout:       %s (%s)\n", cfg.Site.TimeLayout, cfg.Site.TimeZone)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			if cfg.Storage.Type == "mongodb" {
				fmt.Printf("  Database:          %s\n", cfg.Storage.Database)
			}
			fmt.Printf("\nSchedule:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Schedule.Enabled)
			fmt.Printf("  Cron:              %s\n", cfg.Schedule.Cron)
			fmt.Printf("\nAPI:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.API.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.API.Port)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return config.Validate(cfg)
		},
	}
}

// setupLogger creates a structured logger from the logging config.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if concurrency > 0 {
		cfg.Engine.Concurrency = concurrency
	}
	if delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			cfg.Engine.PolitenessDelay = d
		}
	}
	if storageType != "" {
		cfg.Storage.Type = strings.ToLower(storageType)
	}
}
