package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsHarvest/internal/engine"
)

// extractCmd creates the "extract" subcommand.
func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract and store a single article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			article, err := a.engine.CrawlSingle(ctx, userID, args[0])
			if err != nil {
				return err
			}
			printArticle(article)
			return nil
		},
	}
}

// indexCmd creates the "index" subcommand.
func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index [url]",
		Short: "Crawl every article linked from an index page",
		Long:  "Crawl every article linked from the given index page, or the configured entry page when no URL is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), func(ctx context.Context, a *app) (*engine.BatchOutcome, error) {
				indexURL := a.cfg.Site.EntryURL
				if len(args) == 1 {
					indexURL = args[0]
				}
				return a.engine.CrawlIndex(ctx, userID, indexURL)
			})
		},
	}
	addBatchFlags(cmd)
	return cmd
}

// keywordCmd creates the "keyword" subcommand.
func keywordCmd() *cobra.Command {
	var indexURL string
	cmd := &cobra.Command{
		Use:   "keyword <keyword>",
		Short: "Crawl articles whose link text contains a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), func(ctx context.Context, a *app) (*engine.BatchOutcome, error) {
				return a.engine.CrawlKeyword(ctx, userID, args[0], indexURL)
			})
		},
	}
	cmd.Flags().StringVar(&indexURL, "url", "", "index page to scan (default: configured entry page)")
	addBatchFlags(cmd)
	return cmd
}

// triggerCmd creates the "trigger" subcommand.
func triggerCmd() *cobra.Command {
	var scheduled bool
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Crawl the configured entry page once",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := engine.ModeManual
			if scheduled {
				mode = engine.ModeScheduled
			}
			return runBatch(cmd.Context(), func(ctx context.Context, a *app) (*engine.BatchOutcome, error) {
				return a.engine.Trigger(ctx, userID, mode)
			})
		},
	}
	cmd.Flags().BoolVar(&scheduled, "scheduled", false, "record the run as a scheduled crawl under the system identity")
	addBatchFlags(cmd)
	return cmd
}

func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "number of concurrent extractions (default from config)")
	cmd.Flags().StringVar(&delay, "delay", "", "politeness delay between extractions, e.g. 500ms")
}

func runBatch(parent context.Context, run func(context.Context, *app) (*engine.BatchOutcome, error)) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	outcome, err := run(ctx, a)
	if err != nil {
		if outcome != nil && outcome.History != nil {
			fmt.Fprintf(os.Stderr, "history entry %s records the failure\n", outcome.History.ID)
		}
		return err
	}
	printBatch(outcome)
	return nil
}
