package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/NewsHarvest/internal/api"
	"github.com/IshaanNene/NewsHarvest/internal/observability"
	"github.com/IshaanNene/NewsHarvest/internal/schedule"
)

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API, the crawl schedule and the metrics server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := schedule.New(a.cfg.Schedule, a.engine, a.logger)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	sched.Start()

	var apiServer *api.Server
	if a.cfg.API.Enabled {
		apiServer = api.NewServer(a.cfg.API.Port, a.engine, a.recorder, sched, api.HeaderAuthenticator{}, a.logger)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("start api: %w", err)
		}
	}

	var metricsServer *http.Server
	if a.cfg.Metrics.Enabled {
		metricsServer = a.metrics.StartServer(a.cfg.Metrics.Port, a.cfg.Metrics.Path)
	}

	a.logger.Info("newsharvest serving",
		"api", a.cfg.API.Enabled,
		"schedule", a.cfg.Schedule.Enabled,
		"metrics", a.cfg.Metrics.Enabled,
	)

	<-ctx.Done()
	a.logger.Info("received signal, shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if apiServer != nil {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("api shutdown", "error", err)
		}
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler did not stop in time", "error", err)
	}
	if err := observability.Shutdown(shutdownCtx, metricsServer); err != nil {
		a.logger.Warn("metrics shutdown", "error", err)
	}
	return nil
}
