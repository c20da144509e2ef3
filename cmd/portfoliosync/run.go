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

	"github.com/rickgao/portfolio-sync/internal/live"
	"github.com/rickgao/portfolio-sync/internal/store"
	"github.com/rickgao/portfolio-sync/internal/version"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync the backend's state until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log, os.Stdout)
	logger = logger.With("instance_id", cfg.Instance.ID)

	logger.Info("starting portfoliosync",
		"version", version.Version,
		"commit", version.Commit,
		"config", configPath,
		"origin", cfg.API.Origin,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	client, err := live.New(cfg, logger)
	if err != nil {
		return err
	}

	// One line per change; a real presentation layer subscribes the same way.
	client.Subscribe(func(c store.Change) {
		logger.Info("resource updated",
			"resource", c.Resource,
			"version", c.Version,
			"source", c.Source,
		)
	})

	logServiceStatus(ctx, client.API(), logger)

	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           createHealthHandler(client, cfg.Metrics.Path, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	if err := client.Start(ctx); err != nil {
		return err
	}

	logger.Info("portfoliosync running",
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	stopErr := client.Stop(shutdownCtx)
	if stopErr != nil {
		logger.Error("live client stop", "error", stopErr)
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("portfoliosync stopped")
	return stopErr
}
