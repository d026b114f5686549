package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/convergence/internal/config"
	"github.com/fyrsmithlabs/convergence/internal/durable"
	"github.com/fyrsmithlabs/convergence/internal/logging"
	"github.com/fyrsmithlabs/convergence/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a Temporal worker hosting the durable convergence workflow",
	Long: `Serve starts a Temporal worker that executes ConvergenceWorkflow runs
submitted to the configured task queue, surviving worker restarts mid-run.

Usage:
  TEMPORAL_HOST_PORT=localhost:7233 converge serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.Load()
	if !cfg.Temporal.Enabled {
		return fmt.Errorf("temporal.enabled is false; set TEMPORAL_ENABLED=true to run the worker")
	}

	logger.Info(ctx, "convergence worker starting",
		zap.String("host_port", cfg.Temporal.HostPort),
		zap.String("task_queue", cfg.Temporal.TaskQueue),
	)

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("unable to create temporal client: %w", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(durable.ConvergenceWorkflow)
	w.RegisterActivity(durable.RunConvergenceActivity)

	statusServer := server.New(logger.Underlying(), cfg.Server, nil)
	go func() {
		if err := statusServer.Start(); err != nil {
			logger.Error(ctx, "status server stopped", zap.Error(err))
		}
	}()

	workerErrors := make(chan error, 1)
	go func() {
		workerErrors <- w.Run(worker.InterruptCh())
	}()

	select {
	case err := <-workerErrors:
		if err != nil {
			return fmt.Errorf("worker error: %w", err)
		}
	case <-ctx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	_ = statusServer.Shutdown(ctx)
	logger.Info(ctx, "worker stopped gracefully")
	return nil
}
