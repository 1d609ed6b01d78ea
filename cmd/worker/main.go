package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/marketsync/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "marketsync-worker", "marketsync_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	app.Logger.Info().
		Dur("interval", app.Config.Sync.Interval).
		Int("max_publish_retries", app.Config.Sync.MaxPublishRetries).
		Str("instance", app.Config.InstanceID).
		Msg("Worker started")

	if err := app.Scheduler.Run(ctx); err != nil {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
