package main

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/opagate/internal/config"
	"github.com/vyrodovalexey/opagate/internal/observability"
)

// run starts opagate and blocks until ctx is done, then shuts down.
func run(ctx context.Context, cfg *config.Config, logger observability.Logger) error {
	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := app.gateway.Start(ctx); err != nil {
		app.close(context.Background())
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	<-ctx.Done()
	logger.Info("received shutdown signal")

	return app.shutdown()
}

// shutdown drains and stops the gateway, then releases resources.
// Stopping is bounded by server.shutdownTimeout.
func (a *application) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(),
		a.config.Server.ShutdownTimeout.OrDefault(config.DefaultShutdownTimeout))
	defer cancel()

	err := a.gateway.Stop(ctx)
	if err != nil {
		a.logger.Error("failed to stop gateway", observability.Error(err))
	}

	a.close(ctx)

	a.logger.Info("opagate stopped")
	return err
}
