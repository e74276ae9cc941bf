package main

// Standalone status poller for deployments where the API runs with POLL_ENABLED=false.

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/bootstrap"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/config"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/storage/db"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/telemetry"
)

const defaultShutdownTimeout = 30 * time.Second

type pollLoop interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Trigger(ctx context.Context) bool
}

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.Env, cfg.LogLevel)
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbOpts := db.OptionsFromEnv(db.DefaultPollerOptions())
	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{DBOpts: &dbOpts, SkipAssistant: true})
	if err != nil {
		telemetry.Error("poller.bootstrap.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer app.Close()

	if err := run(ctx, app.Poller, defaultShutdownTimeout); err != nil {
		telemetry.Error("poller.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

// run starts the loop, fires one cycle immediately and blocks until ctx is done.
func run(ctx context.Context, p pollLoop, shutdownTimeout time.Duration) error {
	if err := p.Start(ctx); err != nil {
		return err
	}
	p.Trigger(ctx)
	telemetry.Info("poller.started", nil)

	<-ctx.Done()
	telemetry.Info("poller.shutdown.requested", map[string]any{"timeout_ms": shutdownTimeout.Milliseconds()})

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		telemetry.Warn("poller.shutdown.timeout", map[string]any{"error": err.Error()})
	}
	return nil
}
