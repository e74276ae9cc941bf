package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/bootstrap"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/config"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/server"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/telemetry"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.Env, cfg.LogLevel)
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{})
	if err != nil {
		telemetry.Error("api.bootstrap.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer app.Close()

	if cfg.PollEnabled {
		if err := app.Poller.Start(ctx); err != nil {
			telemetry.Error("api.poller.start_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
	}

	srv := &http.Server{
		Addr:              server.Addr(cfg.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		telemetry.Info("api.listening", map[string]any{"addr": srv.Addr, "poll_enabled": cfg.PollEnabled})
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Error("api.server.failed", map[string]any{"error": err.Error()})
		}
	case <-ctx.Done():
		telemetry.Info("api.shutdown.requested", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetry.Warn("api.shutdown.server", map[string]any{"error": err.Error()})
	}
	if cfg.PollEnabled {
		_ = app.Poller.Stop(shutdownCtx)
	}
}
