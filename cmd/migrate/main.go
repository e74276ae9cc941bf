package main

// Run database migrations:
//   go run ./cmd/migrate
// Print the applied schema version:
//   go run ./cmd/migrate status

import (
	"context"
	"os"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/config"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/storage/db"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.Env, cfg.LogLevel)
	defer telemetry.Sync()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if len(os.Args) > 1 && os.Args[1] == "status" {
		version, err := db.SchemaVersion(ctx, sqlDB)
		if err != nil {
			telemetry.Error("migrate.status.failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		telemetry.Info("migrate.status", map[string]any{"version": version})
		return
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
