package main

// Run database migrations:
//   go run ./cmd/migrate

import (
	"context"
	"os"

	"pantry-intake/internal/shared/config"
	"pantry-intake/internal/shared/storage/db"
	"pantry-intake/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.Options{Level: cfg.LogLevel})
	defer telemetry.Sync()
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err})
		os.Exit(1)
	}
	fields := map[string]any{}
	if version, err := db.MigrationVersion(sqlDB); err == nil {
		fields["version"] = version
	}
	telemetry.Info("migrate.done", fields)
}
