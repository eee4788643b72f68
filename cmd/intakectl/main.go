// Command intakectl runs intake operations against the configured sheet from a shell.
package main

import (
	"context"
	"fmt"
	"os"

	"pantry-intake/internal/bootstrap"
	"pantry-intake/internal/intake"
	"pantry-intake/internal/shared/config"
	"pantry-intake/internal/shared/storage/db"
	"pantry-intake/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Init(telemetry.Options{Level: cfg.LogLevel})
	defer telemetry.Sync()

	build := func(ctx context.Context) (*intake.Service, func() error, error) {
		opts := db.DefaultWorkerOptions()
		app, err := bootstrap.Build(ctx, cfg, bootstrap.Options{DBOptions: &opts, SkipRouter: true})
		if err != nil {
			return nil, nil, err
		}
		return app.Service, app.Close, nil
	}

	if err := newRootCmd(build).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
