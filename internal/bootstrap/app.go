// Package bootstrap wires configuration into the intake service and its adapters.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/api/option"

	"pantry-intake/internal/forms"
	"pantry-intake/internal/guidelines"
	"pantry-intake/internal/intake"
	"pantry-intake/internal/queue"
	"pantry-intake/internal/render"
	"pantry-intake/internal/render/docx"
	"pantry-intake/internal/render/slides"
	"pantry-intake/internal/sequence"
	"pantry-intake/internal/services/health"
	"pantry-intake/internal/sheets"
	"pantry-intake/internal/shared/config"
	"pantry-intake/internal/shared/googleauth"
	"pantry-intake/internal/shared/metrics"
	"pantry-intake/internal/shared/server"
	"pantry-intake/internal/shared/storage/db"
	"pantry-intake/internal/shared/storage/object"
	gcsstore "pantry-intake/internal/shared/storage/object/gcs"
	localstore "pantry-intake/internal/shared/storage/object/local"
	s3store "pantry-intake/internal/shared/storage/object/s3"
	"pantry-intake/internal/shared/telemetry"
)

const outputNamespace = "forms"

// App holds shared dependencies.
type App struct {
	Config     config.Config
	Router     *gin.Engine
	DB         *sql.DB
	Store      object.ObjectStore
	Queue      queue.Client
	Rows       sheets.RowStore
	Guidelines guidelines.Source
	Sequence   sequence.Sequence
	Renderer   render.Renderer
	FormsRepo  forms.Repo
	Rules      *config.RulesHolder
	Service    *intake.Service
	Health     *health.Service

	closers []func() error
}

// Options adjusts Build for the calling process.
type Options struct {
	// DBOptions defaults to db.DefaultServerOptions.
	DBOptions *db.Options
	// SkipRouter leaves Router nil for processes that serve no HTTP.
	SkipRouter bool
	// SharedDB reuses the process-wide pool across warm Lambda invocations.
	// Close leaves a shared pool open.
	SharedDB bool
}

// Build prepares every dependency named by cfg. Dev-like environments fall back to
// in-memory repositories when the database is unavailable.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	app := &App{Config: cfg}

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	app.Rules = config.NewRulesHolder(rules)

	dbOpts := db.DefaultServerOptions()
	if opts.DBOptions != nil {
		dbOpts = *opts.DBOptions
	}
	if app.DB, err = buildDB(ctx, cfg, dbOpts, opts.SharedDB); err != nil {
		return nil, err
	}
	if err := metrics.RegisterDB(app.DB); err != nil {
		telemetry.Warn("bootstrap.db_metrics_failed", map[string]any{"error": err})
	}
	if app.DB != nil && !opts.SharedDB {
		app.closers = append(app.closers, app.DB.Close)
	}

	steps := []func(context.Context, *App) error{
		buildStore,
		buildSheets,
		buildSequence,
		buildRenderer,
		buildQueue,
	}
	for _, step := range steps {
		if err := step(ctx, app); err != nil {
			_ = app.Close()
			return nil, err
		}
	}

	if app.DB != nil {
		app.FormsRepo = &forms.PGRepo{DB: app.DB}
	} else {
		app.FormsRepo = forms.NewMemoryRepo()
	}

	app.Service = &intake.Service{
		Rows:         app.Rows,
		Guidelines:   app.Guidelines,
		Sequence:     app.Sequence,
		Renderer:     app.Renderer,
		RendererName: cfg.Renderer,
		Forms:        app.FormsRepo,
		Rules:        app.Rules,
		Location:     cfg.Location(),
		Clock:        time.Now,
		SheetName:    cfg.ResponseSheetName,
	}

	app.Health = health.NewService(3 * time.Second)
	app.Health.Register("sheets", func(ctx context.Context) error {
		_, err := app.Rows.Header(ctx)
		return err
	})
	if app.DB != nil {
		app.Health.Register("db", app.DB.PingContext)
	}

	if !opts.SkipRouter {
		app.Router = server.NewRouter(server.RouterDeps{
			Config:        cfg,
			IntakeHandler: intake.NewHandler(app.Service, app.Queue),
			FormsHandler:  forms.NewHandler(app.FormsRepo),
			Health:        app.Health,
		})
	}
	return app, nil
}

// WatchRules reloads the rules file into the service until ctx is done.
func (a *App) WatchRules(ctx context.Context) error {
	return config.WatchRules(ctx, a.Config.RulesFile, a.Rules)
}

// Close releases every opened resource.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func buildDB(ctx context.Context, cfg config.Config, opts db.Options, shared bool) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.database_disabled", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		if cfg.SequenceBackend == "postgres" {
			return nil, fmt.Errorf("DATABASE_URL is required for SEQUENCE_BACKEND=postgres")
		}
		telemetry.Warn("bootstrap.database_disabled", map[string]any{"reason": "DATABASE_URL empty"})
		return nil, nil
	}

	connect := db.Connect
	if shared {
		connect = db.GetSingleton
	}
	sqlDB, err := connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(opts))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_unavailable", map[string]any{"error": err})
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		if !shared {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, app *App) error {
	cfg := app.Config
	switch cfg.ObjectStoreType {
	case "s3":
		store, err := s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			return err
		}
		app.Store = store
	case "gcs":
		store, err := gcsstore.New(ctx, cfg.GCSBucket, cfg.S3Prefix, cfg.GoogleCredentialsFile)
		if err != nil {
			return err
		}
		app.Store = store
		app.closers = append(app.closers, store.Close)
	default:
		app.Store = localstore.New(cfg.LocalStoreDir, "")
	}
	return nil
}

func googleOptions(ctx context.Context, cfg config.Config, scopes ...string) ([]option.ClientOption, error) {
	return googleauth.ClientOptions(ctx, cfg.GoogleCredentialsFile, scopes...)
}

func buildSheets(ctx context.Context, app *App) error {
	cfg := app.Config
	if cfg.SheetsBackend != "google" {
		app.Rows = sheets.NewCSVStore(cfg.ResponsesCSV)
		app.Guidelines = sheets.CSVTable{Path: cfg.GuidelinesCSV}
		return nil
	}
	if cfg.SourceSheetID == "" {
		return fmt.Errorf("SOURCE_SHEET_ID is required for SHEETS_BACKEND=google")
	}
	opts, err := googleOptions(ctx, cfg, sheets.Scope)
	if err != nil {
		return err
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return err
	}
	limiter := sheets.NewLimiter(cfg.SheetsRPS)
	app.Rows = sheets.NewGoogleStore(svc, cfg.SourceSheetID, cfg.ResponseSheetName, limiter)
	guidelinesID := cfg.GuidelinesSheetID
	if guidelinesID == "" {
		guidelinesID = cfg.SourceSheetID
	}
	app.Guidelines = sheets.NewGoogleTable(svc, guidelinesID, limiter)
	return nil
}

func buildSequence(_ context.Context, app *App) error {
	rules := app.Rules.Get().FormID
	switch app.Config.SequenceBackend {
	case "postgres":
		if app.DB == nil {
			return fmt.Errorf("SEQUENCE_BACKEND=postgres requires a database")
		}
		app.Sequence = &sequence.Postgres{DB: app.DB, Seed: rules.Seed, Width: rules.Width}
	case "badger":
		b, err := sequence.OpenBadger(app.Config.BadgerDir, rules.Seed, rules.Width)
		if err != nil {
			return err
		}
		app.Sequence = b
		app.closers = append(app.closers, b.Close)
	default:
		if !isDevLike(app.Config.Env) {
			telemetry.Warn("bootstrap.sequence_in_memory", map[string]any{"env": app.Config.Env})
		}
		app.Sequence = sequence.NewMemory(rules.Seed, rules.Width)
	}
	return nil
}

func buildRenderer(ctx context.Context, app *App) error {
	cfg := app.Config
	barcodeSettings := app.Rules.Get().Barcode
	if cfg.Renderer == "slides" {
		if cfg.SlidesTemplateID == "" {
			return fmt.Errorf("SLIDES_TEMPLATE_ID is required for RENDERER=slides")
		}
		opts, err := googleOptions(ctx, cfg, slides.Scopes...)
		if err != nil {
			return err
		}
		files, decks, err := slides.NewGoogle(ctx, opts...)
		if err != nil {
			return err
		}
		app.Renderer = &slides.Renderer{
			Files:      files,
			Decks:      decks,
			TemplateID: cfg.SlidesTemplateID,
			FolderID:   cfg.OutputFolderID,
			Barcode:    barcodeSettings,
		}
		return nil
	}
	app.Renderer = &docx.Renderer{
		TemplatePath: cfg.DocxTemplatePath,
		BarcodeImage: cfg.DocxBarcodeImage,
		Barcode:      barcodeSettings,
		Converter:    docx.NewGotenberg(cfg.GotenbergURL),
		Store:        app.Store,
		Namespace:    outputNamespace,
	}
	return nil
}

func buildQueue(ctx context.Context, app *App) error {
	if strings.TrimSpace(app.Config.IntakeQueueURL) == "" {
		return nil
	}
	client, err := queue.NewSQSClient(ctx, app.Config.IntakeQueueURL, app.Config.AWSRegion)
	if err != nil {
		return err
	}
	app.Queue = client
	return nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
