// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bissquit/incident-comms/internal/catalog"
	"github.com/bissquit/incident-comms/internal/config"
	"github.com/bissquit/incident-comms/internal/history"
	"github.com/bissquit/incident-comms/internal/incident"
	"github.com/bissquit/incident-comms/internal/lint"
	"github.com/bissquit/incident-comms/internal/pkg/ctxlog"
	"github.com/bissquit/incident-comms/internal/pkg/metrics"
	"github.com/bissquit/incident-comms/internal/pkg/postgres"
	"github.com/bissquit/incident-comms/internal/render"
	"github.com/bissquit/incident-comms/internal/store"
	storepostgres "github.com/bissquit/incident-comms/internal/store/postgres"
	"github.com/bissquit/incident-comms/internal/store/sqlite"
)

// App wires the services of one command invocation.
type App struct {
	config *config.Config
	logger *slog.Logger
	kv     store.KV

	Catalog  *catalog.Catalog
	Session  *incident.Session
	History  *history.Service
	Renderer *render.Renderer
	Linter   *lint.Linter
}

// New opens the configured store and builds the services. Logs go to w.
func New(ctx context.Context, cfg *config.Config, w io.Writer) (*App, error) {
	logger := initLogger(cfg.Log, w)
	ctx = ctxlog.WithLogger(ctx, logger)

	kv, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	app := &App{
		config: cfg,
		logger: logger,
		kv:     kv,
	}

	app.Catalog = catalog.New(kv)
	if err := app.Catalog.LoadBuiltin(ctx); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("load builtin templates: %w", err)
	}
	if err := app.Catalog.LoadImported(ctx); err != nil {
		logger.Warn("failed to load imported templates", "error", err)
	}

	app.History = history.NewService(history.NewKVRepository(kv), history.Config{
		Retention: cfg.History.Retention,
	})

	app.Session = incident.NewSession(kv, incident.Config{
		SLAs: cfg.SLAs,
		Fields: incident.FieldConstraints{
			NameMin:          cfg.Fields.NameMin,
			NameMax:          cfg.Fields.NameMax,
			ImpactSummaryMin: cfg.Fields.ImpactSummaryMin,
			ImpactSummaryMax: cfg.Fields.ImpactSummaryMax,
		},
	})
	if err := app.Session.Restore(ctx); err != nil {
		logger.Warn("failed to restore incident", "error", err)
	}

	app.Renderer = render.NewRenderer(render.Config{
		Jurisdictions: jurisdictionPolicy(cfg.Jurisdictions),
	}, logger)
	app.Linter = lint.NewLinter()

	logger.Debug("app initialized",
		"store", cfg.Store.Driver,
		"templates", app.Catalog.Len(),
	)
	return app, nil
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Context returns ctx carrying the application logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Close writes the metrics textfile, if configured, and closes the store.
func (a *App) Close() error {
	var errs []error

	if path := a.config.Metrics.Textfile; path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}

	if err := a.kv.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.KV, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return store.Instrument(store.NewMemory(), cfg.Driver), nil

	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return store.Instrument(s, cfg.Driver), nil

	case config.DriverPostgres:
		if err := storepostgres.Migrate(cfg.Postgres.URL); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		pool, err := connectPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return store.Instrument(storepostgres.NewStore(pool), cfg.Driver), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func connectPostgres(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pool, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnectTimeout:  cfg.ConnectTimeout,
		ConnectAttempts: cfg.ConnectAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return pool, nil
}

func jurisdictionPolicy(cfg config.JurisdictionsConfig) render.JurisdictionPolicy {
	return render.JurisdictionPolicy{
		GDPR: render.GDPRPolicy{
			Enabled:                 cfg.GDPR.Enabled,
			NotificationWindowHours: cfg.GDPR.NotificationWindowHours,
		},
		CCPA: render.CCPAPolicy{
			Enabled:                cfg.CCPA.Enabled,
			NotificationWindowDays: cfg.CCPA.NotificationWindowDays,
		},
		SEC: render.SECPolicy{
			Enabled:              cfg.SEC.Enabled,
			DisclosureDays:       cfg.SEC.DisclosureDays,
			MaterialityThreshold: cfg.SEC.MaterialityThreshold,
		},
	}
}

func initLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
