// Package app wires configuration into the analyzer components shared by
// the command line tool, the HTTP server and the MCP server.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/abo-offspring-analyzer/internal/batch"
	"github.com/abo-offspring-analyzer/internal/chart"
	"github.com/abo-offspring-analyzer/internal/config"
	"github.com/abo-offspring-analyzer/internal/database"
	"github.com/abo-offspring-analyzer/internal/domain"
	"github.com/abo-offspring-analyzer/internal/logging"
	"github.com/abo-offspring-analyzer/internal/pipeline"
	"github.com/abo-offspring-analyzer/internal/results"
	"github.com/abo-offspring-analyzer/internal/service"
)

// App holds the components built from one configuration.
type App struct {
	Config   *domain.Config
	Layout   pipeline.Layout
	Cache    *service.CachedEngine
	Analyzer *batch.Analyzer

	// Store receives every analysed batch. The JSON result log is its
	// primary; a configured database is mirrored behind a breaker.
	Store results.Store
	// History is the store queried for past results: the database when
	// one is configured, the JSON result log otherwise.
	History results.Store

	// Charts is nil when chart rendering is disabled.
	Charts pipeline.ChartRenderer

	logger *logrus.Logger
}

// NewLogger builds the logger described by cfg.
func NewLogger(cfg *domain.Config) *logrus.Logger {
	return logging.New(cfg.Logging.Level, cfg.Logging.Format)
}

// SetDataDir points cfg at another data directory. A SQLite path that was
// derived from the old directory follows it.
func SetDataDir(cfg *domain.Config, dir string) {
	if dir == "" || dir == cfg.Data.BaseDir {
		return
	}
	if cfg.Storage.SQLitePath == defaultSQLitePath(cfg.Data.BaseDir) {
		cfg.Storage.SQLitePath = defaultSQLitePath(dir)
	}
	cfg.Data.BaseDir = dir
}

func defaultSQLitePath(base string) string {
	return filepath.Join(base, "resultados", "results.db")
}

// New builds every component for cfg. The caller must Close the App.
func New(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	a := &App{
		Config: cfg,
		Layout: pipeline.NewLayout(cfg.Data.BaseDir),
		logger: logger,
	}

	cached, err := service.NewCachedEngine(service.NewInheritanceEngine(logger), cfg.Cache.MaxItems, logger)
	if err != nil {
		return nil, err
	}
	a.Cache = cached
	a.Analyzer = batch.NewAnalyzer(cached, logger, batch.WithWorkers(cfg.Batch.Workers))

	if err := a.openStores(ctx); err != nil {
		return nil, err
	}

	if cfg.Chart.Enabled {
		a.Charts = chart.NewRenderer(cfg.Chart, logger)
	}

	logger.WithFields(logrus.Fields{
		"data_dir": cfg.Data.BaseDir,
		"backend":  cfg.Storage.Backend,
		"workers":  cfg.Batch.Workers,
		"charts":   cfg.Chart.Enabled,
	}).Debug("Application components initialized")
	return a, nil
}

func (a *App) openStores(ctx context.Context) error {
	storage := a.Config.Storage

	resultLog, err := results.NewJSONFileStore(a.Layout.ResultsFile, a.Config.Batch.Append)
	if err != nil {
		return err
	}

	var secondary results.Store
	switch storage.Backend {
	case config.BackendJSON, "":
		a.Store = resultLog
		a.History = resultLog
		return nil
	case config.BackendSQLite:
		sqlite, err := results.NewSQLiteStore(storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("opening sqlite history: %w", err)
		}
		secondary = sqlite
	case config.BackendPostgres:
		db, err := database.Open(ctx, storage.DatabaseURL, database.DefaultPoolConfig(), a.logger)
		if err != nil {
			return err
		}
		pg, err := results.NewPostgresStore(db.SQL)
		if err != nil {
			db.Close()
			return err
		}
		secondary = pg
	default:
		return fmt.Errorf("unknown storage backend %q", storage.Backend)
	}

	guarded := results.NewBreakerStore(storage.Backend, secondary, storage.Breaker, a.logger)
	a.Store = results.NewMultiStore(resultLog, a.logger, guarded)
	a.History = guarded
	return nil
}

// Processor returns a directory pipeline over the app's stores.
func (a *App) Processor() *pipeline.Processor {
	return pipeline.NewProcessor(a.Layout, a.Analyzer, a.Store, a.Charts, a.logger)
}

// Close releases the stores. The PostgreSQL store owns its pool.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
