// Package kiroku is the public API for embedding the decision journal.
//
// Consumers construct an App and reach every subsystem through it:
//
//	app, err := kiroku.New(
//	    kiroku.WithDataDir(dir),
//	    kiroku.WithLogger(logger),
//	)
//	if err != nil { ... }
//	defer app.Close()
//	app.Journal().Create(ctx, ...)
//
// The import graph is one-directional: kiroku (root) imports the service
// packages, never the reverse. The only package importing the root is the
// CLI, which consumes it like any other embedder would.
package kiroku

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/kiroku/internal/backup"
	"github.com/ashita-ai/kiroku/internal/config"
	"github.com/ashita-ai/kiroku/internal/service/categories"
	"github.com/ashita-ai/kiroku/internal/service/journal"
	"github.com/ashita-ai/kiroku/internal/storage"
	syncsvc "github.com/ashita-ai/kiroku/internal/sync"
)

// App owns the store and every service over it. Construct with New(), release
// with Close(). App has no public fields — use New() options to configure it.
type App struct {
	cfg        config.Config
	logger     *slog.Logger
	db         *storage.DB
	journal    *journal.Service
	categories *categories.Service
	backups    *backup.Manager
	sync       *syncsvc.Service
}

// New opens (or creates) the journal. It loads configuration, runs store
// migrations, and wires all subsystems. No goroutines are started.
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := o.cfg
	if cfg == nil {
		// Load .env if present (non-fatal; most installs won't have one).
		_ = godotenv.Load()
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = &loaded
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("kiroku: create data directory %s: %w", cfg.DataDir, err)
	}
	db, err := storage.Open(cfg.DatabasePath(), logger)
	if err != nil {
		return nil, err
	}

	backups, err := backup.NewManager(db, cfg.BackupDir(), cfg.BackupRetention, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	client := syncsvc.NewClient(cfg.GithubAPI, cfg.HTTPTimeout)

	return &App{
		cfg:        *cfg,
		logger:     logger,
		db:         db,
		journal:    journal.New(db, logger),
		categories: categories.New(db, logger),
		backups:    backups,
		sync:       syncsvc.NewService(db, client, backups, logger),
	}, nil
}

// Close releases the underlying store.
func (a *App) Close() error {
	return a.db.Close()
}

// Config returns the resolved configuration.
func (a *App) Config() config.Config { return a.cfg }

// Journal is the decision repository.
func (a *App) Journal() *journal.Service { return a.journal }

// Categories is the category manager.
func (a *App) Categories() *categories.Service { return a.categories }

// Backups is the snapshot manager.
func (a *App) Backups() *backup.Manager { return a.backups }

// Sync is the remote sync service.
func (a *App) Sync() *syncsvc.Service { return a.sync }

// DB exposes the persistent store for consumers that need raw access, such as
// the CLI's import path.
func (a *App) DB() *storage.DB { return a.db }
