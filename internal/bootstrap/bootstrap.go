// Package bootstrap provides dependency initialization for the ClipCast API.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/clipcast/clipcast-api/internal/clipper"
	"github.com/clipcast/clipcast-api/internal/config"
	"github.com/clipcast/clipcast-api/internal/job"
	"github.com/clipcast/clipcast-api/internal/sqlite"
	"github.com/clipcast/clipcast-api/internal/storage"
	"github.com/clipcast/clipcast-api/internal/user"
	"github.com/clipcast/clipcast-api/internal/workflow"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Jobs       job.Repository
	Ledger     user.Ledger
	Dispatcher *workflow.Dispatcher
	Sweeper    *workflow.Sweeper

	db *sql.DB
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	// Stores: SQLite when a path is configured, in-memory otherwise.
	if cfg.DBPath != "" {
		db, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		store := sqlite.NewStore(db)
		deps.db = db
		deps.Jobs = store
		deps.Ledger = store
		logger.Info("sqlite store configured", slog.String("path", cfg.DBPath))
	} else {
		deps.Jobs = job.NewMemoryRepository()
		deps.Ledger = user.NewMemoryLedger()
		logger.Warn("in-memory stores configured, state is lost on restart")
	}

	lister, err := initLister(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	gateway, err := clipper.NewClient(cfg.ProcessEndpoint, clipper.WithToken(cfg.ProcessEndpointToken))
	if err != nil {
		return nil, fmt.Errorf("create clipper client: %w", err)
	}

	processor := workflow.NewProcessor(deps.Jobs, deps.Ledger, gateway, lister, logger)
	deps.Dispatcher = workflow.NewDispatcher(processor, logger,
		workflow.WithWorkers(cfg.Workers),
		workflow.WithQueueSize(cfg.QueueSize),
	)
	deps.Sweeper = workflow.NewSweeper(deps.Jobs, logger, cfg.SweepInterval, cfg.StuckThreshold)

	return deps, nil
}

// Close releases resources held by the dependencies.
func (d *Dependencies) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// initLister creates the object lister based on configuration.
func initLister(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Lister, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		lister, err := storage.NewS3Lister(ctx, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 lister: %w", err)
		}
		logger.Info("S3 enumeration configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return lister, nil
	}

	logger.Warn("no S3 bucket configured, using in-memory object listing")
	return storage.NewMemoryLister(), nil
}
