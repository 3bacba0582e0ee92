// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/pubsub"
	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/mbfc-scraper/internal/checkpoint"
	"github.com/JakeFAU/mbfc-scraper/internal/checkpoint/postgres"
	"github.com/JakeFAU/mbfc-scraper/internal/checkpoint/sqlite"
	"github.com/JakeFAU/mbfc-scraper/internal/config"
	pubsubpublisher "github.com/JakeFAU/mbfc-scraper/internal/publisher/pubsub"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
	"github.com/JakeFAU/mbfc-scraper/internal/storage"
	"github.com/JakeFAU/mbfc-scraper/internal/storage/gcs"
	"github.com/JakeFAU/mbfc-scraper/internal/storage/local"
)

// App holds the configuration, logger and the services commands open on demand.
// Every service opened through App is released by Close.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	closers []func() error
}

// New creates an App. No external connection is made until a service is opened.
func New(cfg config.Config, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{cfg: cfg, logger: logger}
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// OpenCheckpoint builds the checkpoint store for the configured backend.
func (a *App) OpenCheckpoint(ctx context.Context) (scrape.CheckpointStore, error) {
	cfg := a.cfg.Checkpoint
	logger := a.logger.Named("checkpoint").With(zap.String("backend", cfg.Backend))
	codec := checkpoint.Codec{KeyColumn: cfg.KeyColumn}

	var (
		store scrape.CheckpointStore
		err   error
	)
	switch cfg.Backend {
	case config.BackendCSV:
		var blobs storage.BlobStore
		var name string
		blobs, name, err = OpenFile(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open checkpoint file: %w", err)
		}
		logger.Info("Using CSV checkpoint", zap.String("path", cfg.Path))
		store, err = checkpoint.NewTableStore(blobs, name, codec, logger)
	case config.BackendGCS:
		var client *gcsclient.Client
		client, err = gcsclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		var blobs *gcs.BlobStore
		blobs, err = gcs.New(client, gcs.Config{Bucket: cfg.Bucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs blob store: %w", err)
		}
		logger.Info("Using GCS checkpoint", zap.String("bucket", cfg.Bucket), zap.String("object", cfg.Object))
		store, err = checkpoint.NewTableStore(blobs, cfg.Object, codec, logger)
	case config.BackendSQLite:
		dsn := cfg.SQLiteDSN()
		if cfg.DSN == "" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
				return nil, fmt.Errorf("create sqlite checkpoint dir: %w", err)
			}
		}
		logger.Info("Using SQLite checkpoint", zap.String("dsn", dsn))
		store, err = sqlite.Open(ctx, dsn, cfg.Table, logger)
	case config.BackendPostgres:
		logger.Info("Connecting to PostgreSQL checkpoint", zap.String("table", cfg.Table))
		store, err = postgres.Open(ctx, postgres.Config{DSN: cfg.DSN, Table: cfg.Table}, logger)
	default:
		return nil, fmt.Errorf("unknown checkpoint backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s checkpoint: %w", cfg.Backend, err)
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

// OpenPublisher connects to Pub/Sub when notifications are configured. It returns nil
// when they are not.
func (a *App) OpenPublisher(ctx context.Context) (scrape.Publisher, error) {
	if !a.cfg.PubSub.Enabled() {
		return nil, nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	a.logger.Info("Connecting to GCP Pub/Sub", zap.String("topic", a.cfg.PubSub.TopicName))
	pub := pubsubpublisher.New(client, map[string]string{"source": "mbfc-scraper"})
	a.closers = append(a.closers, func() error {
		pub.Close()
		return client.Close()
	})
	return pub, nil
}

// OpenFile returns a local blob store rooted at the directory of path and the object
// name of path within it.
func OpenFile(path string) (storage.BlobStore, string, error) {
	dir, name := filepath.Split(filepath.Clean(path))
	if dir == "" {
		dir = "."
	}
	blobs, err := local.New(local.Config{BaseDir: dir})
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	return blobs, name, nil
}

// Close releases services in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Error closing service", zap.Error(err))
		}
	}
	a.closers = nil
}
