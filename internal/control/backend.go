package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/pointboard/internal/core/config"
	redisclient "github.com/vietddude/pointboard/internal/infra/redis"
	"github.com/vietddude/pointboard/internal/infra/storage"
	"github.com/vietddude/pointboard/internal/infra/storage/memory"
	"github.com/vietddude/pointboard/internal/infra/storage/postgres"
	"github.com/vietddude/pointboard/internal/infra/storage/sqlite"
)

// Backend is an opened storage backend plus the reconciliation queue.
type Backend struct {
	Driver         string
	Store          *storage.Store
	Reconciliation storage.ReconciliationRepository

	// Set for the matching driver only.
	Memory *memory.MemoryStorage
	PG     *postgres.DB
	SQLite *sqlite.DB
	Redis  *redisclient.Client
}

// OpenBackend connects the configured database and picks the reconciliation
// queue: Redis when configured, else the SQL database, else memory.
func OpenBackend(ctx context.Context, cfg config.AppConfig, migrate bool, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	b := &Backend{Driver: cfg.Database.Driver}

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to migrate db: %w", err)
			}
		}
		b.PG = db
		b.Store = postgres.NewStore(db)
		b.Reconciliation = postgres.NewReconciliationRepo(db)
		log.Info("Using PostgreSQL storage")

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if migrate {
			if err := sqlite.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to migrate db: %w", err)
			}
		}
		b.SQLite = db
		b.Store = sqlite.NewStore(db)
		b.Reconciliation = sqlite.NewReconciliationRepo(db)
		log.Info("Using SQLite storage", "path", cfg.Database.URL)

	default:
		b.Memory = memory.NewMemoryStorage()
		b.Store = memory.NewStore(b.Memory)
		log.Info("Using Memory storage")
	}

	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		b.Redis = client
		b.Reconciliation = redisclient.NewReconciliationRepo(client)
		log.Info("Using Redis reconciliation queue")
	}
	if b.Reconciliation == nil {
		b.Reconciliation = memory.NewReconciliationRepo()
		log.Warn("Reconciliation queue is in memory; entries are lost on restart")
	}
	return b, nil
}

// Close releases every connection.
func (b *Backend) Close() error {
	var firstErr error
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if b.Store != nil && b.Store.Close != nil {
		if err := b.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
