package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/pointboard/internal/core/config"
	"github.com/vietddude/pointboard/internal/infra/storage/postgres"
	"github.com/vietddude/pointboard/internal/infra/storage/sqlite"
)

var migrateStatusOnly bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Run:   runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatusOnly, "status", false, "print migration status without applying")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx := context.Background()

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database.Config)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer func() {
			_ = db.Close()
		}()

		if migrateStatusOnly {
			err = postgres.MigrationStatus(ctx, db)
		} else {
			err = postgres.Migrate(ctx, db)
		}
		if err != nil {
			slog.Error("Migration failed", "error", err)
			os.Exit(1)
		}

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Database.URL)
		if err != nil {
			slog.Error("Failed to open database", "error", err)
			os.Exit(1)
		}
		defer func() {
			_ = db.Close()
		}()

		if err := sqlite.Migrate(ctx, db); err != nil {
			slog.Error("Migration failed", "error", err)
			os.Exit(1)
		}

	default:
		slog.Info("Memory driver has no migrations")
		return
	}

	slog.Info("Migrations complete", "driver", cfg.Database.Driver)
}
