package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/pointboard/internal/api"
	"github.com/vietddude/pointboard/internal/control"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check storage, Redis and the reconciliation queue",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backend, err := control.OpenBackend(ctx, *cfg, false, slog.Default())
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = backend.Close()
	}()

	checker := api.NewHealthChecker(backend.Reconciliation).Require("database", backend.Store.Health)
	if backend.Redis != nil {
		checker.Optional("redis", backend.Redis.Health)
	}
	report := checker.Check(ctx)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "COMPONENT\tSTATUS\tERROR")
	for _, c := range report.Components {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Status, c.Error)
	}
	_ = w.Flush()

	fmt.Printf("\nDriver: %s\nReconciliation pending: %d\nOverall: %s\n",
		backend.Driver, report.ReconciliationPending, report.Status)
}
