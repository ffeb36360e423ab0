package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/pointboard/internal/control"
	"github.com/vietddude/pointboard/internal/core/points"
	"github.com/vietddude/pointboard/internal/core/reconcile"
)

var replayAll bool

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Inspect and replay failed point awards",
}

var reconcileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending reconciliation entries",
	Args:  cobra.NoArgs,
	Run:   runReconcileList,
}

var reconcileReplayCmd = &cobra.Command{
	Use:   "replay [entry_id]",
	Short: "Replay one entry, the next entry, or all entries with --all",
	Args:  cobra.MaximumNArgs(1),
	Run:   runReconcileReplay,
}

var reconcileResolveCmd = &cobra.Command{
	Use:   "resolve [entry_id]",
	Short: "Mark an entry resolved after fixing it by hand",
	Args:  cobra.ExactArgs(1),
	Run:   runReconcileResolve,
}

func init() {
	reconcileReplayCmd.Flags().BoolVar(&replayAll, "all", false, "replay every pending entry")
	reconcileCmd.AddCommand(reconcileListCmd, reconcileReplayCmd, reconcileResolveCmd)
	rootCmd.AddCommand(reconcileCmd)
}

// openReconciler opens storage and builds the replay handler over it.
func openReconciler(ctx context.Context) (*control.Backend, *reconcile.Handler) {
	cfg := loadConfig()

	backend, err := control.OpenBackend(ctx, *cfg, false, slog.Default())
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	if backend.Memory != nil && backend.Redis == nil {
		slog.Warn("Memory storage without Redis has no persisted reconciliation entries")
	}

	store := backend.Store
	ledger := points.NewLedger(store.Tasks, store.Users, store.Ledger, points.NewCalculator(cfg.Points), slog.Default())
	return backend, reconcile.NewHandler(backend.Reconciliation, ledger, slog.Default())
}

func runReconcileList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	backend, handler := openReconciler(ctx)
	defer func() {
		_ = backend.Close()
	}()

	entries, err := handler.Pending(ctx)
	if err != nil {
		slog.Error("Failed to list entries", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tTASK\tUSER\tATTEMPTS\tCREATED\tERROR")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.TaskID, e.UserID, e.Attempts, e.CreatedAt.Format(time.RFC3339), e.Error)
	}
	_ = w.Flush()
}

func runReconcileReplay(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	backend, handler := openReconciler(ctx)
	defer func() {
		_ = backend.Close()
	}()

	switch {
	case replayAll:
		counts, err := handler.ProcessAll(ctx)
		if err != nil {
			slog.Error("Replay stopped", "error", err)
			os.Exit(1)
		}
		fmt.Printf("resolved=%d already_awarded=%d failed=%d\n",
			counts[reconcile.OutcomeResolved], counts[reconcile.OutcomeAlreadyAwarded], counts[reconcile.OutcomeFailed])

	case len(args) == 1:
		outcome, err := handler.Replay(ctx, args[0])
		if err != nil {
			slog.Error("Replay failed", "id", args[0], "error", err)
			os.Exit(1)
		}
		fmt.Printf("%s: %s\n", args[0], outcome)

	default:
		outcome, ok, err := handler.ProcessNext(ctx)
		if err != nil {
			slog.Error("Replay failed", "error", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Println("No pending entries")
			return
		}
		fmt.Println(outcome)
	}
}

func runReconcileResolve(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	backend, _ := openReconciler(ctx)
	defer func() {
		_ = backend.Close()
	}()

	entry, err := backend.Reconciliation.Get(ctx, args[0])
	if err != nil || entry == nil {
		slog.Error("Entry not found", "id", args[0], "error", err)
		os.Exit(1)
	}
	if err := backend.Reconciliation.MarkResolved(ctx, entry.ID); err != nil {
		slog.Error("Failed to resolve entry", "id", entry.ID, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Resolved %s (task %s, user %s)\n", entry.ID, entry.TaskID, entry.UserID)
}
