// Package control wires the stores, workflows and HTTP server into one
// application with a Start/Stop lifecycle.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/pointboard/internal/api"
	"github.com/vietddude/pointboard/internal/core/config"
	"github.com/vietddude/pointboard/internal/core/points"
	"github.com/vietddude/pointboard/internal/core/reconcile"
	"github.com/vietddude/pointboard/internal/core/retry"
	"github.com/vietddude/pointboard/internal/core/worker"
	"github.com/vietddude/pointboard/internal/core/workflow"
	"github.com/vietddude/pointboard/internal/metrics"
)

// Config holds the application configuration.
type Config struct {
	App      config.AppConfig
	Migrate  bool   // apply migrations on start
	Fixtures string // seed file, memory driver only
}

// App is the main application struct that manages the service lifecycle.
type App struct {
	cfg        Config
	backend    *Backend
	ledger     *points.Ledger
	reconciler *reconcile.Handler
	server     *api.Server
	log        *slog.Logger
}

// NewApp creates a new App with all dependencies initialized.
func NewApp(ctx context.Context, cfg Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	// 1. Storage
	backend, err := OpenBackend(ctx, cfg.App, cfg.Migrate, log)
	if err != nil {
		return nil, err
	}
	if cfg.Fixtures != "" {
		if backend.Memory == nil {
			_ = backend.Close()
			return nil, fmt.Errorf("fixtures are only supported with the memory driver")
		}
		if err := LoadFixtures(cfg.Fixtures, backend.Memory); err != nil {
			_ = backend.Close()
			return nil, err
		}
		log.Info("Loaded fixtures", "path", cfg.Fixtures)
	}

	return newApp(cfg, backend, log), nil
}

func newApp(cfg Config, backend *Backend, log *slog.Logger) *App {
	store := backend.Store

	// 2. Core components
	ledger := points.NewLedger(
		store.Tasks, store.Users, store.Ledger,
		points.NewCalculator(cfg.App.Points),
		log.With("component", "points"),
	)
	exec := retry.NewExecutor(cfg.App.Retry, log.With("component", "retry"))
	recorder := reconcile.NewRecorder(backend.Reconciliation, log.With("component", "reconcile"))

	completion := workflow.NewCompletionWorkflow(store.Tasks, ledger, exec, recorder, log.With("component", "completion"))
	reorder := workflow.NewReorderWorkflow(store.Lists, log.With("component", "reorder"))

	// 3. HTTP
	health := api.NewHealthChecker(backend.Reconciliation).Require("database", store.Health)
	if backend.Redis != nil {
		health.Optional("redis", backend.Redis.Health)
	}
	server := api.NewServer(api.Deps{
		Completion: completion,
		Reorder:    reorder,
		Points:     ledger,
		Health:     health,
	}, cfg.App.Server.Port, log.With("component", "http"))

	return &App{
		cfg:        cfg,
		backend:    backend,
		ledger:     ledger,
		reconciler: reconcile.NewHandler(backend.Reconciliation, ledger, log.With("component", "reconcile")),
		server:     server,
		log:        log,
	}
}

// Reconciler returns the operator replay handler.
func (a *App) Reconciler() *reconcile.Handler {
	return a.reconciler
}

// Handler returns the HTTP handler, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.server
}

// Start starts the HTTP server and background collectors. It does not block.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()

	if a.backend.PG != nil {
		a.backend.PG.StartMetricsCollector(ctx)
	}
	if pruner := a.pruner(); pruner != nil {
		go pruner.Start(ctx)
	}
	go a.runPendingGauge(ctx)

	a.log.Info("Server listening", "port", a.cfg.App.Server.Port, "driver", a.backend.Driver)
	return nil
}

// Stop shuts the HTTP server down and closes connections.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping pointboard...")

	err := a.server.Stop(ctx)
	if cerr := a.backend.Close(); cerr != nil {
		a.log.Warn("Failed to close storage", "error", cerr)
	}
	return err
}

// pruner returns a retention worker when the queue keeps resolved entries.
// Redis expires them by TTL and memory drops them on resolve.
func (a *App) pruner() *worker.Pruner {
	store, ok := a.backend.Reconciliation.(worker.ResolvedStore)
	if !ok || a.cfg.App.Reconciliation.Retention <= 0 {
		return nil
	}
	return worker.NewPruner(store, a.cfg.App.Reconciliation.Retention, a.log.With("component", "pruner"))
}

// runPendingGauge keeps the reconciliation gauge in line with the queue,
// which operators may drain from another process.
func (a *App) runPendingGauge(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	update := func() {
		n, err := a.backend.Reconciliation.Count(ctx)
		if err != nil {
			a.log.Debug("Failed to count reconciliation entries", "error", err)
			return
		}
		metrics.ReconciliationPending.Set(float64(n))
	}

	update()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			update()
		}
	}
}
