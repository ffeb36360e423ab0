package control

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vietddude/pointboard/internal/api"
	"github.com/vietddude/pointboard/internal/core/config"
	"github.com/vietddude/pointboard/internal/core/reconcile"
)

const fixtures = `
users:
  - {id: alice, name: Alice, role: member}
  - {id: mgr, name: Morgan, role: manager}
lists:
  - {id: L1, board_id: B1, name: Todo, position: 0}
  - {id: L2, board_id: B1, name: Done, position: 1}
tasks:
  - {id: T1, list_id: L1, title: Ship it, story_points: 3, assignee: alice}
`

func memoryConfig(t *testing.T) Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	if err := os.WriteFile(path, []byte(fixtures), 0o600); err != nil {
		t.Fatal(err)
	}

	app := config.Default()
	app.Server.Port = 0
	app.Database.Driver = config.DriverMemory
	return Config{App: app, Fixtures: path}
}

func TestApp_Lifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := NewApp(ctx, memoryConfig(t), nil)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Let the server goroutine spin up.
	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestApp_CompleteTaskEndToEnd(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, memoryConfig(t), nil)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/tasks/T1/complete", nil)
	req.Header.Set(api.HeaderUserID, "alice")
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	balance, err := app.ledger.BalanceOf(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if balance != 30 {
		t.Errorf("expected 30 points for 3 story points, got %d", balance)
	}
}

func TestApp_ReplayAfterFailure(t *testing.T) {
	ctx := context.Background()
	app, err := NewApp(ctx, memoryConfig(t), nil)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	// An award that failed earlier and is now replayed by an operator.
	rec := reconcile.NewRecorder(app.backend.Reconciliation, nil)
	entry, err := rec.Record(ctx, "T1", "alice", errors.New("connection reset"))
	if err != nil {
		t.Fatal(err)
	}

	outcome, err := app.Reconciler().Replay(ctx, entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if outcome != reconcile.OutcomeResolved {
		t.Errorf("expected resolved, got %s", outcome)
	}
	if b, _ := app.ledger.BalanceOf(ctx, "alice"); b != 30 {
		t.Errorf("expected 30 points after replay, got %d", b)
	}
}

func TestNewApp_FixturesNeedMemory(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.App.Database.Driver = config.DriverSQLite
	cfg.App.Database.URL = ":memory:"

	if _, err := NewApp(context.Background(), cfg, nil); err == nil {
		t.Error("expected error for fixtures with sqlite driver")
	}
}

func TestApp_PrunerOnlyForSQLQueues(t *testing.T) {
	ctx := context.Background()

	mem, err := NewApp(ctx, memoryConfig(t), nil)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if mem.pruner() != nil {
		t.Error("expected no pruner for the memory queue")
	}

	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.URL = ":memory:"

	lite, err := NewApp(ctx, Config{App: cfg, Migrate: true}, nil)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	defer func() { _ = lite.backend.Close() }()
	if lite.pruner() == nil {
		t.Error("expected a pruner for the sqlite queue")
	}

	lite.cfg.App.Reconciliation.Retention = 0
	if lite.pruner() != nil {
		t.Error("expected zero retention to disable the pruner")
	}
}
