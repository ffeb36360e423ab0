package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/pointboard/internal/core/domain"
	"github.com/vietddude/pointboard/internal/core/points"
	"github.com/vietddude/pointboard/internal/core/reconcile"
	"github.com/vietddude/pointboard/internal/core/retry"
	"github.com/vietddude/pointboard/internal/core/workflow"
	"github.com/vietddude/pointboard/internal/infra/storage/memory"
)

func strPtr(s string) *string { return &s }

// =============================================================================
// Test Server
// =============================================================================

type testEnv struct {
	srv    *Server
	mem    *memory.MemoryStorage
	ledger *points.Ledger
	recon  *memory.ReconciliationRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := memory.NewMemoryStorage()
	mem.PutUser(&domain.User{ID: "alice", Name: "Alice", Role: domain.RoleMember})
	mem.PutUser(&domain.User{ID: "bob", Name: "Bob", Role: domain.RoleMember})
	mem.PutUser(&domain.User{ID: "mgr", Name: "Morgan", Role: domain.RoleManager})
	mem.PutTask(&domain.Task{ID: "T1", ListID: "L1", Title: "Ship it", StoryPoints: 5, AssigneeID: strPtr("alice")})
	mem.PutList(&domain.List{ID: "L1", BoardID: "B1", Name: "Todo", Position: 0})
	mem.PutList(&domain.List{ID: "L2", BoardID: "B1", Name: "Doing", Position: 1})
	mem.PutList(&domain.List{ID: "L3", BoardID: "B1", Name: "Done", Position: 2})
	mem.PutList(&domain.List{ID: "X", BoardID: "B2", Name: "Elsewhere", Position: 0})

	store := memory.NewStore(mem)
	recon := memory.NewReconciliationRepo()
	ledger := points.NewLedger(store.Tasks, store.Users, store.Ledger, points.NewCalculator(points.DefaultConfig()), nil)
	exec := retry.NewExecutor(retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, nil)

	deps := Deps{
		Completion: workflow.NewCompletionWorkflow(store.Tasks, ledger, exec, reconcile.NewRecorder(recon, nil), nil),
		Reorder:    workflow.NewReorderWorkflow(store.Lists, nil),
		Points:     ledger,
		Health:     NewHealthChecker(recon).Require("database", store.Health),
	}
	return &testEnv{srv: NewServer(deps, 0, nil), mem: mem, ledger: ledger, recon: recon}
}

func (e *testEnv) do(t *testing.T, method, path, user, role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	if role != "" {
		req.Header.Set(HeaderUserRole, role)
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

// =============================================================================
// Tests
// =============================================================================

func TestCompleteTask(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/tasks/T1/complete", "alice", "member", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var task domain.Task
	if err := json.NewDecoder(rec.Body).Decode(&task); err != nil {
		t.Fatal(err)
	}
	if task.CompletedAt == nil {
		t.Error("expected completed_at in response")
	}

	// Repeat is idempotent.
	rec = env.do(t, http.MethodPatch, "/api/tasks/T1/complete", "alice", "member", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 on repeat, got %d", rec.Code)
	}

	history, _ := env.ledger.HistoryFor(context.Background(), "alice", 0)
	if len(history) != 1 {
		t.Errorf("expected 1 ledger entry, got %d", len(history))
	}
}

func TestCompleteTask_Errors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		path string
		user string
		want int
	}{
		{"not assignee", "/api/tasks/T1/complete", "bob", http.StatusForbidden},
		{"missing task", "/api/tasks/nope/complete", "alice", http.StatusNotFound},
		{"no caller", "/api/tasks/T1/complete", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPatch, tt.path, tt.user, "", "")
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestReorderLists(t *testing.T) {
	env := newTestEnv(t)

	body := `{"lists":[{"id":"L1","position":2},{"id":"L2","position":0},{"id":"L3","position":1}]}`
	rec := env.do(t, http.MethodPatch, "/api/boards/B1/lists/reorder", "mgr", "manager", body)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	lists, _ := memory.NewListRepo(env.mem).ListByBoard(context.Background(), "B1")
	if lists[0].ID != "L2" || lists[1].ID != "L3" || lists[2].ID != "L1" {
		t.Errorf("unexpected order: %s %s %s", lists[0].ID, lists[1].ID, lists[2].ID)
	}
}

func TestReorderLists_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"other board", `{"lists":[{"id":"X","position":0}]}`, "X"},
		{"duplicate", `{"lists":[{"id":"L1","position":0},{"id":"L1","position":1}]}`, "duplicate IDs"},
		{"empty", `{"lists":[]}`, "at least one"},
		{"malformed", `{"lists":`, "invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPatch, "/api/boards/B1/lists/reorder", "mgr", "manager", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if msg := decodeError(t, rec); !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("expected message containing %q, got %q", tt.wantMsg, msg)
			}
		})
	}
}

func TestPoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users/alice/points", "mgr", "manager", `{"amount":25,"note":"demo day"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/api/users/alice/points", "mgr", "admin", `{"amount":-5}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/users/alice/points", "alice", "", "")
	var balance balanceResponse
	if err := json.NewDecoder(rec.Body).Decode(&balance); err != nil {
		t.Fatal(err)
	}
	if balance.Points != 20 {
		t.Errorf("expected balance 20, got %d", balance.Points)
	}

	rec = env.do(t, http.MethodGet, "/api/users/alice/points/history?limit=1", "alice", "", "")
	var history []domain.LedgerEntry
	if err := json.NewDecoder(rec.Body).Decode(&history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Reason != domain.ReasonManualDeduction {
		t.Errorf("expected newest deduction entry, got %+v", history)
	}
}

func TestPoints_Errors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/users/alice/points", "bob", "member", `{"amount":25}`)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for member, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/users/alice/points", "mgr", "manager", `{"amount":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero amount, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/users/ghost/points", "alice", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown user, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/users/alice/points/history?limit=abc", "alice", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	_, _ = reconcile.NewRecorder(env.recon, nil).Record(context.Background(), "T1", "alice", errors.New("timeout"))

	rec = env.do(t, http.MethodGet, "/health/detailed", "", "", "")
	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Status != StatusDegraded || report.ReconciliationPending != 1 {
		t.Errorf("expected degraded with 1 pending, got %+v", report)
	}
}

func TestHealth_CriticalDependency(t *testing.T) {
	checker := NewHealthChecker(nil).Require("database", func(context.Context) error {
		return errors.New("connection refused")
	})
	srv := NewServer(Deps{Health: checker}, 0, nil)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
