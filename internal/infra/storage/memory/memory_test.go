package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/pointboard/internal/core/domain"
	"github.com/vietddude/pointboard/internal/infra/storage"
)

func strPtr(s string) *string { return &s }

func TestListRepo_ReorderAllOrNothing(t *testing.T) {
	s := NewMemoryStorage()
	s.PutList(&domain.List{ID: "L1", BoardID: "B1", Position: 0})
	s.PutList(&domain.List{ID: "L2", BoardID: "B1", Position: 1})
	s.PutList(&domain.List{ID: "X", BoardID: "B2", Position: 0})
	repo := NewListRepo(s)
	ctx := context.Background()

	n, err := repo.ReorderBoard(ctx, "B1", []domain.ListPosition{{ID: "L1", Position: 1}, {ID: "X", Position: 0}}, "")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected 0 rows for cross-board request, got %d", n)
	}

	n, _ = repo.ReorderBoard(ctx, "B1", []domain.ListPosition{{ID: "L1", Position: 1}, {ID: "L1", Position: 0}}, "")
	if n != 0 {
		t.Errorf("expected 0 rows for duplicate request, got %d", n)
	}

	lists, _ := repo.ListByBoard(ctx, "B1")
	if lists[0].ID != "L1" || lists[1].ID != "L2" {
		t.Errorf("expected unchanged order, got %s, %s", lists[0].ID, lists[1].ID)
	}

	n, _ = repo.ReorderBoard(ctx, "B1", []domain.ListPosition{{ID: "L1", Position: 1}, {ID: "L2", Position: 0}}, "")
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}
	lists, _ = repo.ListByBoard(ctx, "B1")
	if lists[0].ID != "L2" || lists[1].ID != "L1" {
		t.Errorf("expected L2, L1, got %s, %s", lists[0].ID, lists[1].ID)
	}
}

func TestTaskRepo_MarkCompletedConcurrent(t *testing.T) {
	s := NewMemoryStorage()
	s.PutTask(&domain.Task{ID: "T1", StoryPoints: 3})
	repo := NewTaskRepo(s)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := repo.MarkCompleted(context.Background(), "T1", time.Now())
			if err != nil {
				t.Errorf("mark completed: %v", err)
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly 1 winning update, got %d", wins)
	}
}

func TestLedgerRepo_AppendAndDuplicate(t *testing.T) {
	s := NewMemoryStorage()
	s.PutUser(&domain.User{ID: "alice", Role: domain.RoleMember})
	repo := NewLedgerRepo(s)
	users := NewUserRepo(s)
	ctx := context.Background()

	entry := &domain.LedgerEntry{UserID: "alice", Amount: 30, Reason: domain.ReasonTaskCompletion, TaskID: strPtr("T1")}
	saved, err := repo.Append(ctx, entry)
	if err != nil {
		t.Fatal(err)
	}
	if saved.ID == "" || saved.CreatedAt.IsZero() {
		t.Errorf("expected id and created_at to be assigned, got %+v", saved)
	}

	if _, err := repo.Append(ctx, entry); !errors.Is(err, storage.ErrDuplicateTaskAward) {
		t.Errorf("expected duplicate award error, got %v", err)
	}

	u, _ := users.GetByID(ctx, "alice")
	if u.TotalPoints != 30 {
		t.Errorf("expected balance 30, got %d", u.TotalPoints)
	}
}

func TestReconciliationRepo_Ordering(t *testing.T) {
	repo := NewReconciliationRepo()
	ctx := context.Background()
	now := time.Now()

	_ = repo.Add(ctx, &domain.ReconciliationEntry{ID: "a", CreatedAt: now})
	_ = repo.Add(ctx, &domain.ReconciliationEntry{ID: "b", CreatedAt: now.Add(time.Second)})
	_ = repo.IncrementAttempt(ctx, "a", "still failing")

	next, _ := repo.GetNext(ctx)
	if next == nil || next.ID != "b" {
		t.Fatalf("expected b (fewest attempts) next, got %+v", next)
	}

	_ = repo.MarkResolved(ctx, "b")
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("expected 1 pending, got %d", n)
	}
}

func TestListRepo_ReorderRecordsActor(t *testing.T) {
	s := NewMemoryStorage()
	s.PutList(&domain.List{ID: "L1", BoardID: "B1", Position: 0})
	s.PutList(&domain.List{ID: "L2", BoardID: "B1", Position: 1})
	repo := NewListRepo(s)
	ctx := context.Background()

	if _, err := repo.ReorderBoard(ctx, "B1", []domain.ListPosition{{ID: "L1", Position: 1}, {ID: "L2", Position: 0}}, "mgr"); err != nil {
		t.Fatal(err)
	}
	lists, _ := repo.ListByBoard(ctx, "B1")
	for _, l := range lists {
		if l.UpdatedBy == nil || *l.UpdatedBy != "mgr" {
			t.Errorf("%s: expected updated_by mgr, got %v", l.ID, l.UpdatedBy)
		}
	}

	// An anonymous reorder clears the actor, like NULLIF in the SQL stores.
	if _, err := repo.ReorderBoard(ctx, "B1", []domain.ListPosition{{ID: "L1", Position: 0}, {ID: "L2", Position: 1}}, ""); err != nil {
		t.Fatal(err)
	}
	lists, _ = repo.ListByBoard(ctx, "B1")
	if lists[0].UpdatedBy != nil {
		t.Errorf("expected nil updated_by, got %q", *lists[0].UpdatedBy)
	}
}
