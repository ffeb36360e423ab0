package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/vietddude/pointboard/internal/core/domain"
)

// Runs against a disposable Redis, e.g.
// POINTBOARD_TEST_REDIS_URL=redis://localhost:6379/15
const envRedisURL = "POINTBOARD_TEST_REDIS_URL"

func newTestRepo(t *testing.T) (*Client, *ReconciliationRepo) {
	t.Helper()
	url := os.Getenv(envRedisURL)
	if url == "" {
		t.Skipf("Skipping live Redis test. Set %s to run.", envRedisURL)
	}

	client, err := NewClient(Config{URL: url, Namespace: "pointboard-test-" + uuid.NewString()})
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	repo := NewReconciliationRepo(client)
	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := client.rdb.Keys(ctx, client.namespace+":*").Result()
		if len(keys) > 0 {
			_ = client.rdb.Del(ctx, keys...).Err()
		}
		_ = client.Close()
	})
	return client, repo
}

func addEntries(t *testing.T, repo *ReconciliationRepo, ids ...string) {
	t.Helper()
	for _, id := range ids {
		err := repo.Add(context.Background(), &domain.ReconciliationEntry{ID: id, TaskID: "T-" + id, UserID: "alice", Error: "timeout"})
		if err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
}

func TestReconciliationRepo_QueueOrder(t *testing.T) {
	_, repo := newTestRepo(t)
	ctx := context.Background()
	addEntries(t, repo, "r1", "r2")

	if err := repo.IncrementAttempt(ctx, "r1", "still down"); err != nil {
		t.Fatal(err)
	}

	next, err := repo.GetNext(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if next == nil || next.ID != "r2" {
		t.Fatalf("expected r2 (fewest attempts), got %+v", next)
	}

	r1, _ := repo.Get(ctx, "r1")
	if r1 == nil || r1.Attempts != 1 || r1.Error != "still down" {
		t.Errorf("expected r1 with 1 attempt, got %+v", r1)
	}

	if err := repo.MarkResolved(ctx, "r2"); err != nil {
		t.Fatal(err)
	}
	if got, _ := repo.Get(ctx, "r2"); got != nil {
		t.Error("expected resolved entry to be gone")
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("expected 1 pending, got %d", n)
	}
}

func TestReconciliationRepo_ExpiredEntriesNotCounted(t *testing.T) {
	client, repo := newTestRepo(t)
	ctx := context.Background()
	addEntries(t, repo, "r1", "r2", "r3")

	// Simulate the entry TTL running out while the id stays queued.
	if err := client.rdb.Del(ctx, repo.entryKey("r2")).Err(); err != nil {
		t.Fatal(err)
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 pending, got %d", n)
	}

	queued, err := client.rdb.ZCard(ctx, repo.queueKey()).Result()
	if err != nil {
		t.Fatal(err)
	}
	if queued != 2 {
		t.Errorf("expected expired id to leave the queue, got %d queued", queued)
	}

	all, err := repo.GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 entries, got %d", len(all))
	}
}
