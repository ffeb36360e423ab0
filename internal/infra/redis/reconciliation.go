package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/pointboard/internal/core/domain"
)

// entryTTL bounds how long an unresolved entry is kept.
const entryTTL = 30 * 24 * time.Hour

// ReconciliationRepo implements storage.ReconciliationRepository using a
// sorted set of ids (score = attempts) plus one JSON value per entry.
type ReconciliationRepo struct {
	rdb       *redis.Client
	namespace string
}

// NewReconciliationRepo creates a new Redis-backed reconciliation queue.
func NewReconciliationRepo(client *Client) *ReconciliationRepo {
	return &ReconciliationRepo{
		rdb:       client.rdb,
		namespace: client.namespace,
	}
}

// Key helpers
func (r *ReconciliationRepo) queueKey() string {
	return fmt.Sprintf("%s:reconciliation", r.namespace)
}

func (r *ReconciliationRepo) entryKey(id string) string {
	return fmt.Sprintf("%s:reconciliation:%s", r.namespace, id)
}

// Add stores the entry and enqueues its id.
func (r *ReconciliationRepo) Add(ctx context.Context, e *domain.ReconciliationEntry) error {
	if e.Status == "" {
		e.Status = domain.ReconciliationPending
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal reconciliation entry: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.entryKey(e.ID), data, entryTTL)
		pipe.ZAdd(ctx, r.queueKey(), redis.Z{Score: float64(e.Attempts), Member: e.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue reconciliation entry: %w", err)
	}
	return nil
}

// GetNext returns the entry with the fewest attempts.
func (r *ReconciliationRepo) GetNext(ctx context.Context) (*domain.ReconciliationEntry, error) {
	for {
		ids, err := r.rdb.ZRange(ctx, r.queueKey(), 0, 0).Result()
		if err != nil {
			return nil, fmt.Errorf("zrange failed: %w", err)
		}
		if len(ids) == 0 {
			return nil, nil
		}

		e, err := r.Get(ctx, ids[0])
		if err != nil {
			return nil, err
		}
		if e != nil {
			return e, nil
		}
		// Data expired but id still queued
		if err := r.rdb.ZRem(ctx, r.queueKey(), ids[0]).Err(); err != nil {
			return nil, fmt.Errorf("zrem failed: %w", err)
		}
	}
}

// Get loads one entry; nil when it does not exist.
func (r *ReconciliationRepo) Get(ctx context.Context, id string) (*domain.ReconciliationEntry, error) {
	data, err := r.rdb.Get(ctx, r.entryKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reconciliation entry: %w", err)
	}

	var e domain.ReconciliationEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reconciliation entry: %w", err)
	}
	return &e, nil
}

// IncrementAttempt bumps the attempt count, so the entry moves back in the queue.
func (r *ReconciliationRepo) IncrementAttempt(ctx context.Context, id string, errMsg string) error {
	e, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return nil
	}

	e.Attempts++
	e.Error = errMsg
	e.LastAttempt = time.Now()
	return r.Add(ctx, e)
}

// MarkResolved removes the entry.
func (r *ReconciliationRepo) MarkResolved(ctx context.Context, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, r.queueKey(), id)
		pipe.Del(ctx, r.entryKey(id))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to resolve reconciliation entry: %w", err)
	}
	return nil
}

// liveIDs returns the queued ids in queue order whose entry key still
// exists. Ids whose entry expired are removed from the queue.
func (r *ReconciliationRepo) liveIDs(ctx context.Context) ([]string, error) {
	ids, err := r.rdb.ZRange(ctx, r.queueKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	exists := make([]*redis.IntCmd, len(ids))
	_, err = r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			exists[i] = pipe.Exists(ctx, r.entryKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check reconciliation entries: %w", err)
	}

	live := make([]string, 0, len(ids))
	var expired []any
	for i, id := range ids {
		if exists[i].Val() > 0 {
			live = append(live, id)
		} else {
			expired = append(expired, id)
		}
	}
	if len(expired) > 0 {
		if err := r.rdb.ZRem(ctx, r.queueKey(), expired...).Err(); err != nil {
			return nil, fmt.Errorf("zrem failed: %w", err)
		}
	}
	return live, nil
}

// GetAll returns every pending entry in queue order.
func (r *ReconciliationRepo) GetAll(ctx context.Context) ([]*domain.ReconciliationEntry, error) {
	ids, err := r.liveIDs(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.ReconciliationEntry, 0, len(ids))
	for _, id := range ids {
		e, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if e != nil {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Count returns the number of pending entries that have not expired.
func (r *ReconciliationRepo) Count(ctx context.Context) (int, error) {
	ids, err := r.liveIDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
