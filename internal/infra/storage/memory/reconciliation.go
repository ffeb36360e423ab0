package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/pointboard/internal/core/domain"
)

// ReconciliationRepo keeps the reconciliation queue in memory. It is used
// when no Redis instance is configured; entries do not survive a restart.
type ReconciliationRepo struct {
	mu      sync.Mutex
	entries map[string]*domain.ReconciliationEntry
}

func NewReconciliationRepo() *ReconciliationRepo {
	return &ReconciliationRepo{entries: make(map[string]*domain.ReconciliationEntry)}
}

func (r *ReconciliationRepo) Add(ctx context.Context, e *domain.ReconciliationEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *e
	if c.Status == "" {
		c.Status = domain.ReconciliationPending
	}
	r.entries[e.ID] = &c
	return nil
}

func (r *ReconciliationRepo) GetNext(ctx context.Context) (*domain.ReconciliationEntry, error) {
	all, _ := r.GetAll(ctx)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *ReconciliationRepo) Get(ctx context.Context, id string) (*domain.ReconciliationEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	c := *e
	return &c, nil
}

func (r *ReconciliationRepo) IncrementAttempt(ctx context.Context, id string, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.Attempts++
		e.Error = errMsg
		e.LastAttempt = time.Now()
	}
	return nil
}

func (r *ReconciliationRepo) MarkResolved(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}

// GetAll returns pending entries ordered by attempts, then age.
func (r *ReconciliationRepo) GetAll(ctx context.Context) ([]*domain.ReconciliationEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ReconciliationEntry, 0, len(r.entries))
	for _, e := range r.entries {
		c := *e
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Attempts != out[j].Attempts {
			return out[i].Attempts < out[j].Attempts
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *ReconciliationRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries), nil
}
