package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/pointboard/internal/core/apperr"
	"github.com/vietddude/pointboard/internal/core/domain"
	"github.com/vietddude/pointboard/internal/infra/storage"
)

// MemoryStorage keeps every entity in process memory. A single lock makes
// each repository call atomic, which stands in for the store procedures.
type MemoryStorage struct {
	tasks  map[string]*domain.Task
	lists  map[string]*domain.List
	users  map[string]*domain.User
	ledger []*domain.LedgerEntry
	mu     sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		tasks: make(map[string]*domain.Task),
		lists: make(map[string]*domain.List),
		users: make(map[string]*domain.User),
	}
}

// NewStore wires all repositories over one MemoryStorage.
func NewStore(s *MemoryStorage) *storage.Store {
	return &storage.Store{
		Tasks:  NewTaskRepo(s),
		Lists:  NewListRepo(s),
		Ledger: NewLedgerRepo(s),
		Users:  NewUserRepo(s),
		Close:  func() error { return nil },
		Health: func(context.Context) error { return nil },
	}
}

// PutTask inserts or replaces a task.
func (s *MemoryStorage) PutTask(t *domain.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *t
	s.tasks[t.ID] = &c
}

// PutList inserts or replaces a list.
func (s *MemoryStorage) PutList(l *domain.List) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *l
	s.lists[l.ID] = &c
}

// PutUser inserts or replaces a user.
func (s *MemoryStorage) PutUser(u *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *u
	s.users[u.ID] = &c
}

// -----------------------------------------------------------------------------
// Task Repository
// -----------------------------------------------------------------------------

type TaskRepo struct {
	store *MemoryStorage
}

func NewTaskRepo(store *MemoryStorage) *TaskRepo {
	return &TaskRepo{store: store}
}

func (r *TaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	t, ok := r.store.tasks[id]
	if !ok {
		return nil, apperr.NotFound("tasks.get", "task %s not found", id)
	}
	c := *t
	return &c, nil
}

func (r *TaskRepo) MarkCompleted(ctx context.Context, id string, at time.Time) (*domain.Task, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.tasks[id]
	if !ok || t.CompletedAt != nil {
		return nil, false, nil
	}
	completed := at
	t.CompletedAt = &completed
	t.UpdatedAt = at
	c := *t
	return &c, true, nil
}

// -----------------------------------------------------------------------------
// List Repository
// -----------------------------------------------------------------------------

type ListRepo struct {
	store *MemoryStorage
}

func NewListRepo(store *MemoryStorage) *ListRepo {
	return &ListRepo{store: store}
}

func (r *ListRepo) FindIDsOnBoard(ctx context.Context, boardID string, ids []string) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	seen := make(map[string]bool)
	var found []string
	for _, id := range ids {
		l, ok := r.store.lists[id]
		if ok && l.BoardID == boardID && !seen[id] {
			seen[id] = true
			found = append(found, id)
		}
	}
	return found, nil
}

func (r *ListRepo) ReorderBoard(
	ctx context.Context,
	boardID string,
	positions []domain.ListPosition,
	actorID string,
) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	targets := make(map[string]int, len(positions))
	for _, p := range positions {
		l, ok := r.store.lists[p.ID]
		if !ok || l.BoardID != boardID {
			continue
		}
		targets[p.ID] = p.Position
	}
	if len(targets) != len(positions) {
		return 0, nil
	}

	var updatedBy *string
	if actorID != "" {
		updatedBy = &actorID
	}

	now := time.Now()
	for id, pos := range targets {
		l := r.store.lists[id]
		l.Position = pos
		l.UpdatedBy = updatedBy
		l.UpdatedAt = now
	}
	return int64(len(targets)), nil
}

func (r *ListRepo) ListByBoard(ctx context.Context, boardID string) ([]*domain.List, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var lists []*domain.List
	for _, l := range r.store.lists {
		if l.BoardID == boardID {
			c := *l
			lists = append(lists, &c)
		}
	}
	sort.Slice(lists, func(i, j int) bool {
		if lists[i].Position == lists[j].Position {
			return lists[i].ID < lists[j].ID
		}
		return lists[i].Position < lists[j].Position
	})
	return lists, nil
}

// -----------------------------------------------------------------------------
// Ledger Repository
// -----------------------------------------------------------------------------

type LedgerRepo struct {
	store *MemoryStorage
}

func NewLedgerRepo(store *MemoryStorage) *LedgerRepo {
	return &LedgerRepo{store: store}
}

func (r *LedgerRepo) Append(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	user, ok := r.store.users[entry.UserID]
	if !ok {
		return nil, apperr.NotFound("ledger.append", "user %s not found", entry.UserID)
	}
	if entry.Reason == domain.ReasonTaskCompletion && entry.TaskID != nil &&
		r.hasTaskCompletion(*entry.TaskID) {
		return nil, storage.ErrDuplicateTaskAward
	}

	c := *entry
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	r.store.ledger = append(r.store.ledger, &c)
	user.TotalPoints += c.Amount

	out := c
	return &out, nil
}

func (r *LedgerRepo) HasTaskCompletion(ctx context.Context, taskID string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.hasTaskCompletion(taskID), nil
}

func (r *LedgerRepo) hasTaskCompletion(taskID string) bool {
	for _, e := range r.store.ledger {
		if e.Reason == domain.ReasonTaskCompletion && e.TaskID != nil && *e.TaskID == taskID {
			return true
		}
	}
	return false
}

func (r *LedgerRepo) History(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.LedgerEntry
	// Appended in time order, so walk backwards for newest first.
	for i := len(r.store.ledger) - 1; i >= 0; i-- {
		e := r.store.ledger[i]
		if e.UserID != userID {
			continue
		}
		c := *e
		out = append(out, &c)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------
// User Repository
// -----------------------------------------------------------------------------

type UserRepo struct {
	store *MemoryStorage
}

func NewUserRepo(store *MemoryStorage) *UserRepo {
	return &UserRepo{store: store}
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, apperr.NotFound("users.get", "user %s not found", id)
	}
	c := *u
	return &c, nil
}
