package storage

import (
	"context"
	"time"

	"github.com/vietddude/pointboard/internal/core/apperr"
	"github.com/vietddude/pointboard/internal/core/domain"
)

// TaskRepository handles task lookups and the completion transition.
type TaskRepository interface {
	// GetByID retrieves a task. Missing tasks yield an apperr NotFound.
	GetByID(ctx context.Context, id string) (*domain.Task, error)

	// MarkCompleted sets completed_at only when it is still null. It returns
	// the updated task and true, or nil and false when no row changed.
	MarkCompleted(ctx context.Context, id string, at time.Time) (*domain.Task, bool, error)
}

// ListRepository handles board list ordering.
type ListRepository interface {
	// FindIDsOnBoard returns the subset of ids that belong to boardID.
	FindIDsOnBoard(ctx context.Context, boardID string, ids []string) ([]string, error)

	// ReorderBoard applies every position in one atomic statement and
	// returns the number of rows it updated.
	ReorderBoard(
		ctx context.Context,
		boardID string,
		positions []domain.ListPosition,
		actorID string,
	) (int64, error)

	// ListByBoard returns a board's lists ordered by position.
	ListByBoard(ctx context.Context, boardID string) ([]*domain.List, error)
}

// LedgerRepository handles the append-only points ledger.
type LedgerRepository interface {
	// Append inserts entry and adjusts the owner's total_points by
	// entry.Amount in one atomic step. Missing users yield NotFound.
	Append(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error)

	// HasTaskCompletion reports whether a task-completion entry exists for taskID.
	HasTaskCompletion(ctx context.Context, taskID string) (bool, error)

	// History returns a user's entries, newest first. limit <= 0 means all.
	History(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error)
}

// UserRepository handles user lookups.
type UserRepository interface {
	// GetByID retrieves a user. Missing users yield an apperr NotFound.
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// ReconciliationRepository handles the queue of point awards that need
// operator follow-up.
type ReconciliationRepository interface {
	// Add enqueues a pending entry.
	Add(ctx context.Context, entry *domain.ReconciliationEntry) error

	// GetNext returns the pending entry with the fewest attempts, or nil.
	GetNext(ctx context.Context) (*domain.ReconciliationEntry, error)

	// Get returns a pending entry by id, or nil.
	Get(ctx context.Context, id string) (*domain.ReconciliationEntry, error)

	// IncrementAttempt records a failed replay.
	IncrementAttempt(ctx context.Context, id string, errMsg string) error

	// MarkResolved removes an entry from the pending queue.
	MarkResolved(ctx context.Context, id string) error

	// GetAll returns every pending entry.
	GetAll(ctx context.Context) ([]*domain.ReconciliationEntry, error)

	// Count returns the number of pending entries.
	Count(ctx context.Context) (int, error)
}

// Store groups the repositories of one backend.
type Store struct {
	Tasks  TaskRepository
	Lists  ListRepository
	Ledger LedgerRepository
	Users  UserRepository
	Close  func() error
	Health func(ctx context.Context) error
}

// ErrDuplicateTaskAward is returned by LedgerRepository.Append when the task
// already has a task-completion entry.
var ErrDuplicateTaskAward = apperr.Validation("", "points already awarded: task already completed")
