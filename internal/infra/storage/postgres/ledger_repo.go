package postgres

import (
	"context"
	"fmt"

	"github.com/vietddude/pointboard/internal/core/domain"
	"github.com/vietddude/pointboard/internal/infra/storage"
)

// LedgerRepo implements storage.LedgerRepository using PostgreSQL.
type LedgerRepo struct {
	db *DB
}

// NewLedgerRepo creates a new PostgreSQL ledger repository.
func NewLedgerRepo(db *DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// Append calls award_points, which inserts the entry and moves the user's
// balance in one statement.
func (r *LedgerRepo) Append(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	var balance int64
	err := r.db.GetContext(ctx, &balance,
		`SELECT award_points($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID,
		entry.UserID,
		entry.Amount,
		string(entry.Reason),
		entry.TaskID,
		entry.ActorID,
		entry.Note,
		entry.CreatedAt,
	)
	if err != nil {
		if nf := notFound("ledger.append", err); nf != nil {
			return nil, nf
		}
		if pgCode(err) == codeUniqueViolation {
			return nil, storage.ErrDuplicateTaskAward
		}
		return nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}

	out := *entry
	return &out, nil
}

// HasTaskCompletion reports whether taskID already earned completion points.
func (r *LedgerRepo) HasTaskCompletion(ctx context.Context, taskID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM points_ledger WHERE task_id = $1 AND reason = 'task_completion'
		)
	`, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to check task award: %w", err)
	}
	return exists, nil
}

// History returns userID's entries, newest first.
func (r *LedgerRepo) History(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error) {
	// LIMIT NULL means no limit.
	var lim any
	if limit > 0 {
		lim = limit
	}

	var entries []*domain.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, amount, reason, task_id, actor_id, note, created_at
		FROM points_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT $2
	`, userID, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	return entries, nil
}
