package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vietddude/pointboard/internal/core/apperr"
	"github.com/vietddude/pointboard/internal/core/domain"
	"github.com/vietddude/pointboard/internal/infra/storage"
)

const taskColumns = `id, list_id, title, story_points, assignee_id, position, completed_at, created_at, updated_at`

// -----------------------------------------------------------------------------
// Task Repository
// -----------------------------------------------------------------------------

type TaskRepo struct {
	db *DB
}

func (r *TaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.GetContext(ctx, &task, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("tasks.get", "task %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// MarkCompleted runs the conditional update and reads the row back in the
// same transaction.
func (r *TaskRepo) MarkCompleted(ctx context.Context, id string, at time.Time) (*domain.Task, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE tasks SET completed_at = ?, updated_at = ?
		WHERE id = ? AND completed_at IS NULL
	`, at, at, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to complete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, false, nil
	}

	var task domain.Task
	if err := tx.GetContext(ctx, &task, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id); err != nil {
		return nil, false, fmt.Errorf("failed to read completed task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit completion: %w", err)
	}
	return &task, true, nil
}

// -----------------------------------------------------------------------------
// List Repository
// -----------------------------------------------------------------------------

type ListRepo struct {
	db *DB
}

func (r *ListRepo) FindIDsOnBoard(ctx context.Context, boardID string, ids []string) ([]string, error) {
	query, args, err := sqlx.In(`SELECT id FROM lists WHERE board_id = ? AND id IN (?)`, boardID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	var found []string
	if err := r.db.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find lists on board: %w", err)
	}
	return found, nil
}

// ReorderBoard updates every pair in one UPDATE. The guard subquery makes the
// statement a no-op unless each id is a distinct list on the board.
func (r *ListRepo) ReorderBoard(
	ctx context.Context,
	boardID string,
	positions []domain.ListPosition,
	actorID string,
) (int64, error) {
	if len(positions) == 0 {
		return 0, nil
	}

	var (
		cases strings.Builder
		args  []any
		ids   []any
	)
	cases.WriteString("CASE id")
	for _, p := range positions {
		cases.WriteString(" WHEN ? THEN ?")
		args = append(args, p.ID, p.Position)
		ids = append(ids, p.ID)
	}
	cases.WriteString(" END")

	in := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := `
		UPDATE lists
		SET position = ` + cases.String() + `,
			updated_by = NULLIF(?, ''),
			updated_at = ?
		WHERE board_id = ? AND id IN (` + in + `)
		AND (SELECT COUNT(*) FROM lists WHERE board_id = ? AND id IN (` + in + `)) = ?`

	args = append(args, actorID, time.Now().UTC(), boardID)
	args = append(args, ids...)
	args = append(args, boardID)
	args = append(args, ids...)
	args = append(args, len(positions))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reorder lists: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read reorder row count: %w", err)
	}
	return n, nil
}

func (r *ListRepo) ListByBoard(ctx context.Context, boardID string) ([]*domain.List, error) {
	var lists []*domain.List
	err := r.db.SelectContext(ctx, &lists, `
		SELECT id, board_id, name, position, updated_by, created_at, updated_at
		FROM lists WHERE board_id = ?
		ORDER BY position, id
	`, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list board lists: %w", err)
	}
	return lists, nil
}

// -----------------------------------------------------------------------------
// Ledger Repository
// -----------------------------------------------------------------------------

type LedgerRepo struct {
	db *DB
}

// Append inserts the entry and moves the balance in one transaction.
func (r *LedgerRepo) Append(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET total_points = total_points + ? WHERE id = ?`,
		entry.Amount, entry.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.NotFound("ledger.append", "user %s not found", entry.UserID)
	}

	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO points_ledger (id, user_id, amount, reason, task_id, actor_id, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.UserID, entry.Amount, string(entry.Reason),
		entry.TaskID, entry.ActorID, entry.Note, created)
	if err != nil {
		if isUniqueViolation(err) && entry.Reason == domain.ReasonTaskCompletion {
			return nil, storage.ErrDuplicateTaskAward
		}
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit ledger entry: %w", err)
	}

	out := *entry
	out.CreatedAt = created
	return &out, nil
}

func (r *LedgerRepo) HasTaskCompletion(ctx context.Context, taskID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM points_ledger WHERE task_id = ? AND reason = 'task_completion')
	`, taskID)
	if err != nil {
		return false, fmt.Errorf("failed to check task award: %w", err)
	}
	return exists, nil
}

func (r *LedgerRepo) History(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}

	var entries []*domain.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, user_id, amount, reason, task_id, actor_id, note, created_at
		FROM points_ledger
		WHERE user_id = ?
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	return entries, nil
}

// -----------------------------------------------------------------------------
// User Repository
// -----------------------------------------------------------------------------

type UserRepo struct {
	db *DB
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.db.GetContext(ctx, &user,
		`SELECT id, name, role, total_points, created_at FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("users.get", "user %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
