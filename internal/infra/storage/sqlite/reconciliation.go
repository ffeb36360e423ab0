package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/pointboard/internal/core/domain"
)

const reconciliationColumns = `id, task_id, user_id, error_msg, attempts, status, created_at, last_attempt`

// ReconciliationRepo implements storage.ReconciliationRepository on SQLite.
// Resolved rows are kept until pruned.
type ReconciliationRepo struct {
	db  *DB
	now func() time.Time
}

func NewReconciliationRepo(db *DB) *ReconciliationRepo {
	return &ReconciliationRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type reconciliationRow struct {
	ID          string    `db:"id"`
	TaskID      string    `db:"task_id"`
	UserID      string    `db:"user_id"`
	ErrorMsg    string    `db:"error_msg"`
	Attempts    int       `db:"attempts"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	LastAttempt time.Time `db:"last_attempt"`
}

func (row reconciliationRow) toDomain() *domain.ReconciliationEntry {
	return &domain.ReconciliationEntry{
		ID:          row.ID,
		TaskID:      row.TaskID,
		UserID:      row.UserID,
		Error:       row.ErrorMsg,
		Attempts:    row.Attempts,
		Status:      domain.ReconciliationStatus(row.Status),
		CreatedAt:   row.CreatedAt,
		LastAttempt: row.LastAttempt,
	}
}

func (r *ReconciliationRepo) Add(ctx context.Context, e *domain.ReconciliationEntry) error {
	status := e.Status
	if status == "" {
		status = domain.ReconciliationPending
	}
	now := r.now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reconciliation_log (id, task_id, user_id, error_msg, attempts, status, created_at, last_attempt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.TaskID, e.UserID, e.Error, e.Attempts, string(status), now, now)
	if err != nil {
		return fmt.Errorf("failed to add reconciliation entry: %w", err)
	}
	return nil
}

func (r *ReconciliationRepo) GetNext(ctx context.Context) (*domain.ReconciliationEntry, error) {
	var row reconciliationRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+reconciliationColumns+`
		FROM reconciliation_log
		WHERE status = 'pending'
		ORDER BY attempts ASC, created_at ASC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next reconciliation entry: %w", err)
	}
	return row.toDomain(), nil
}

func (r *ReconciliationRepo) Get(ctx context.Context, id string) (*domain.ReconciliationEntry, error) {
	var row reconciliationRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+reconciliationColumns+`
		FROM reconciliation_log
		WHERE id = ? AND status = 'pending'
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reconciliation entry: %w", err)
	}
	return row.toDomain(), nil
}

func (r *ReconciliationRepo) IncrementAttempt(ctx context.Context, id string, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reconciliation_log
		SET attempts = attempts + 1, error_msg = ?, last_attempt = ?
		WHERE id = ?
	`, errMsg, r.now(), id)
	if err != nil {
		return fmt.Errorf("failed to increment reconciliation attempt: %w", err)
	}
	return nil
}

func (r *ReconciliationRepo) MarkResolved(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reconciliation_log SET status = 'resolved', last_attempt = ? WHERE id = ?`, r.now(), id)
	if err != nil {
		return fmt.Errorf("failed to resolve reconciliation entry: %w", err)
	}
	return nil
}

func (r *ReconciliationRepo) GetAll(ctx context.Context) ([]*domain.ReconciliationEntry, error) {
	var rows []reconciliationRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+reconciliationColumns+`
		FROM reconciliation_log
		WHERE status = 'pending'
		ORDER BY attempts ASC, created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation entries: %w", err)
	}

	entries := make([]*domain.ReconciliationEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toDomain())
	}
	return entries, nil
}

func (r *ReconciliationRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM reconciliation_log WHERE status = 'pending'`)
	if err != nil {
		return 0, fmt.Errorf("failed to count reconciliation entries: %w", err)
	}
	return n, nil
}

// DeleteResolvedBefore removes resolved entries last touched before cutoff.
func (r *ReconciliationRepo) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM reconciliation_log WHERE status = 'resolved' AND last_attempt < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune reconciliation entries: %w", err)
	}
	return res.RowsAffected()
}
