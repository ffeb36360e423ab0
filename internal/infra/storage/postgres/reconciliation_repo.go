package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/pointboard/internal/core/domain"
)

const reconciliationColumns = `id, task_id, user_id, error_msg, attempts, status, created_at, last_attempt`

// ReconciliationRepo implements storage.ReconciliationRepository using PostgreSQL.
// Resolved rows are kept for audit.
type ReconciliationRepo struct {
	db *DB
}

// NewReconciliationRepo creates a new PostgreSQL reconciliation repository.
func NewReconciliationRepo(db *DB) *ReconciliationRepo {
	return &ReconciliationRepo{db: db}
}

type reconciliationRow struct {
	ID          string       `db:"id"`
	TaskID      string       `db:"task_id"`
	UserID      string       `db:"user_id"`
	ErrorMsg    string       `db:"error_msg"`
	Attempts    int          `db:"attempts"`
	Status      string       `db:"status"`
	CreatedAt   sql.NullTime `db:"created_at"`
	LastAttempt sql.NullTime `db:"last_attempt"`
}

func (row reconciliationRow) toDomain() *domain.ReconciliationEntry {
	return &domain.ReconciliationEntry{
		ID:          row.ID,
		TaskID:      row.TaskID,
		UserID:      row.UserID,
		Error:       row.ErrorMsg,
		Attempts:    row.Attempts,
		Status:      domain.ReconciliationStatus(row.Status),
		CreatedAt:   row.CreatedAt.Time,
		LastAttempt: row.LastAttempt.Time,
	}
}

// Add adds a pending entry.
func (r *ReconciliationRepo) Add(ctx context.Context, e *domain.ReconciliationEntry) error {
	status := string(e.Status)
	if status == "" {
		status = string(domain.ReconciliationPending)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reconciliation_log (id, task_id, user_id, error_msg, attempts, status, created_at, last_attempt)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`, e.ID, e.TaskID, e.UserID, e.Error, e.Attempts, status)
	if err != nil {
		return fmt.Errorf("failed to add reconciliation entry: %w", err)
	}
	return nil
}

// GetNext returns the pending entry with the fewest attempts.
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

// Get returns a pending entry by id.
func (r *ReconciliationRepo) Get(ctx context.Context, id string) (*domain.ReconciliationEntry, error) {
	var row reconciliationRow
	err := r.db.GetContext(ctx, &row, `
		SELECT `+reconciliationColumns+`
		FROM reconciliation_log
		WHERE id = $1 AND status = 'pending'
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reconciliation entry: %w", err)
	}
	return row.toDomain(), nil
}

// IncrementAttempt records a failed replay.
func (r *ReconciliationRepo) IncrementAttempt(ctx context.Context, id string, errMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE reconciliation_log
		SET attempts = attempts + 1, error_msg = $2, last_attempt = NOW()
		WHERE id = $1
	`, id, errMsg)
	if err != nil {
		return fmt.Errorf("failed to increment reconciliation attempt: %w", err)
	}
	return nil
}

// MarkResolved marks an entry as resolved.
func (r *ReconciliationRepo) MarkResolved(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reconciliation_log SET status = 'resolved', last_attempt = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to resolve reconciliation entry: %w", err)
	}
	return nil
}

// GetAll returns every pending entry.
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

// Count returns the number of pending entries.
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
		`DELETE FROM reconciliation_log WHERE status = 'resolved' AND last_attempt < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reconciliation entries: %w", err)
	}
	return res.RowsAffected()
}
