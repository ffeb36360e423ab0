package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/pointboard/internal/core/apperr"
	"github.com/vietddude/pointboard/internal/core/domain"
)

const taskColumns = `id, list_id, title, story_points, assignee_id, position, completed_at, created_at, updated_at`

// TaskRepo implements storage.TaskRepository using PostgreSQL.
type TaskRepo struct {
	db *DB
}

// NewTaskRepo creates a new PostgreSQL task repository.
func NewTaskRepo(db *DB) *TaskRepo {
	return &TaskRepo{db: db}
}

// GetByID retrieves a task by id.
func (r *TaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var task domain.Task
	err := r.db.GetContext(ctx, &task, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("tasks.get", "task %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &task, nil
}

// MarkCompleted sets completed_at when it is still null.
func (r *TaskRepo) MarkCompleted(ctx context.Context, id string, at time.Time) (*domain.Task, bool, error) {
	query := `
		UPDATE tasks SET completed_at = $2, updated_at = $2
		WHERE id = $1 AND completed_at IS NULL
		RETURNING ` + taskColumns

	var task domain.Task
	err := r.db.GetContext(ctx, &task, query, id, at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to complete task: %w", err)
	}
	return &task, true, nil
}
