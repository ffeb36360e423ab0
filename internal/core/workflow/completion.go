// Package workflow holds the multi-step task and board operations that sit
// between the HTTP layer and the stores.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/pointboard/internal/core/apperr"
	"github.com/vietddude/pointboard/internal/core/domain"
	"github.com/vietddude/pointboard/internal/core/points"
	"github.com/vietddude/pointboard/internal/core/retry"
	"github.com/vietddude/pointboard/internal/infra/storage"
	"github.com/vietddude/pointboard/internal/metrics"
)

// Awarder grants the completion points for a task.
type Awarder interface {
	GrantForTaskCompletion(ctx context.Context, taskID, beneficiaryID string) (*domain.LedgerEntry, error)
}

// FailureRecorder is told about awards that could not be written.
type FailureRecorder interface {
	Record(ctx context.Context, taskID, userID string, cause error) (*domain.ReconciliationEntry, error)
}

// CompletionWorkflow moves a task from incomplete to completed and awards
// its points. The completion write is final; a failed award is recorded for
// reconciliation instead of failing the request.
type CompletionWorkflow struct {
	tasks    storage.TaskRepository
	awarder  Awarder
	exec     *retry.Executor
	recorder FailureRecorder
	log      *slog.Logger
	now      func() time.Time
}

// NewCompletionWorkflow creates a new completion workflow.
func NewCompletionWorkflow(
	tasks storage.TaskRepository,
	awarder Awarder,
	exec *retry.Executor,
	recorder FailureRecorder,
	log *slog.Logger,
) *CompletionWorkflow {
	if log == nil {
		log = slog.Default()
	}
	return &CompletionWorkflow{
		tasks:    tasks,
		awarder:  awarder,
		exec:     exec,
		recorder: recorder,
		log:      log,
		now:      time.Now,
	}
}

// Complete marks taskID completed on behalf of caller and returns the task.
// Completing an already completed task returns it unchanged.
func (w *CompletionWorkflow) Complete(ctx context.Context, taskID string, caller domain.Caller) (*domain.Task, error) {
	const op = "workflow.Complete"

	task, err := w.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !task.IsAssignedTo(caller.ID) && !caller.Role.CanManage() {
		return nil, apperr.Forbidden(op, "user %s may not complete task %s", caller.ID, taskID)
	}

	if task.IsCompleted() {
		metrics.TaskCompletions.WithLabelValues("already_completed").Inc()
		return task, nil
	}

	completed, changed, err := w.tasks.MarkCompleted(ctx, taskID, w.now().UTC())
	if err != nil {
		return nil, err
	}
	if !changed {
		// Another request completed it between the read and the write.
		metrics.TaskCompletions.WithLabelValues("lost_race").Inc()
		w.log.Debug("Task completed concurrently", "task_id", taskID)
		return w.tasks.GetByID(ctx, taskID)
	}
	metrics.TaskCompletions.WithLabelValues("completed").Inc()

	w.log.Info("Task completed",
		"task_id", taskID,
		"by", caller.ID,
		"story_points", completed.StoryPoints,
	)

	if completed.AssigneeID == nil {
		w.log.Warn("Completed task has no assignee, no points awarded", "task_id", taskID)
		return completed, nil
	}

	w.award(ctx, completed.ID, *completed.AssigneeID)
	return completed, nil
}

// award grants the completion points. It never fails the caller.
func (w *CompletionWorkflow) award(ctx context.Context, taskID, userID string) {
	// The task is already completed, so a client disconnect must not stop the award.
	ctx = context.WithoutCancel(ctx)

	_, err := retry.Do(ctx, w.exec, "points.grant_task_completion",
		func(ctx context.Context) (*domain.LedgerEntry, error) {
			return w.awarder.GrantForTaskCompletion(ctx, taskID, userID)
		})
	if err == nil {
		return
	}
	if errors.Is(err, points.ErrAlreadyAwarded) {
		w.log.Info("Completion points already awarded", "task_id", taskID, "user_id", userID)
		return
	}

	if _, recErr := w.recorder.Record(ctx, taskID, userID, err); recErr != nil {
		w.log.Error("Reconciliation record lost",
			"task_id", taskID,
			"user_id", userID,
			"error", recErr,
		)
	}
}
