// Package reconcile tracks point awards that failed after a task was
// completed. Failures are recorded for operators; they are never replayed
// automatically.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/pointboard/internal/core/domain"
	"github.com/vietddude/pointboard/internal/infra/storage"
	"github.com/vietddude/pointboard/internal/metrics"
)

// Recorder writes reconciliation records.
type Recorder struct {
	repo storage.ReconciliationRepository
	log  *slog.Logger
	now  func() time.Time
}

// NewRecorder creates a new Recorder.
func NewRecorder(repo storage.ReconciliationRepository, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{repo: repo, log: log, now: time.Now}
}

// Record logs the failed award at error level and enqueues it for operators.
// The log line is written even when the queue write fails.
func (r *Recorder) Record(ctx context.Context, taskID, userID string, cause error) (*domain.ReconciliationEntry, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	r.log.Error("Points award failed, reconciliation required",
		"task_id", taskID,
		"user_id", userID,
		"error", msg,
	)
	metrics.PointsAwardFailures.Inc()

	now := r.now()
	entry := &domain.ReconciliationEntry{
		ID:          uuid.New().String(),
		TaskID:      taskID,
		UserID:      userID,
		Error:       msg,
		Status:      domain.ReconciliationPending,
		CreatedAt:   now,
		LastAttempt: now,
	}

	// The request that triggered this may already be gone.
	if err := r.repo.Add(context.WithoutCancel(ctx), entry); err != nil {
		r.log.Error("Failed to persist reconciliation record",
			"task_id", taskID,
			"user_id", userID,
			"error", err,
		)
		return entry, fmt.Errorf("failed to add reconciliation entry: %w", err)
	}
	metrics.ReconciliationPending.Inc()
	return entry, nil
}
