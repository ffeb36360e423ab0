package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vietddude/pointboard/internal/core/apperr"
	"github.com/vietddude/pointboard/internal/core/domain"
	"github.com/vietddude/pointboard/internal/core/points"
	"github.com/vietddude/pointboard/internal/infra/storage"
	"github.com/vietddude/pointboard/internal/metrics"
)

// Granter re-issues a task-completion award.
type Granter interface {
	GrantForTaskCompletion(ctx context.Context, taskID, beneficiaryID string) (*domain.LedgerEntry, error)
}

// Outcome describes what a replay did with one entry.
type Outcome string

const (
	OutcomeResolved       Outcome = "resolved"
	OutcomeAlreadyAwarded Outcome = "already_awarded"
	OutcomeFailed         Outcome = "failed"
)

// Handler replays reconciliation entries on operator request.
type Handler struct {
	repo    storage.ReconciliationRepository
	granter Granter
	log     *slog.Logger
}

// NewHandler creates a new reconciliation handler.
func NewHandler(repo storage.ReconciliationRepository, granter Granter, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{repo: repo, granter: granter, log: log}
}

// Pending lists every queued entry.
func (h *Handler) Pending(ctx context.Context) ([]*domain.ReconciliationEntry, error) {
	entries, err := h.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation entries: %w", err)
	}
	metrics.ReconciliationPending.Set(float64(len(entries)))
	return entries, nil
}

// ProcessNext replays the entry with the fewest attempts. It returns false
// when the queue is empty.
func (h *Handler) ProcessNext(ctx context.Context) (Outcome, bool, error) {
	entry, err := h.repo.GetNext(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to get next reconciliation entry: %w", err)
	}
	if entry == nil {
		return "", false, nil
	}
	outcome, err := h.replay(ctx, entry)
	return outcome, true, err
}

// Replay replays one entry by id.
func (h *Handler) Replay(ctx context.Context, id string) (Outcome, error) {
	entry, err := h.repo.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to get reconciliation entry: %w", err)
	}
	if entry == nil {
		return "", apperr.NotFound("reconcile.Replay", "reconciliation entry %s not found", id)
	}
	return h.replay(ctx, entry)
}

// ProcessAll replays every entry once and counts the outcomes.
func (h *Handler) ProcessAll(ctx context.Context) (map[Outcome]int, error) {
	entries, err := h.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reconciliation entries: %w", err)
	}

	counts := make(map[Outcome]int)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return counts, err
		}
		outcome, err := h.replay(ctx, entry)
		if err != nil {
			return counts, err
		}
		counts[outcome]++
	}
	return counts, nil
}

func (h *Handler) replay(ctx context.Context, entry *domain.ReconciliationEntry) (Outcome, error) {
	_, grantErr := h.granter.GrantForTaskCompletion(ctx, entry.TaskID, entry.UserID)

	switch {
	case grantErr == nil, errors.Is(grantErr, points.ErrAlreadyAwarded):
		if err := h.repo.MarkResolved(ctx, entry.ID); err != nil {
			return "", fmt.Errorf("failed to resolve entry %s: %w", entry.ID, err)
		}
		metrics.ReconciliationPending.Dec()

		outcome := OutcomeResolved
		if grantErr != nil {
			outcome = OutcomeAlreadyAwarded
		}
		h.log.Info("Reconciliation entry resolved",
			"id", entry.ID,
			"task_id", entry.TaskID,
			"user_id", entry.UserID,
			"outcome", outcome,
		)
		return outcome, nil
	default:
		if err := h.repo.IncrementAttempt(ctx, entry.ID, grantErr.Error()); err != nil {
			return "", fmt.Errorf("failed to increment attempt: %w", err)
		}
		h.log.Warn("Reconciliation replay failed",
			"id", entry.ID,
			"task_id", entry.TaskID,
			"attempts", entry.Attempts+1,
			"error", grantErr,
		)
		return OutcomeFailed, nil
	}
}
