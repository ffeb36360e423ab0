// Package points implements the append-only points ledger that feeds the
// leaderboard. Every write is a single atomic store call that inserts the
// entry and moves the user's running balance together.
package points

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/pointboard/internal/core/apperr"
	"github.com/vietddude/pointboard/internal/core/domain"
	"github.com/vietddude/pointboard/internal/infra/storage"
	"github.com/vietddude/pointboard/internal/metrics"
)

// ErrAlreadyAwarded is returned when a task already earned its completion points.
var ErrAlreadyAwarded = storage.ErrDuplicateTaskAward

// Ledger grants, deducts and reports points.
type Ledger struct {
	tasks  storage.TaskRepository
	users  storage.UserRepository
	ledger storage.LedgerRepository
	calc   Calculator
	log    *slog.Logger
	now    func() time.Time
}

// NewLedger creates a new points ledger.
func NewLedger(
	tasks storage.TaskRepository,
	users storage.UserRepository,
	ledger storage.LedgerRepository,
	calc Calculator,
	log *slog.Logger,
) *Ledger {
	if log == nil {
		log = slog.Default()
	}
	return &Ledger{
		tasks:  tasks,
		users:  users,
		ledger: ledger,
		calc:   calc,
		log:    log,
		now:    time.Now,
	}
}

// GrantForTaskCompletion awards beneficiaryID the points for completing taskID.
// A task earns completion points at most once; a repeat fails with
// ErrAlreadyAwarded.
func (l *Ledger) GrantForTaskCompletion(
	ctx context.Context,
	taskID, beneficiaryID string,
) (*domain.LedgerEntry, error) {
	task, err := l.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	awarded, err := l.ledger.HasTaskCompletion(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if awarded {
		return nil, ErrAlreadyAwarded
	}

	amount, err := l.calc.ForStoryPoints(task.StoryPoints)
	if err != nil {
		return nil, err
	}

	tid := task.ID
	entry, err := l.append(ctx, &domain.LedgerEntry{
		UserID: beneficiaryID,
		Amount: amount,
		Reason: domain.ReasonTaskCompletion,
		TaskID: &tid,
	})
	if err != nil {
		return nil, err
	}

	l.log.Info("Points awarded for task completion",
		"task_id", taskID,
		"user_id", beneficiaryID,
		"amount", amount,
		"entry_id", entry.ID,
	)
	return entry, nil
}

// GrantManual awards amount points to beneficiaryID on behalf of actorID.
func (l *Ledger) GrantManual(
	ctx context.Context,
	beneficiaryID string,
	amount int64,
	actorID string,
	note string,
) (*domain.LedgerEntry, error) {
	if amount <= 0 {
		return nil, apperr.Validation("points.grant", "invalid amount %d: must be a positive integer", amount)
	}
	return l.manual(ctx, beneficiaryID, amount, domain.ReasonManualAward, actorID, note)
}

// DeductManual removes amount points from beneficiaryID on behalf of actorID.
// Corrections are new entries; existing entries are never edited.
func (l *Ledger) DeductManual(
	ctx context.Context,
	beneficiaryID string,
	amount int64,
	actorID string,
	note string,
) (*domain.LedgerEntry, error) {
	if amount <= 0 {
		return nil, apperr.Validation("points.deduct", "invalid amount %d: must be a positive integer", amount)
	}
	return l.manual(ctx, beneficiaryID, -amount, domain.ReasonManualDeduction, actorID, note)
}

func (l *Ledger) manual(
	ctx context.Context,
	beneficiaryID string,
	amount int64,
	reason domain.LedgerReason,
	actorID string,
	note string,
) (*domain.LedgerEntry, error) {
	if _, err := l.users.GetByID(ctx, beneficiaryID); err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		UserID: beneficiaryID,
		Amount: amount,
		Reason: reason,
	}
	if actorID != "" {
		entry.ActorID = &actorID
	}
	if n := strings.TrimSpace(note); n != "" {
		entry.Note = &n
	}

	out, err := l.append(ctx, entry)
	if err != nil {
		return nil, err
	}
	l.log.Info("Manual ledger entry written",
		"user_id", beneficiaryID,
		"actor_id", actorID,
		"amount", amount,
		"reason", reason,
	)
	return out, nil
}

func (l *Ledger) append(ctx context.Context, entry *domain.LedgerEntry) (*domain.LedgerEntry, error) {
	entry.ID = uuid.NewString()
	entry.CreatedAt = l.now().UTC()

	out, err := l.ledger.Append(ctx, entry)
	if err != nil {
		return nil, err
	}
	metrics.PointsAwarded.WithLabelValues(string(entry.Reason)).Inc()
	return out, nil
}

// HistoryFor returns userID's ledger entries, newest first.
func (l *Ledger) HistoryFor(ctx context.Context, userID string, limit int) ([]*domain.LedgerEntry, error) {
	if _, err := l.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return l.ledger.History(ctx, userID, limit)
}

// BalanceOf returns userID's running point total.
func (l *Ledger) BalanceOf(ctx context.Context, userID string) (int64, error) {
	u, err := l.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.TotalPoints, nil
}
