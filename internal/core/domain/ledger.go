package domain

import "time"

// LedgerReason explains why a ledger entry was written.
type LedgerReason string

const (
	ReasonTaskCompletion  LedgerReason = "task_completion"
	ReasonManualAward     LedgerReason = "manual_award"
	ReasonManualDeduction LedgerReason = "manual_deduction"
)

// LedgerEntry is an immutable grant or deduction of points.
type LedgerEntry struct {
	ID        string       `json:"id"         db:"id"`
	UserID    string       `json:"user_id"    db:"user_id"`
	Amount    int64        `json:"amount"     db:"amount"`
	Reason    LedgerReason `json:"reason"     db:"reason"`
	TaskID    *string      `json:"task_id,omitempty"  db:"task_id"`
	ActorID   *string      `json:"actor_id,omitempty" db:"actor_id"`
	Note      *string      `json:"note,omitempty"     db:"note"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
