package domain

import "time"

// ReconciliationEntry records a task whose completion points could not be
// awarded. Operators replay or resolve these out of band.
type ReconciliationEntry struct {
	ID          string               `json:"id"`
	TaskID      string               `json:"task_id"`
	UserID      string               `json:"user_id"`
	Error       string               `json:"error_msg"`
	Attempts    int                  `json:"attempts"`
	Status      ReconciliationStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	LastAttempt time.Time            `json:"last_attempt"`
}

type ReconciliationStatus string

const (
	ReconciliationPending  ReconciliationStatus = "pending"
	ReconciliationResolved ReconciliationStatus = "resolved"
)
