package domain

import "time"

// Task is a unit of work on a list. CompletedAt is nil until the task is done.
type Task struct {
	ID          string     `json:"id"          db:"id"`
	ListID      string     `json:"list_id"     db:"list_id"`
	Title       string     `json:"title"       db:"title"`
	StoryPoints int        `json:"story_points" db:"story_points"`
	AssigneeID  *string    `json:"assignee_id" db:"assignee_id"`
	Position    int        `json:"position"    db:"position"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"  db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"  db:"updated_at"`
}

// IsCompleted reports whether the task already transitioned to done.
func (t *Task) IsCompleted() bool {
	return t.CompletedAt != nil
}

// IsAssignedTo reports whether userID is the task's assignee.
func (t *Task) IsAssignedTo(userID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}
