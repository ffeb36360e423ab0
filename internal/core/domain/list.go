package domain

import "time"

// List is an ordered column on a board.
type List struct {
	ID        string    `json:"id"                   db:"id"`
	BoardID   string    `json:"board_id"             db:"board_id"`
	Name      string    `json:"name"                 db:"name"`
	Position  int       `json:"position"             db:"position"`
	UpdatedBy *string   `json:"updated_by,omitempty" db:"updated_by"` // last reorder actor
	CreatedAt time.Time `json:"created_at"           db:"created_at"`
	UpdatedAt time.Time `json:"updated_at"           db:"updated_at"`
}

// ListPosition is one (list, position) pair of a bulk reorder request.
type ListPosition struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}
