package domain

import "time"

// Role is the access level of a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// CanManage reports whether the role may act on tasks it is not assigned to.
func (r Role) CanManage() bool {
	return r == RoleAdmin || r == RoleManager
}

// User is a board member. TotalPoints is the running sum of the user's ledger
// entries and is only ever changed together with a ledger insert.
type User struct {
	ID          string    `json:"id"           db:"id"`
	Name        string    `json:"name"         db:"name"`
	Role        Role      `json:"role"         db:"role"`
	TotalPoints int64     `json:"total_points" db:"total_points"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}

// Caller is the authenticated identity performing a request.
type Caller struct {
	ID   string
	Role Role
}
