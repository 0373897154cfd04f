package models

import "time"

// UserRole represents the roles known to the course viewer.
type UserRole string

const (
	RoleGuest      UserRole = "Guest"
	RoleStudent    UserRole = "Student"
	RoleInstructor UserRole = "Instructor"
	RoleAdmin      UserRole = "Admin"
)

// Valid reports whether r is one of the persisted roles. Guest is never stored.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Viewer is the identity a course session is evaluated for. A nil *Viewer is
// an unauthenticated guest.
type Viewer struct {
	ID   string   `json:"id"`
	Role UserRole `json:"role"`
	Name string   `json:"name"`
}

// Authenticated reports whether v identifies a signed-in user.
func (v *Viewer) Authenticated() bool {
	return v != nil && v.ID != "" && v.Role != RoleGuest && v.Role != ""
}

// Is reports whether v holds role.
func (v *Viewer) Is(role UserRole) bool {
	return v != nil && v.Role == role
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
