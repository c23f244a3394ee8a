package models

import "time"

type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "superadmin"
)

// Satisfies reports whether a holder of r may act as required.
// Superadmins can do everything admins can.
func (r UserRole) Satisfies(required UserRole) bool {
	if r == required {
		return true
	}
	return r == RoleSuperAdmin && required == RoleAdmin
}

type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
