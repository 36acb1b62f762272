package domain

import "time"

// Role identifies which dashboard and routes a user may reach.
type Role string

const (
	RoleStudent     Role = "Student"
	RoleNetworkTeam Role = "NetworkTeam"
	RoleFaculty     Role = "Faculty"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleNetworkTeam, RoleFaculty:
		return true
	}
	return false
}

// DashboardPath is where a freshly authenticated user of this role lands.
func (r Role) DashboardPath() string {
	if !r.Valid() {
		return "/Account/Login"
	}
	return "/" + string(r) + "/Dashboard"
}

// User is an account of any role.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	Email        string
	FullName     *string
	IsActive     bool
	CreatedAt    time.Time
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Username
}
