package dto

import (
	"time"

	"github.com/labdesk/lab-issue-service/internal/domain"
)

// RegisterRequest payload for self-service sign-up.
type RegisterRequest struct {
	Username        string      `json:"username" form:"username"`
	Password        string      `json:"password" form:"password"`
	ConfirmPassword string      `json:"confirm_password" form:"confirm_password"`
	Email           string      `json:"email" form:"email"`
	FullName        string      `json:"full_name" form:"full_name"`
	Role            domain.Role `json:"role" form:"role"`
}

// LoginRequest payload.
type LoginRequest struct {
	Username  string `json:"username" form:"username"`
	Password  string `json:"password" form:"password"`
	ReturnURL string `json:"return_url" form:"return_url"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	FullName *string     `json:"full_name"`
	Role     domain.Role `json:"role"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionResponse is returned on login and registration.
type SessionResponse struct {
	User     UserResponse `json:"user"`
	Auth     AuthResponse `json:"auth"`
	Redirect string       `json:"redirect"`
}
