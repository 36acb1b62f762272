package domain

import "time"

// Session describes an issued login token.
type Session struct {
	TokenID   string
	UserID    int64
	Username  string
	FullName  string
	Role      Role
	Token     string
	ExpiresAt time.Time
}
