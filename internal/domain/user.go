package domain

import (
	"strings"
	"time"
)

// Role scopes what a user may see and change.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// IsAdmin reports whether the role carries admin privileges. Role values
// arrive from tokens and storage, so the comparison is case-insensitive.
func (r Role) IsAdmin() bool {
	return strings.EqualFold(string(r), string(RoleAdmin))
}

// User is the stored account record. Usernames are unique case-insensitively.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated caller as carried inside a token payload.
// Immutable once issued.
type Identity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IdentityOf derives the token-facing identity from an account record.
func IdentityOf(u *User) Identity {
	return Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}
