package domain

import "time"

// TokenStatus is the lifecycle state of an issued session token.
//
// Active: issued at login, never re-validated since.
// Valid: re-validated at least once within the inactivity window.
// Invalid: terminal; set by explicit logout or inactivity expiry.
type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "Active"
	TokenStatusValid   TokenStatus = "Valid"
	TokenStatusInvalid TokenStatus = "Invalid"
)

// SessionTokenRecord tracks an issued bearer token in the store. The token
// string itself is the key. Records are never deleted; an Invalid record is
// retained as an audit trail until external cleanup.
type SessionTokenRecord struct {
	Token      string
	UserID     int64
	Username   string
	Status     TokenStatus
	LastUsedAt time.Time
	CreatedAt  time.Time
}
