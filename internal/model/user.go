package model

import "time"

// User is the identity record owned by the user store. At most one refresh
// token is live per user; RefreshToken is nil when no session exists.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Confirmed    bool
	RefreshToken *string
	CreatedAt    time.Time
}
