package model

import "time"

// Contact is an address-book entry owned by a single user.
type Contact struct {
	ID          int64
	UserID      int64
	Fullname    string
	Email       string
	PhoneNumber string
	Birthday    *time.Time
	Additional  string
	Avatar      string
}
