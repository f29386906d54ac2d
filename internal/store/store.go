// Package store defines the persistence interfaces the auth and contact
// services depend on, together with their PostgreSQL implementations.
package store

import (
	"context"
	"errors"

	"contactsss/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("record already exists")
)

// UserStore is the source of truth for identity records. Implementations
// must make RotateRefreshToken an atomic compare-and-swap so two concurrent
// refresh calls presenting the same token can never both rotate.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, username, email, passwordHash string) (*model.User, error)

	// SetRefreshToken overwrites the stored refresh token. A nil token
	// clears it, forcing re-login.
	SetRefreshToken(ctx context.Context, email string, token *string) error

	// RotateRefreshToken swaps old for next only if old is still the
	// stored value. It reports whether the swap happened.
	RotateRefreshToken(ctx context.Context, email, old, next string) (bool, error)

	ConfirmEmail(ctx context.Context, email string) error
	SetPasswordHash(ctx context.Context, email, hash string) error
}

// ContactStore persists per-user address-book entries.
type ContactStore interface {
	List(ctx context.Context, userID int64, offset, limit int) ([]model.Contact, error)

	// Search returns the first contact of the user whose fullname or email
	// contains query.
	Search(ctx context.Context, userID int64, query string) (*model.Contact, error)

	// UpcomingBirthdays returns the user's contacts whose birthday falls
	// between today and today+daysRange, capped at the end of the year.
	UpcomingBirthdays(ctx context.Context, userID int64, daysRange int) ([]model.Contact, error)

	Create(ctx context.Context, c *model.Contact) (*model.Contact, error)
	Update(ctx context.Context, userID, contactID int64, c *model.Contact) (*model.Contact, error)
	Delete(ctx context.Context, userID, contactID int64) (*model.Contact, error)
}
