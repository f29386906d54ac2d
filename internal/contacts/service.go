// Package contacts is the data-access glue between the contact handlers
// and the contact store. Every operation is scoped to the owning user.
package contacts

import (
	"context"
	"strings"

	"contactsss/internal/model"
	"contactsss/internal/store"
)

const (
	defaultListLimit     = 20
	defaultBirthdayRange = 7
)

// Service exposes the contact operations behind the authorization gate.
type Service struct {
	contacts store.ContactStore
}

// NewService creates a contact [Service] over the given store.
func NewService(contacts store.ContactStore) *Service {
	return &Service{contacts: contacts}
}

// List returns a page of the user's contacts. A non-positive limit
// selects the default page size.
func (s *Service) List(ctx context.Context, userID int64, skip, limit int) ([]model.Contact, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.contacts.List(ctx, userID, skip, limit)
}

// Find returns the first of the user's contacts whose fullname or email
// contains query.
func (s *Service) Find(ctx context.Context, userID int64, query string) (*model.Contact, error) {
	return s.contacts.Search(ctx, userID, strings.TrimSpace(query))
}

// UpcomingBirthdays returns contacts with a birthday in the next daysRange
// days, truncated at the end of the current year.
func (s *Service) UpcomingBirthdays(ctx context.Context, userID int64, daysRange int) ([]model.Contact, error) {
	if daysRange <= 0 {
		daysRange = defaultBirthdayRange
	}
	return s.contacts.UpcomingBirthdays(ctx, userID, daysRange)
}

// Create stores a new contact owned by userID.
func (s *Service) Create(ctx context.Context, userID int64, c *model.Contact) (*model.Contact, error) {
	c.UserID = userID
	return s.contacts.Create(ctx, c)
}

// Update replaces the fields of the user's contact contactID.
func (s *Service) Update(ctx context.Context, userID, contactID int64, c *model.Contact) (*model.Contact, error) {
	return s.contacts.Update(ctx, userID, contactID, c)
}

// Delete removes the user's contact contactID and returns the removed record.
func (s *Service) Delete(ctx context.Context, userID, contactID int64) (*model.Contact, error) {
	return s.contacts.Delete(ctx, userID, contactID)
}
