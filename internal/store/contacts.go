package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"contactsss/internal/model"
)

// PostgresContactStore implements [ContactStore] on PostgreSQL.
type PostgresContactStore struct {
	db DB
}

// NewPostgresContactStore creates a [PostgresContactStore] over db.
func NewPostgresContactStore(db DB) *PostgresContactStore {
	return &PostgresContactStore{db: db}
}

const contactColumns = "id, user_id, fullname, COALESCE(email, ''), COALESCE(phone_number, ''), birthday, COALESCE(additional, ''), COALESCE(avatar, '')"

func scanContact(row pgx.Row) (*model.Contact, error) {
	c := &model.Contact{}
	err := row.Scan(&c.ID, &c.UserID, &c.Fullname, &c.Email, &c.PhoneNumber, &c.Birthday, &c.Additional, &c.Avatar)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func collectContacts(rows pgx.Rows) ([]model.Contact, error) {
	defer rows.Close()

	var out []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (s *PostgresContactStore) List(ctx context.Context, userID int64, offset, limit int) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts
	          WHERE user_id = $1 ORDER BY id OFFSET $2 LIMIT $3`

	rows, err := s.db.Query(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return collectContacts(rows)
}

func (s *PostgresContactStore) Search(ctx context.Context, userID int64, query string) (*model.Contact, error) {
	// Fullname matches take precedence over email matches.
	stmt := `SELECT ` + contactColumns + ` FROM contacts
	         WHERE user_id = $1 AND (fullname LIKE '%' || $2 || '%' OR email LIKE '%' || $2 || '%')
	         ORDER BY (fullname LIKE '%' || $2 || '%') DESC, id
	         LIMIT 1`

	c, err := scanContact(s.db.QueryRow(ctx, stmt, userID, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (s *PostgresContactStore) UpcomingBirthdays(ctx context.Context, userID int64, daysRange int) ([]model.Contact, error) {
	// Window is truncated at the end of the current year, matching the
	// MM-DD comparison this query performs.
	query := `SELECT ` + contactColumns + ` FROM contacts
	          WHERE user_id = $1
	            AND birthday IS NOT NULL
	            AND to_char(birthday, 'MM-DD') BETWEEN to_char(CURRENT_DATE, 'MM-DD')
	                AND to_char(LEAST(CURRENT_DATE + $2::int, date_trunc('year', CURRENT_DATE) + interval '1 year' - interval '1 day'), 'MM-DD')
	          ORDER BY to_char(birthday, 'MM-DD')`

	rows, err := s.db.Query(ctx, query, userID, daysRange)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return collectContacts(rows)
}

func (s *PostgresContactStore) Create(ctx context.Context, c *model.Contact) (*model.Contact, error) {
	query := `INSERT INTO contacts (user_id, fullname, email, phone_number, birthday, additional, avatar)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING ` + contactColumns

	created, err := scanContact(s.db.QueryRow(ctx, query,
		c.UserID, c.Fullname, c.Email, c.PhoneNumber, c.Birthday, c.Additional, c.Avatar,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

func (s *PostgresContactStore) Update(ctx context.Context, userID, contactID int64, c *model.Contact) (*model.Contact, error) {
	query := `UPDATE contacts
	          SET fullname = $1, email = $2, phone_number = $3, birthday = $4, additional = $5, avatar = $6
	          WHERE user_id = $7 AND id = $8
	          RETURNING ` + contactColumns

	updated, err := scanContact(s.db.QueryRow(ctx, query,
		c.Fullname, c.Email, c.PhoneNumber, c.Birthday, c.Additional, c.Avatar, userID, contactID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return updated, nil
}

func (s *PostgresContactStore) Delete(ctx context.Context, userID, contactID int64) (*model.Contact, error) {
	query := `DELETE FROM contacts WHERE user_id = $1 AND id = $2 RETURNING ` + contactColumns

	deleted, err := scanContact(s.db.QueryRow(ctx, query, userID, contactID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return deleted, nil
}
