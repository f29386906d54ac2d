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

// PostgresUserStore implements [UserStore] on PostgreSQL.
type PostgresUserStore struct {
	db DB
}

// NewPostgresUserStore creates a [PostgresUserStore] over db.
func NewPostgresUserStore(db DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

const userColumns = "id, username, email, password_hash, confirmed, refresh_token, created_at"

func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	u := &model.User{}
	err := s.db.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Confirmed, &u.RefreshToken, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (s *PostgresUserStore) Create(ctx context.Context, username, email, passwordHash string) (*model.User, error) {
	query := `INSERT INTO users (username, email, password_hash)
	          VALUES ($1, $2, $3)
	          RETURNING ` + userColumns

	u := &model.User{}
	err := s.db.QueryRow(ctx, query, username, email, passwordHash).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Confirmed, &u.RefreshToken, &u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (s *PostgresUserStore) SetRefreshToken(ctx context.Context, email string, token *string) error {
	query := `UPDATE users SET refresh_token = $1 WHERE email = $2`

	tag, err := s.db.Exec(ctx, query, token, email)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RotateRefreshToken is the conditional update that closes the refresh
// check-then-set race: the swap succeeds only if old is still stored.
func (s *PostgresUserStore) RotateRefreshToken(ctx context.Context, email, old, next string) (bool, error) {
	query := `UPDATE users SET refresh_token = $1 WHERE email = $2 AND refresh_token = $3`

	tag, err := s.db.Exec(ctx, query, next, email, old)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresUserStore) ConfirmEmail(ctx context.Context, email string) error {
	query := `UPDATE users SET confirmed = TRUE WHERE email = $1`

	tag, err := s.db.Exec(ctx, query, email)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresUserStore) SetPasswordHash(ctx context.Context, email, hash string) error {
	query := `UPDATE users SET password_hash = $1 WHERE email = $2`

	tag, err := s.db.Exec(ctx, query, hash, email)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
