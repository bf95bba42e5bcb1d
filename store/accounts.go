package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dotogether/models"
)

// AccountStore persists user records in the accounts database. Passwords and
// security answers arrive here already hashed; plaintext never touches this
// layer.
type AccountStore struct {
	pool *pgxpool.Pool
}

func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

const uniqueViolation = "23505"

// CreateUser inserts a new account. Returns ErrDuplicateUsername when the
// username is already taken.
func (s *AccountStore) CreateUser(ctx context.Context, username, name, passwordHash, securityHash string) (models.User, error) {
	u := models.User{
		ID:           uuid.New(),
		Username:     username,
		Name:         name,
		PasswordHash: passwordHash,
		SecurityHash: securityHash,
	}

	stmt := `INSERT INTO users (id, username, name, password_hash, security) VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, stmt, u.ID, u.Username, u.Name, u.PasswordHash, u.SecurityHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.User{}, ErrDuplicateUsername
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

func (s *AccountStore) UserByUsername(ctx context.Context, username string) (models.User, error) {
	stmt := `SELECT id, username, name, password_hash, security FROM users WHERE username = $1`
	return s.scanUser(s.pool.QueryRow(ctx, stmt, username))
}

func (s *AccountStore) UserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	stmt := `SELECT id, username, name, password_hash, security FROM users WHERE id = $1`
	return s.scanUser(s.pool.QueryRow(ctx, stmt, id))
}

// UpdateProfile overwrites the mutable profile fields. The caller decides
// whether passwordHash is the old hash or a freshly generated one.
func (s *AccountStore) UpdateProfile(ctx context.Context, id uuid.UUID, name, username, passwordHash string) error {
	stmt := `UPDATE users SET name = $1, username = $2, password_hash = $3 WHERE id = $4`
	tag, err := s.pool.Exec(ctx, stmt, name, username, passwordHash, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword replaces only the password hash, used by the reset flow.
func (s *AccountStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *AccountStore) scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash, &u.SecurityHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}
