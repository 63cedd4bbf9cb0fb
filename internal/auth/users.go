package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// UserStore manages credential records in PostgreSQL. Passwords are stored
// as bcrypt hashes; plaintext never leaves this package.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store backed by the given database handle.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// Register creates a new user with a bcrypt-hashed password and returns the
// new identity. Returns ErrUserExists if the username is taken.
func (s *UserStore) Register(ctx context.Context, username, password, displayName string) (Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, fmt.Errorf("auth: hash password: %w", err)
	}

	userID := uuid.New().String()
	if displayName == "" {
		displayName = username
	}

	const query = `
		INSERT INTO users (id, username, password_hash, display_name)
		VALUES ($1, $2, $3, $4)`

	if _, err := s.db.ExecContext(ctx, query, userID, username, hash, displayName); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return Identity{}, ErrUserExists
		}
		return Identity{}, fmt.Errorf("auth: insert user: %w", err)
	}

	return Identity{UserID: userID, DisplayName: displayName}, nil
}

// Authenticate checks a username/password pair and returns the identity on
// success. A missing user and a wrong password both map to
// ErrInvalidCredentials so the response does not leak which usernames exist.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	const query = `
		SELECT id, password_hash, display_name
		FROM users
		WHERE username = $1`

	var (
		userID      string
		hash        []byte
		displayName string
	)
	err := s.db.QueryRowContext(ctx, query, username).Scan(&userID, &hash, &displayName)
	if errors.Is(err, sql.ErrNoRows) {
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, fmt.Errorf("auth: query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}

	return Identity{UserID: userID, DisplayName: displayName}, nil
}
