package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
)

// User is a registered account identified by username.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Token     string `json:"token"`
	CreatedAt string `json:"created_at"`
}

// UserStorage persists user accounts.
type UserStorage struct {
	storage *Storage
}

// NewUserStorage creates a user store over the shared handle.
func NewUserStorage(storage *Storage) *UserStorage {
	return &UserStorage{storage: storage}
}

// ErrDuplicateUser reports a username/email/token uniqueness violation.
var ErrDuplicateUser = fmt.Errorf("user already exists")

// Create inserts a new user and returns the stored record.
func (u *UserStorage) Create(username, email, token string) (*User, error) {
	ts := now()
	res, err := u.storage.db.Exec(
		`INSERT INTO users (username, email, token, created_at) VALUES (?, ?, ?, ?)`,
		username, email, token, ts)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted user id: %w", err)
	}

	return &User{
		ID:        id,
		Username:  username,
		Email:     email,
		Token:     token,
		CreatedAt: ts,
	}, nil
}

// GetByUsername returns the user with the given username, or nil when
// no such user exists.
func (u *UserStorage) GetByUsername(username string) (*User, error) {
	row := u.storage.db.QueryRow(
		`SELECT id, username, email, token, created_at FROM users WHERE username = ?`,
		username)

	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Token, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}
