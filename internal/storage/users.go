package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// User is a stored account row. PasswordHash is a bcrypt hash, never the
// plain password.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser inserts a new account and returns its id. A duplicate email
// yields ErrEmailTaken.
func (r *Repository) CreateUser(ctx context.Context, name, email, passwordHash string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		name, email, passwordHash, time.Now().UTC().Format(timeFormat))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "User registered", "id", id, "email", email)
	return id, nil
}

// UserByEmail returns the account for an email, or ErrNotFound.
func (r *Repository) UserByEmail(ctx context.Context, email string) (User, error) {
	var (
		u         User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	if u.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return User{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return u, nil
}

// CreateSession persists a session token for a user.
func (r *Repository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (token, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)`,
		token, userID, expiresAt.UTC().Format(timeFormat),
		time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// SessionUserID resolves a session token to a user id. Missing or expired
// sessions yield ErrNotFound.
func (r *Repository) SessionUserID(ctx context.Context, token string, now time.Time) (int64, error) {
	var (
		userID    int64
		expiresAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get session: %w", err)
	}
	exp, err := time.Parse(timeFormat, expiresAt)
	if err != nil {
		return 0, fmt.Errorf("parse expires_at %q: %w", expiresAt, err)
	}
	if !now.Before(exp) {
		return 0, ErrNotFound
	}
	return userID, nil
}

// DeleteSession removes a session token; deleting an unknown token is not
// an error.
func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpiredSessions drops sessions past their expiry and returns how
// many were removed.
func (r *Repository) PurgeExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, now.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
