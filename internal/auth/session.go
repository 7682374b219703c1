package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"tally/internal/storage"
)

// Sessions issues and resolves opaque session tokens persisted in the
// store. Tokens are random, never derived from user data.
type Sessions struct {
	repo *storage.Repository
	ttl  time.Duration
}

func NewSessions(repo *storage.Repository, ttl time.Duration) *Sessions {
	return &Sessions{repo: repo, ttl: ttl}
}

// Issue creates a new session for a user and returns the token and its
// expiry.
func (s *Sessions) Issue(ctx context.Context, userID int64) (token string, expiresAt time.Time, err error) {
	token, err = newToken()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate session token: %w", err)
	}
	expiresAt = time.Now().Add(s.ttl)
	if err := s.repo.CreateSession(ctx, token, userID, expiresAt); err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Resolve maps a session token to the owner identifier the rest of the
// system trusts. Unknown or expired tokens yield storage.ErrNotFound.
func (s *Sessions) Resolve(ctx context.Context, token string) (owner string, err error) {
	userID, err := s.repo.SessionUserID(ctx, token, time.Now())
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(userID, 10), nil
}

// Revoke deletes a session token.
func (s *Sessions) Revoke(ctx context.Context, token string) error {
	return s.repo.DeleteSession(ctx, token)
}

// PurgeExpired removes sessions past their expiry.
func (s *Sessions) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpiredSessions(ctx, time.Now())
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
