package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/contestor/internal/model"
)

// Sessions slide: each authenticated request past the halfway point of the
// TTL pushes the expiry forward by a full TTL.
const (
	sessionTTL       = 24 * time.Hour
	sessionTokenSize = 32
)

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CreateAuthSession issues an opaque session token for the user.
func (s *Store) CreateAuthSession(userID int64) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	if _, err := s.db.Exec(
		`INSERT INTO auth_sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		token, userID, now, now.Add(sessionTTL),
	); err != nil {
		return "", fmt.Errorf("create auth session: %w", err)
	}
	return token, nil
}

// GetAuthSession resolves a token to its session. Expired or unknown tokens
// yield (nil, nil); live sessions past half their TTL are extended.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	err := s.db.QueryRow(
		`SELECT id, user_id, created_at, expires_at FROM auth_sessions WHERE id = ?`, token,
	).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if now.After(sess.ExpiresAt) {
		_ = s.DeleteAuthSession(token)
		return nil, nil
	}
	if sess.ExpiresAt.Sub(now) < sessionTTL/2 {
		sess.ExpiresAt = now.Add(sessionTTL)
		if _, err := s.db.Exec(
			`UPDATE auth_sessions SET expires_at = ? WHERE id = ?`, sess.ExpiresAt, token,
		); err != nil {
			return nil, fmt.Errorf("extend auth session: %w", err)
		}
	}
	return &sess, nil
}

// DeleteAuthSession revokes a token. Unknown tokens are not an error.
func (s *Store) DeleteAuthSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, token)
	return err
}

// CleanupExpiredSessions purges sessions whose expiry has passed. Called at
// startup; live sessions are checked on access anyway.
func (s *Store) CleanupExpiredSessions() error {
	_, err := s.db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, time.Now())
	return err
}
