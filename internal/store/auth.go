package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/zorasurvey/surveyd/internal/apperr"
	"github.com/zorasurvey/surveyd/internal/model"
)

const authTokenTTL = 24 * time.Hour

// CreateAuthToken issues a new admin login token.
func (s *Store) CreateAuthToken() (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", apperr.Storage("generate token", err)
	}
	now := time.Now()
	_, err = s.db.Exec(
		`INSERT INTO auth_tokens (id, created_at, expires_at) VALUES (?, ?, ?)`,
		token, now, now.Add(authTokenTTL),
	)
	if err != nil {
		return "", apperr.Storage("create auth token", err)
	}
	return token, nil
}

// GetAuthToken returns the token record, or nil if unknown or expired.
// Expired tokens are removed on the way out.
func (s *Store) GetAuthToken(token string) (*model.AuthToken, error) {
	var t model.AuthToken
	err := s.db.QueryRow(
		`SELECT id, created_at, expires_at FROM auth_tokens WHERE id = ?`, token,
	).Scan(&t.ID, &t.CreatedAt, &t.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage("get auth token", err)
	}
	if time.Now().After(t.ExpiresAt) {
		_ = s.DeleteAuthToken(token)
		return nil, nil
	}
	return &t, nil
}

// DeleteAuthToken revokes a token.
func (s *Store) DeleteAuthToken(token string) error {
	_, err := s.db.Exec(`DELETE FROM auth_tokens WHERE id = ?`, token)
	if err != nil {
		return apperr.Storage("delete auth token", err)
	}
	return nil
}

// CleanupExpiredTokens removes all expired admin tokens.
func (s *Store) CleanupExpiredTokens() error {
	_, err := s.db.Exec(`DELETE FROM auth_tokens WHERE expires_at < ?`, time.Now())
	if err != nil {
		return apperr.Storage("cleanup auth tokens", err)
	}
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
