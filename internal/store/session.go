package store

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/zorasurvey/surveyd/internal/apperr"
	"github.com/zorasurvey/surveyd/internal/model"
)

// CreateSession inserts a new session. The caller supplies the ID and the
// normalized creation timestamp; the row starts active, not deleted, with a
// zero response count.
func (s *Store) CreateSession(sess model.Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, name, description, created_at, is_active, is_deleted, response_count)
		 VALUES (?, ?, ?, ?, 1, 0, 0)`,
		sess.ID, sess.Name, sess.Description, sess.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("session %q already exists", sess.ID)
		}
		return apperr.Storage("create session", err)
	}
	return nil
}

// GetSession returns a session by ID. Soft-deleted sessions remain
// retrievable by direct lookup.
func (s *Store) GetSession(id string) (model.Session, error) {
	var sess model.Session
	err := s.db.QueryRow(
		`SELECT id, name, description, created_at, is_active, is_deleted, response_count
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Name, &sess.Description, &sess.CreatedAt,
		&sess.IsActive, &sess.IsDeleted, &sess.ResponseCount)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, apperr.NotFound("session %q not found", id)
	}
	if err != nil {
		return sess, apperr.Storage("get session", err)
	}
	return sess, nil
}

// ListSessions returns all non-deleted sessions, newest first.
func (s *Store) ListSessions() ([]model.Session, error) {
	rows, err := s.db.Query(
		`SELECT id, name, description, created_at, is_active, is_deleted, response_count
		 FROM sessions WHERE is_deleted = 0 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, apperr.Storage("list sessions", err)
	}
	defer rows.Close()
	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		if err := rows.Scan(&sess.ID, &sess.Name, &sess.Description, &sess.CreatedAt,
			&sess.IsActive, &sess.IsDeleted, &sess.ResponseCount); err != nil {
			return nil, apperr.Storage("scan session", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list sessions", err)
	}
	return sessions, nil
}

// SetSessionActive toggles the active flag and returns the updated session.
func (s *Store) SetSessionActive(id string, active bool) (model.Session, error) {
	res, err := s.db.Exec(`UPDATE sessions SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return model.Session{}, apperr.Storage("update session", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Session{}, apperr.NotFound("session %q not found", id)
	}
	return s.GetSession(id)
}

// SoftDeleteSession marks a session deleted and inactive. Its submissions
// and historical response count are retained.
func (s *Store) SoftDeleteSession(id string) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET is_deleted = 1, is_active = 0 WHERE id = ?`, id,
	)
	if err != nil {
		return apperr.Storage("delete session", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("session %q not found", id)
	}
	return nil
}

// isUniqueViolation reports whether err is a primary-key or unique
// constraint failure. The modernc driver surfaces these as plain error
// strings, so match on the SQLite message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
