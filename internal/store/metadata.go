package store

import (
	"database/sql"
	"errors"

	"github.com/zorasurvey/surveyd/internal/apperr"
)

// Metadata keys used by the server.
const (
	// MetaAdminPasswordHash is the bcrypt hash of the operator password.
	MetaAdminPasswordHash = "admin_password_hash"
	// MetaConfigImportHash records the sha256 of the last imported survey
	// config file so an unchanged file is not re-imported.
	MetaConfigImportHash = "config_import_hash"
)

// SetMetadata upserts a key-value pair in the survey_metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO survey_metadata (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	if err != nil {
		return apperr.Storage("set metadata", err)
	}
	return nil
}

// GetMetadata returns the value for a metadata key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM survey_metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Storage("get metadata", err)
	}
	return value, nil
}
