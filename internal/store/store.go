package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store wraps the relational store. All multi-row writes go through
// transactions so a submission and its responses commit together or not
// at all.
type Store struct {
	db *sql.DB
}

// New opens the database at dsn and applies the schema.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		response_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		session_id TEXT,
		timestamp DATETIME NOT NULL,
		respondent_name TEXT NOT NULL DEFAULT '',
		respondent_email TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);

	CREATE TABLE IF NOT EXISTS responses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		submission_id TEXT NOT NULL,
		problem_id INTEGER NOT NULL,
		frequency INTEGER,
		severity INTEGER,
		text_response TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (submission_id) REFERENCES submissions(id)
	);

	CREATE TABLE IF NOT EXISTS configs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sections (
		id TEXT PRIMARY KEY,
		config_id TEXT NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		display_order INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (config_id) REFERENCES configs(id)
	);

	CREATE TABLE IF NOT EXISTS problems (
		id INTEGER PRIMARY KEY,
		section_id TEXT NOT NULL,
		title TEXT NOT NULL,
		question_type TEXT NOT NULL DEFAULT 'slider',
		options TEXT,
		display_order INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (section_id) REFERENCES sections(id)
	);

	CREATE TABLE IF NOT EXISTS survey_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_tokens (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_session ON submissions(session_id);
	CREATE INDEX IF NOT EXISTS idx_responses_submission ON responses(submission_id);
	CREATE INDEX IF NOT EXISTS idx_responses_problem ON responses(problem_id);
	`
	_, err := s.db.Exec(schema)
	return err
}
