package store

import (
	"database/sql"
	"errors"

	"github.com/zorasurvey/surveyd/internal/apperr"
	"github.com/zorasurvey/surveyd/internal/model"
)

// InsertSubmission stores a submission and all of its responses in one
// transaction. When the submission is attached to a session, the session's
// response count is recomputed with a COUNT(*) inside the same transaction,
// so concurrent submitters cannot lose updates.
func (s *Store) InsertSubmission(sub model.Submission) error {
	if len(sub.Responses) == 0 {
		return apperr.Validation("submission must contain at least one response")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return apperr.Storage("begin transaction", err)
	}
	defer tx.Rollback()

	// Every response must reference a known problem.
	for _, r := range sub.Responses {
		var one int
		err := tx.QueryRow(`SELECT 1 FROM problems WHERE id = ?`, r.ProblemID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.Validation("response references unknown problem %d", r.ProblemID)
		}
		if err != nil {
			return apperr.Storage("check problem", err)
		}
	}

	if sub.SessionID != "" {
		var deleted bool
		err := tx.QueryRow(`SELECT is_deleted FROM sessions WHERE id = ?`, sub.SessionID).Scan(&deleted)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("session %q not found", sub.SessionID)
		}
		if err != nil {
			return apperr.Storage("check session", err)
		}
	}

	var sessionID any
	if sub.SessionID != "" {
		sessionID = sub.SessionID
	}
	_, err = tx.Exec(
		`INSERT INTO submissions (id, session_id, timestamp, respondent_name, respondent_email, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ID, sessionID, sub.Timestamp, sub.RespondentName, sub.RespondentEmail, sub.Notes,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("submission %q already exists", sub.ID)
		}
		return apperr.Storage("insert submission", err)
	}

	for _, r := range sub.Responses {
		_, err := tx.Exec(
			`INSERT INTO responses (submission_id, problem_id, frequency, severity, text_response)
			 VALUES (?, ?, ?, ?, ?)`,
			sub.ID, r.ProblemID, r.Frequency, r.Severity, r.TextResponse,
		)
		if err != nil {
			return apperr.Storage("insert response", err)
		}
	}

	if sub.SessionID != "" {
		_, err := tx.Exec(
			`UPDATE sessions
			 SET response_count = (SELECT COUNT(*) FROM submissions WHERE session_id = ?)
			 WHERE id = ?`,
			sub.SessionID, sub.SessionID,
		)
		if err != nil {
			return apperr.Storage("update response count", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Storage("commit submission", err)
	}
	return nil
}

// GetSubmission returns a single submission with its responses. Submissions
// belonging to soft-deleted sessions remain retrievable by ID.
func (s *Store) GetSubmission(id string) (model.Submission, error) {
	var sub model.Submission
	var sessionID sql.NullString
	err := s.db.QueryRow(
		`SELECT id, session_id, timestamp, respondent_name, respondent_email, notes
		 FROM submissions WHERE id = ?`, id,
	).Scan(&sub.ID, &sessionID, &sub.Timestamp, &sub.RespondentName, &sub.RespondentEmail, &sub.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, apperr.NotFound("submission %q not found", id)
	}
	if err != nil {
		return sub, apperr.Storage("get submission", err)
	}
	sub.SessionID = sessionID.String

	responses, err := s.responsesFor([]string{sub.ID})
	if err != nil {
		return sub, err
	}
	sub.Responses = responses[sub.ID]
	return sub, nil
}

// ListSubmissions returns every submission with nested responses, newest
// first. Submissions of soft-deleted sessions are included: data is retained
// for audit.
func (s *Store) ListSubmissions() ([]model.Submission, error) {
	return s.listSubmissions(`SELECT id, session_id, timestamp, respondent_name, respondent_email, notes
		FROM submissions ORDER BY timestamp DESC`)
}

// ListSessionSubmissions returns the submissions attached to one session,
// newest first.
func (s *Store) ListSessionSubmissions(sessionID string) ([]model.Submission, error) {
	return s.listSubmissions(`SELECT id, session_id, timestamp, respondent_name, respondent_email, notes
		FROM submissions WHERE session_id = ? ORDER BY timestamp DESC`, sessionID)
}

func (s *Store) listSubmissions(query string, args ...any) ([]model.Submission, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperr.Storage("list submissions", err)
	}
	defer rows.Close()

	var subs []model.Submission
	var ids []string
	for rows.Next() {
		var sub model.Submission
		var sessionID sql.NullString
		if err := rows.Scan(&sub.ID, &sessionID, &sub.Timestamp,
			&sub.RespondentName, &sub.RespondentEmail, &sub.Notes); err != nil {
			return nil, apperr.Storage("scan submission", err)
		}
		sub.SessionID = sessionID.String
		subs = append(subs, sub)
		ids = append(ids, sub.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list submissions", err)
	}

	responses, err := s.responsesFor(ids)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		subs[i].Responses = responses[subs[i].ID]
	}
	return subs, nil
}

// responsesFor loads the responses of the given submissions in one query,
// keyed by submission ID.
func (s *Store) responsesFor(submissionIDs []string) (map[string][]model.Response, error) {
	result := make(map[string][]model.Response, len(submissionIDs))
	if len(submissionIDs) == 0 {
		return result, nil
	}

	placeholders := "?"
	args := []any{submissionIDs[0]}
	for _, id := range submissionIDs[1:] {
		placeholders += ", ?"
		args = append(args, id)
	}

	rows, err := s.db.Query(
		`SELECT submission_id, problem_id, frequency, severity, text_response
		 FROM responses WHERE submission_id IN (`+placeholders+`) ORDER BY id`, args...,
	)
	if err != nil {
		return nil, apperr.Storage("list responses", err)
	}
	defer rows.Close()

	for rows.Next() {
		var subID string
		var r model.Response
		if err := rows.Scan(&subID, &r.ProblemID, &r.Frequency, &r.Severity, &r.TextResponse); err != nil {
			return nil, apperr.Storage("scan response", err)
		}
		result[subID] = append(result[subID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list responses", err)
	}
	return result, nil
}
