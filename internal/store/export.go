package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/zorasurvey/surveyd/internal/model"
)

// ExportRows flattens every submission into one row per response, resolving
// problem titles from the full catalog. Responses whose problem was deleted
// keep their row with an "Unknown" title.
func (s *Store) ExportRows() ([]model.ExportRow, error) {
	subs, err := s.ListSubmissions()
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	problems, err := s.AllProblems()
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}

	byID := make(map[int64]model.Problem, len(problems))
	for _, p := range problems {
		byID[p.ID] = p
	}

	var rows []model.ExportRow
	for _, sub := range subs {
		for _, r := range sub.Responses {
			row := model.ExportRow{
				SubmissionID:    sub.ID,
				SessionID:       sub.SessionID,
				Timestamp:       sub.Timestamp,
				RespondentName:  sub.RespondentName,
				RespondentEmail: sub.RespondentEmail,
				ProblemID:       r.ProblemID,
				ProblemTitle:    "Unknown",
				Frequency:       r.Frequency,
				Severity:        r.Severity,
				TextResponse:    r.TextResponse,
				Notes:           sub.Notes,
			}
			if p, ok := byID[r.ProblemID]; ok {
				row.ProblemTitle = p.Title
				row.QuestionType = p.QuestionType
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// WriteCSV writes export rows in CSV form with a header line.
func WriteCSV(w io.Writer, rows []model.ExportRow) error {
	cw := csv.NewWriter(w)
	header := []string{
		"submission_id", "session_id", "timestamp",
		"respondent_name", "respondent_email",
		"problem_id", "problem_title", "question_type",
		"frequency", "severity", "text_response", "notes",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.SubmissionID,
			row.SessionID,
			row.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
			row.RespondentName,
			row.RespondentEmail,
			strconv.FormatInt(row.ProblemID, 10),
			row.ProblemTitle,
			string(row.QuestionType),
			formatRating(row.Frequency),
			formatRating(row.Severity),
			row.TextResponse,
			row.Notes,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatRating(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
