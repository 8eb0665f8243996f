package model

import "time"

// ExportRow is one response flattened for CSV export: submission context
// plus the resolved problem title. Problems deleted after the response was
// recorded keep the row with a placeholder title.
type ExportRow struct {
	SubmissionID    string
	SessionID       string
	Timestamp       time.Time
	RespondentName  string
	RespondentEmail string
	ProblemID       int64
	ProblemTitle    string
	QuestionType    QuestionType
	Frequency       *int
	Severity        *int
	TextResponse    string
	Notes           string
}
