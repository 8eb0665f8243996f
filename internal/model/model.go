package model

import "time"

// Rating scale bounds for slider questions. DefaultRating is the midpoint
// used for questions that have no responses yet.
const (
	MinRating     = 1
	MaxRating     = 10
	DefaultRating = 5
)

// QuestionType determines how a problem is presented and how its responses
// are encoded.
type QuestionType string

const (
	// TypeSlider is a frequency/severity rating pair on a 1-10 scale.
	TypeSlider QuestionType = "slider"
	// TypeSingleChoice stores the selected option string verbatim.
	TypeSingleChoice QuestionType = "single-choice"
	// TypeMultipleChoice stores all selected option strings joined with a
	// sentinel delimiter.
	TypeMultipleChoice QuestionType = "multiple-choice"
	// TypeSliderLabeled is a slider whose positions are labeled options; the
	// stored frequency is a 1-based index into the options list.
	TypeSliderLabeled QuestionType = "slider-labeled"
)

// IsChoice reports whether responses to this question type are counted as
// option selections rather than averaged as ratings.
func (t QuestionType) IsChoice() bool {
	switch t {
	case TypeSingleChoice, TypeMultipleChoice, TypeSliderLabeled:
		return true
	}
	return false
}

// Session is an operator-created survey run with its own response bucket.
type Session struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	IsActive      bool      `json:"isActive"`
	IsDeleted     bool      `json:"-"`
	ResponseCount int       `json:"responseCount"`
}

// Submission is one respondent's complete set of answers. SessionID is empty
// for unattached submissions.
type Submission struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"sessionId,omitempty"`
	Timestamp       time.Time  `json:"timestamp"`
	RespondentName  string     `json:"respondentName,omitempty"`
	RespondentEmail string     `json:"respondentEmail,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	Responses       []Response `json:"responses"`
}

// Response is one respondent's answer to one problem. Which fields are
// populated depends on the owning problem's question type: slider questions
// set Frequency and Severity, choice questions set TextResponse, and
// labeled sliders set Frequency to a 1-based option index.
type Response struct {
	ProblemID    int64  `json:"problemId"`
	Frequency    *int   `json:"frequency,omitempty"`
	Severity     *int   `json:"severity,omitempty"`
	TextResponse string `json:"textResponse,omitempty"`
}

// Config is one version of the survey definition. At most one config is
// presented to respondents at a time: the most recently created active row.
type Config struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Section groups problems within a config, ordered by DisplayOrder.
type Section struct {
	ID           string `json:"id"`
	ConfigID     string `json:"configId"`
	Name         string `json:"name"`
	Color        string `json:"color,omitempty"`
	DisplayOrder int    `json:"displayOrder"`
}

// Problem is a single survey question. IDs are globally unique across all
// sections, not just within their own section.
type Problem struct {
	ID           int64        `json:"id"`
	SectionID    string       `json:"sectionId"`
	Title        string       `json:"title"`
	QuestionType QuestionType `json:"questionType,omitempty"`
	Options      []string     `json:"options,omitempty"`
	DisplayOrder int          `json:"displayOrder"`
}

// SectionView is a section with its problems resolved, as served to clients.
type SectionView struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	Problems []Problem `json:"problems"`
}

// SurveyView is the fully assembled active survey structure
// (config -> sections -> problems).
type SurveyView struct {
	ConfigID    string        `json:"configId"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Sections    []SectionView `json:"sections"`
}

// Problems flattens the view's sections into a single problem catalog,
// preserving section order.
func (v SurveyView) Problems() []Problem {
	var problems []Problem
	for _, sec := range v.Sections {
		problems = append(problems, sec.Problems...)
	}
	return problems
}

// AggregatePoint is the computed (frequency mean, severity mean) pair for
// one slider question, used for priority-matrix plots.
type AggregatePoint struct {
	ID    int64   `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Group string  `json:"group"`
	Title string  `json:"title"`
}

// Score is the priority score used for ranking: higher means both frequent
// and severe.
func (p AggregatePoint) Score() float64 {
	return p.X * p.Y
}

// OptionCount is one bar of a choice-distribution chart.
type OptionCount struct {
	Option string `json:"option"`
	Count  int    `json:"count"`
}

// ChoiceDistribution maps each option of a choice question to the number of
// respondents who selected it, sorted by count descending.
type ChoiceDistribution struct {
	ProblemID    int64         `json:"problemId"`
	Title        string        `json:"title"`
	QuestionType QuestionType  `json:"questionType"`
	Total        int           `json:"total"`
	Counts       []OptionCount `json:"counts"`
}

// ProblemRank is one entry of the top-problems ranking fed to the AI summary.
type ProblemRank struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Section      string  `json:"section"`
	AvgFrequency float64 `json:"avgFrequency"`
	AvgSeverity  float64 `json:"avgSeverity"`
	Score        float64 `json:"score"`
}

// AuthToken is an opaque admin login token.
type AuthToken struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// SummaryResult is the AI summary payload returned to clients.
type SummaryResult struct {
	Summary     string          `json:"summary"`
	TopProblems []ProblemRank   `json:"topProblems"`
	Metadata    SummaryMetadata `json:"metadata"`
}

// SummaryMetadata records what the summary was computed over.
type SummaryMetadata struct {
	ResponseCount int       `json:"responseCount"`
	GeneratedAt   time.Time `json:"generatedAt"`
}
