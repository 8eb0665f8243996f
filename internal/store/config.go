package store

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/zorasurvey/surveyd/internal/apperr"
	"github.com/zorasurvey/surveyd/internal/model"
)

// sectionPalette supplies deterministic colors for sections that have none:
// the Nth section of a config always gets the Nth palette entry, so repeated
// fetches render identically.
var sectionPalette = []string{
	"#3b82f6", "#10b981", "#8b5cf6", "#f59e0b", "#ef4444",
	"#06b6d4", "#ec4899", "#84cc16", "#f97316", "#14b8a6",
}

// CreateConfig inserts a survey definition row.
func (s *Store) CreateConfig(cfg model.Config) error {
	_, err := s.db.Exec(
		`INSERT INTO configs (id, title, description, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		cfg.ID, cfg.Title, cfg.Description, cfg.IsActive, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("config %q already exists", cfg.ID)
		}
		return apperr.Storage("create config", err)
	}
	return nil
}

// ActiveConfig returns the survey definition currently presented to
// respondents: the most recently created row with the active flag set.
func (s *Store) ActiveConfig() (model.Config, error) {
	var cfg model.Config
	err := s.db.QueryRow(
		`SELECT id, title, description, is_active, created_at, updated_at
		 FROM configs WHERE is_active = 1 ORDER BY created_at DESC LIMIT 1`,
	).Scan(&cfg.ID, &cfg.Title, &cfg.Description, &cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return cfg, apperr.NotFound("no active configuration found")
	}
	if err != nil {
		return cfg, apperr.Storage("get active config", err)
	}
	return cfg, nil
}

// ActiveSurvey resolves the active config into the full nested structure
// (config -> sections -> problems) in display order. Callers hold this value
// for the rest of the request instead of re-resolving "whichever config is
// active" at each step.
func (s *Store) ActiveSurvey() (model.SurveyView, error) {
	cfg, err := s.ActiveConfig()
	if err != nil {
		return model.SurveyView{}, err
	}

	sections, err := s.ListSections(cfg.ID)
	if err != nil {
		return model.SurveyView{}, err
	}

	view := model.SurveyView{
		ConfigID:    cfg.ID,
		Title:       cfg.Title,
		Description: cfg.Description,
	}
	for i, sec := range sections {
		problems, err := s.ListProblems(sec.ID)
		if err != nil {
			return model.SurveyView{}, err
		}
		color := sec.Color
		if color == "" {
			color = sectionPalette[i%len(sectionPalette)]
		}
		view.Sections = append(view.Sections, model.SectionView{
			ID:       sec.ID,
			Name:     sec.Name,
			Color:    color,
			Problems: problems,
		})
	}
	return view, nil
}

// ListSections returns a config's sections in display order.
func (s *Store) ListSections(configID string) ([]model.Section, error) {
	rows, err := s.db.Query(
		`SELECT id, config_id, name, color, display_order
		 FROM sections WHERE config_id = ? ORDER BY display_order`, configID,
	)
	if err != nil {
		return nil, apperr.Storage("list sections", err)
	}
	defer rows.Close()
	var sections []model.Section
	for rows.Next() {
		var sec model.Section
		if err := rows.Scan(&sec.ID, &sec.ConfigID, &sec.Name, &sec.Color, &sec.DisplayOrder); err != nil {
			return nil, apperr.Storage("scan section", err)
		}
		sections = append(sections, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list sections", err)
	}
	return sections, nil
}

// CreateSection inserts a section.
func (s *Store) CreateSection(sec model.Section) error {
	_, err := s.db.Exec(
		`INSERT INTO sections (id, config_id, name, color, display_order) VALUES (?, ?, ?, ?, ?)`,
		sec.ID, sec.ConfigID, sec.Name, sec.Color, sec.DisplayOrder,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperr.Conflict("section %q already exists", sec.ID)
		}
		return apperr.Storage("create section", err)
	}
	return nil
}

// UpdateSection changes a section's name and color.
func (s *Store) UpdateSection(id, name, color string) error {
	res, err := s.db.Exec(`UPDATE sections SET name = ?, color = ? WHERE id = ?`, name, color, id)
	if err != nil {
		return apperr.Storage("update section", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("section %q not found", id)
	}
	return nil
}

// DeleteSection removes a section and its problems together.
func (s *Store) DeleteSection(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return apperr.Storage("begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM problems WHERE section_id = ?`, id); err != nil {
		return apperr.Storage("delete section problems", err)
	}
	res, err := tx.Exec(`DELETE FROM sections WHERE id = ?`, id)
	if err != nil {
		return apperr.Storage("delete section", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("section %q not found", id)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Storage("commit section delete", err)
	}
	return nil
}

// ListProblems returns a section's problems in display order.
func (s *Store) ListProblems(sectionID string) ([]model.Problem, error) {
	return s.queryProblems(
		`SELECT id, section_id, title, question_type, options, display_order
		 FROM problems WHERE section_id = ? ORDER BY display_order`, sectionID)
}

// AllProblems returns the whole problem catalog across every section and
// config version. Historical submissions may reference problems that are no
// longer part of the active survey.
func (s *Store) AllProblems() ([]model.Problem, error) {
	return s.queryProblems(
		`SELECT id, section_id, title, question_type, options, display_order
		 FROM problems ORDER BY id`)
}

func (s *Store) queryProblems(query string, args ...any) ([]model.Problem, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperr.Storage("list problems", err)
	}
	defer rows.Close()
	var problems []model.Problem
	for rows.Next() {
		p, err := scanProblem(rows)
		if err != nil {
			return nil, err
		}
		problems = append(problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list problems", err)
	}
	return problems, nil
}

func scanProblem(rows *sql.Rows) (model.Problem, error) {
	var p model.Problem
	var options sql.NullString
	if err := rows.Scan(&p.ID, &p.SectionID, &p.Title, &p.QuestionType, &options, &p.DisplayOrder); err != nil {
		return p, apperr.Storage("scan problem", err)
	}
	if options.Valid && options.String != "" {
		if err := json.Unmarshal([]byte(options.String), &p.Options); err != nil {
			return p, apperr.Storage("decode problem options", err)
		}
	}
	return p, nil
}

// CreateProblem inserts a problem. When p.ID is zero a new ID is allocated
// as MAX(id)+1 over the entire catalog, not just the target section, inside
// the same transaction as the insert so concurrent allocations serialize on
// the primary key.
func (s *Store) CreateProblem(p model.Problem) (int64, error) {
	optionsJSON, err := encodeOptions(p.Options)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, apperr.Storage("begin transaction", err)
	}
	defer tx.Rollback()

	id := p.ID
	if id == 0 {
		if err := tx.QueryRow(`SELECT COALESCE(MAX(id), 0) + 1 FROM problems`).Scan(&id); err != nil {
			return 0, apperr.Storage("allocate problem id", err)
		}
	}

	qt := p.QuestionType
	if qt == "" {
		qt = model.TypeSlider
	}
	_, err = tx.Exec(
		`INSERT INTO problems (id, section_id, title, question_type, options, display_order)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, p.SectionID, p.Title, qt, optionsJSON, p.DisplayOrder,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperr.Conflict("problem %d already exists", id)
		}
		return 0, apperr.Storage("create problem", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, apperr.Storage("commit problem", err)
	}
	return id, nil
}

// UpdateProblemTitle renames a problem.
func (s *Store) UpdateProblemTitle(id int64, title string) error {
	res, err := s.db.Exec(`UPDATE problems SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return apperr.Storage("update problem", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("problem %d not found", id)
	}
	return nil
}

// DeleteProblem removes a problem from the catalog. Responses referencing it
// are retained; aggregation renders them with a placeholder title.
func (s *Store) DeleteProblem(id int64) error {
	res, err := s.db.Exec(`DELETE FROM problems WHERE id = ?`, id)
	if err != nil {
		return apperr.Storage("delete problem", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("problem %d not found", id)
	}
	return nil
}

func encodeOptions(options []string) (any, error) {
	if len(options) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(options)
	if err != nil {
		return nil, apperr.Storage("encode problem options", err)
	}
	return string(data), nil
}
