package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zorasurvey/surveyd/internal/apperr"
	"github.com/zorasurvey/surveyd/internal/model"
)

func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	view, err := h.store.ActiveSurvey()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleListSections(w http.ResponseWriter, r *http.Request) {
	view, err := h.store.ActiveSurvey()
	if err != nil {
		// No active config means no sections, not a failure.
		if apperr.KindOf(err) == apperr.KindNotFound {
			writeJSON(w, http.StatusOK, []model.SectionView{})
			return
		}
		writeError(w, err)
		return
	}
	sections := view.Sections
	if sections == nil {
		sections = []model.SectionView{}
	}
	writeJSON(w, http.StatusOK, sections)
}

type createSectionRequest struct {
	ID           string `json:"id"`
	ConfigID     string `json:"configId"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	DisplayOrder int    `json:"displayOrder"`
}

func (h *Handler) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	var req createSectionRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeErrorMessage(w, http.StatusBadRequest, "name is required")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		cfg, err := h.store.ActiveConfig()
		if err != nil {
			writeError(w, err)
			return
		}
		configID = cfg.ID
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	sec := model.Section{
		ID:           id,
		ConfigID:     configID,
		Name:         strings.TrimSpace(req.Name),
		Color:        req.Color,
		DisplayOrder: req.DisplayOrder,
	}
	if err := h.store.CreateSection(sec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
}

type updateSectionRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *Handler) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	var req updateSectionRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeErrorMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := h.store.UpdateSection(chi.URLParam(r, "id"), strings.TrimSpace(req.Name), req.Color); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteSection(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleListSectionProblems(w http.ResponseWriter, r *http.Request) {
	problems, err := h.store.ListProblems(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if problems == nil {
		problems = []model.Problem{}
	}
	writeJSON(w, http.StatusOK, problems)
}

type createProblemRequest struct {
	SectionID    string   `json:"sectionId"`
	Title        string   `json:"title"`
	QuestionType string   `json:"questionType"`
	Options      []string `json:"options"`
	DisplayOrder int      `json:"displayOrder"`
}

func (h *Handler) handleCreateProblem(w http.ResponseWriter, r *http.Request) {
	var req createProblemRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeErrorMessage(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.SectionID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "sectionId is required")
		return
	}

	p := model.Problem{
		SectionID:    req.SectionID,
		Title:        strings.TrimSpace(req.Title),
		QuestionType: model.QuestionType(req.QuestionType),
		Options:      req.Options,
		DisplayOrder: req.DisplayOrder,
	}
	id, err := h.store.CreateProblem(p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
}

type updateProblemRequest struct {
	Title string `json:"title"`
}

func (h *Handler) handleUpdateProblem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid problem id")
		return
	}
	var req updateProblemRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeErrorMessage(w, http.StatusBadRequest, "title is required")
		return
	}
	if err := h.store.UpdateProblemTitle(id, strings.TrimSpace(req.Title)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleDeleteProblem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid problem id")
		return
	}
	if err := h.store.DeleteProblem(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
