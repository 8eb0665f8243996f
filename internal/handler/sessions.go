package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zorasurvey/surveyd/internal/model"
)

type createSessionRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeErrorMessage(w, http.StatusBadRequest, "name is required")
		return
	}
	createdAt, err := parseTimestamp(req.CreatedAt)
	if err != nil {
		writeError(w, err)
		return
	}
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	sess := model.Session{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   createdAt,
	}
	if err := h.store.CreateSession(sess); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.store.GetSession(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions()
	if err != nil {
		writeError(w, err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.store.GetSession(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type updateSessionRequest struct {
	IsActive *bool `json:"isActive"`
}

func (h *Handler) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.IsActive == nil {
		writeErrorMessage(w, http.StatusBadRequest, "isActive is required")
		return
	}
	sess, err := h.store.SetSessionActive(chi.URLParam(r, "id"), *req.IsActive)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.store.SoftDeleteSession(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
