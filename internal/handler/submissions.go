package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zorasurvey/surveyd/internal/model"
)

type submitRequest struct {
	Submission struct {
		ID        string           `json:"id"`
		Timestamp string           `json:"timestamp"`
		Notes     string           `json:"notes"`
		Responses []model.Response `json:"responses"`
	} `json:"submission"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	SessionID string `json:"sessionId"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Submission.Responses) == 0 {
		writeErrorMessage(w, http.StatusBadRequest, "submission must contain at least one response")
		return
	}
	timestamp, err := parseTimestamp(req.Submission.Timestamp)
	if err != nil {
		writeError(w, err)
		return
	}
	id := req.Submission.ID
	if id == "" {
		id = uuid.NewString()
	}

	sub := model.Submission{
		ID:              id,
		SessionID:       req.SessionID,
		Timestamp:       timestamp,
		RespondentName:  strings.TrimSpace(req.Name),
		RespondentEmail: strings.TrimSpace(req.Email),
		Notes:           req.Submission.Notes,
		Responses:       req.Submission.Responses,
	}
	if err := h.store.InsertSubmission(sub); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "id": id})
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.ListSubmissions()
	if err != nil {
		writeError(w, err)
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.store.GetSubmission(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleListSessionSubmissions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.GetSession(id); err != nil {
		writeError(w, err)
		return
	}
	subs, err := h.store.ListSessionSubmissions(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if subs == nil {
		subs = []model.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}
