package handler

import (
	"net/http"
	"time"

	"github.com/zorasurvey/surveyd/internal/model"
	"github.com/zorasurvey/surveyd/internal/survey"
)

type summaryRequest struct {
	SessionID string `json:"sessionId"`
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !h.llm.Enabled() {
		writeErrorMessage(w, http.StatusServiceUnavailable, "AI summary is not configured")
		return
	}

	var req summaryRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var subs []model.Submission
	var err error
	if req.SessionID != "" {
		if _, err := h.store.GetSession(req.SessionID); err != nil {
			writeError(w, err)
			return
		}
		subs, err = h.store.ListSessionSubmissions(req.SessionID)
	} else {
		subs, err = h.store.ListSubmissions()
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if len(subs) == 0 {
		writeErrorMessage(w, http.StatusBadRequest, "need at least one response to generate a summary")
		return
	}

	view, err := h.store.ActiveSurvey()
	if err != nil {
		writeError(w, err)
		return
	}
	top := survey.New(view).TopProblems(subs, topProblemCount)

	summary, err := h.llm.Summarize(r.Context(), view.Title, len(subs), top)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.SummaryResult{
		Summary:     summary,
		TopProblems: top,
		Metadata: model.SummaryMetadata{
			ResponseCount: len(subs),
			GeneratedAt:   time.Now().UTC(),
		},
	})
}
