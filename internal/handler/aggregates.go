package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zorasurvey/surveyd/internal/model"
	"github.com/zorasurvey/surveyd/internal/survey"
)

// topProblemCount caps the priority ranking returned with aggregates and
// fed to the AI summary.
const topProblemCount = 5

type aggregatesResponse struct {
	ResponseCount int                        `json:"responseCount"`
	Points        []model.AggregatePoint     `json:"points"`
	Choices       []model.ChoiceDistribution `json:"choices"`
	TopProblems   []model.ProblemRank        `json:"topProblems"`
}

func (h *Handler) handleAggregates(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.ListSubmissions()
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeAggregates(w, subs)
}

func (h *Handler) handleSessionAggregates(w http.ResponseWriter, r *http.Request) {
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
	h.writeAggregates(w, subs)
}

// writeAggregates resolves the survey structure once and computes every
// summary against that same snapshot.
func (h *Handler) writeAggregates(w http.ResponseWriter, subs []model.Submission) {
	view, err := h.store.ActiveSurvey()
	if err != nil {
		writeError(w, err)
		return
	}
	agg := survey.New(view)

	resp := aggregatesResponse{
		ResponseCount: len(subs),
		Points:        agg.Points(subs),
		Choices:       agg.Distributions(subs),
		TopProblems:   agg.TopProblems(subs, topProblemCount),
	}
	if resp.Points == nil {
		resp.Points = []model.AggregatePoint{}
	}
	if resp.Choices == nil {
		resp.Choices = []model.ChoiceDistribution{}
	}
	if resp.TopProblems == nil {
		resp.TopProblems = []model.ProblemRank{}
	}
	writeJSON(w, http.StatusOK, resp)
}
