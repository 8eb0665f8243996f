package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zorasurvey/surveyd/internal/apperr"
	"github.com/zorasurvey/surveyd/internal/llm"
	"github.com/zorasurvey/surveyd/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store *store.Store
	llm   *llm.Client
}

// New creates a new Handler. llmClient may be nil when the summary feature
// is unconfigured.
func New(s *store.Store, llmClient *llm.Client) *Handler {
	return &Handler{store: s, llm: llmClient}
}

// Routes registers all API routes. Reads are public; mutations of sessions
// and survey structure require an admin token.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/api/health", h.handleHealth)

	r.Post("/api/auth/login", h.handleLogin)
	r.Post("/api/auth/logout", h.handleLogout)

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", h.handleListSessions)
		r.Get("/{id}", h.handleGetSession)
		r.Get("/{id}/submissions", h.handleListSessionSubmissions)
		r.Get("/{id}/aggregates", h.handleSessionAggregates)
		r.With(h.requireAdmin).Post("/", h.handleCreateSession)
		r.With(h.requireAdmin).Patch("/{id}", h.handleUpdateSession)
		r.With(h.requireAdmin).Delete("/{id}", h.handleDeleteSession)
	})

	r.Post("/api/submissions", h.handleSubmit)
	r.Get("/api/submissions", h.handleListSubmissions)
	r.Get("/api/submissions/{id}", h.handleGetSubmission)
	r.Get("/api/aggregates", h.handleAggregates)
	r.Post("/api/summary", h.handleSummary)

	r.Route("/api/config", func(r chi.Router) {
		r.Get("/", h.handleGetConfig)
		r.Get("/sections", h.handleListSections)
		r.Get("/sections/{id}/problems", h.handleListSectionProblems)
		r.With(h.requireAdmin).Post("/sections", h.handleCreateSection)
		r.With(h.requireAdmin).Patch("/sections/{id}", h.handleUpdateSection)
		r.With(h.requireAdmin).Delete("/sections/{id}", h.handleDeleteSection)
		r.With(h.requireAdmin).Post("/problems", h.handleCreateProblem)
		r.With(h.requireAdmin).Patch("/problems/{id}", h.handleUpdateProblem)
		r.With(h.requireAdmin).Delete("/problems/{id}", h.handleDeleteProblem)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// CORS allows the survey frontend to call the API from another origin.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin rejects requests that do not carry a valid admin token in the
// Authorization header.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "missing admin token")
			return
		}
		record, err := h.store.GetAuthToken(token)
		if err != nil {
			writeError(w, err)
			return
		}
		if record == nil {
			writeErrorMessage(w, http.StatusUnauthorized, "invalid or expired admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError converts an error into a JSON body with a human-readable
// message. Raw causes are logged, never sent to the client.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindConflict:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindUpstream:
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		slog.Error("request failed", "error", err)
	}
	writeErrorMessage(w, status, apperr.MessageOf(err))
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

func parseJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("invalid JSON body")
	}
	return nil
}

// parseTimestamp normalizes an RFC 3339 timestamp to UTC, defaulting to the
// current time when absent.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid timestamp %q: expected RFC 3339", value)
	}
	return t.UTC(), nil
}
