package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/zorasurvey/surveyd/internal/model"
	"github.com/zorasurvey/surveyd/internal/store"
)

const testAdminPassword = "correct horse"

func ptr(v int) *int { return &v }

func newTestServer(t *testing.T) (*store.Store, http.Handler) {
	t.Helper()
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if err := s.SetMetadata(store.MetaAdminPasswordHash, string(hash)); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}

	r := chi.NewRouter()
	New(s, nil).Routes(r)
	return s, r
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/auth/login", map[string]string{"password": testAdminPassword}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
	resp := decode[map[string]string](t, w)
	if resp["token"] == "" {
		t.Fatal("login returned empty token")
	}
	return resp["token"]
}

// seedSurvey installs an active config with slider and choice questions.
func seedSurvey(t *testing.T, s *store.Store) {
	t.Helper()
	now := time.Now().UTC()
	if err := s.CreateConfig(model.Config{ID: "cfg-1", Title: "Team Survey", IsActive: true, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("CreateConfig: %v", err)
	}
	if err := s.CreateSection(model.Section{ID: "sec-a", ConfigID: "cfg-1", Name: "Process"}); err != nil {
		t.Fatalf("CreateSection: %v", err)
	}
	for _, p := range []model.Problem{
		{ID: 1, SectionID: "sec-a", Title: "Slow reviews", QuestionType: model.TypeSlider},
		{ID: 2, SectionID: "sec-a", Title: "Preferred editor", QuestionType: model.TypeSingleChoice, Options: []string{"vim", "vscode"}},
	} {
		if _, err := s.CreateProblem(p); err != nil {
			t.Fatalf("CreateProblem: %v", err)
		}
	}
}

func submitBody(responses []model.Response) map[string]any {
	return map[string]any{
		"submission": map[string]any{"responses": responses},
		"name":       "Pat",
	}
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodGet, "/api/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode[map[string]string](t, w)
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %q", resp["status"])
	}
}

func TestLogin(t *testing.T) {
	_, h := newTestServer(t)

	t.Run("success", func(t *testing.T) {
		login(t, h)
	})
	t.Run("wrong password", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/auth/login", map[string]string{"password": "nope"}, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", w.Code)
		}
		resp := decode[map[string]string](t, w)
		if resp["error"] != "incorrect password" {
			t.Errorf("unexpected error message: %q", resp["error"])
		}
	})
	t.Run("missing password", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/auth/login", map[string]string{}, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestLogout(t *testing.T) {
	_, h := newTestServer(t)
	token := login(t, h)

	w := doJSON(t, h, http.MethodPost, "/api/auth/logout", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	// The revoked token no longer opens admin routes.
	w = doJSON(t, h, http.MethodPost, "/api/sessions", map[string]string{"name": "x"}, token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with revoked token, got %d", w.Code)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		method, path string
	}{
		{http.MethodPost, "/api/sessions"},
		{http.MethodPatch, "/api/sessions/x"},
		{http.MethodDelete, "/api/sessions/x"},
		{http.MethodPost, "/api/config/sections"},
		{http.MethodPatch, "/api/config/sections/x"},
		{http.MethodDelete, "/api/config/sections/x"},
		{http.MethodPost, "/api/config/problems"},
		{http.MethodPatch, "/api/config/problems/1"},
		{http.MethodDelete, "/api/config/problems/1"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := doJSON(t, h, tt.method, tt.path, map[string]string{}, "")
			if w.Code != http.StatusUnauthorized {
				t.Errorf("no token: expected 401, got %d", w.Code)
			}
			w = doJSON(t, h, tt.method, tt.path, map[string]string{}, "bogus")
			if w.Code != http.StatusUnauthorized {
				t.Errorf("bogus token: expected 401, got %d", w.Code)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	s, h := newTestServer(t)
	seedSurvey(t, s)
	token := login(t, h)

	// Create.
	w := doJSON(t, h, http.MethodPost, "/api/sessions", map[string]string{"name": "Spring retro"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d %s", w.Code, w.Body.String())
	}
	created := decode[model.Session](t, w)
	if created.ID == "" || created.Name != "Spring retro" {
		t.Fatalf("unexpected created session: %+v", created)
	}

	// List and get.
	w = doJSON(t, h, http.MethodGet, "/api/sessions", nil, "")
	sessions := decode[[]model.Session](t, w)
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	w = doJSON(t, h, http.MethodGet, "/api/sessions/"+created.ID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}

	// Toggle active.
	w = doJSON(t, h, http.MethodPatch, "/api/sessions/"+created.ID, map[string]bool{"isActive": false}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d %s", w.Code, w.Body.String())
	}
	updated := decode[model.Session](t, w)
	if updated.IsActive {
		t.Error("expected session deactivated")
	}

	// Delete hides it from the listing but keeps it retrievable.
	w = doJSON(t, h, http.MethodDelete, "/api/sessions/"+created.ID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/api/sessions", nil, "")
	if sessions = decode[[]model.Session](t, w); len(sessions) != 0 {
		t.Errorf("expected deleted session hidden, got %d", len(sessions))
	}
	w = doJSON(t, h, http.MethodGet, "/api/sessions/"+created.ID, nil, "")
	if w.Code != http.StatusOK {
		t.Errorf("deleted session should stay retrievable, got %d", w.Code)
	}
}

func TestSessionErrors(t *testing.T) {
	_, h := newTestServer(t)
	token := login(t, h)

	w := doJSON(t, h, http.MethodGet, "/api/sessions/nope", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodPost, "/api/sessions", map[string]string{"name": "   "}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for blank name, got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodPatch, "/api/sessions/nope", map[string]bool{"isActive": true}, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 patching unknown session, got %d", w.Code)
	}
	// isActive must be present, not just falsy.
	w = doJSON(t, h, http.MethodPatch, "/api/sessions/nope", map[string]string{}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without isActive, got %d", w.Code)
	}
}

func TestSubmitFlow(t *testing.T) {
	s, h := newTestServer(t)
	seedSurvey(t, s)
	token := login(t, h)

	w := doJSON(t, h, http.MethodPost, "/api/sessions", map[string]string{"name": "Retro", "id": "sess-1"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", w.Code, w.Body.String())
	}

	body := submitBody([]model.Response{{ProblemID: 1, Frequency: ptr(6), Severity: ptr(7)}})
	body["sessionId"] = "sess-1"
	w = doJSON(t, h, http.MethodPost, "/api/submissions", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d %s", w.Code, w.Body.String())
	}
	resp := decode[map[string]any](t, w)
	subID, _ := resp["id"].(string)
	if subID == "" {
		t.Fatal("submit returned no id")
	}

	// The session's response count follows the submission.
	w = doJSON(t, h, http.MethodGet, "/api/sessions/sess-1", nil, "")
	sess := decode[model.Session](t, w)
	if sess.ResponseCount != 1 {
		t.Errorf("expected responseCount 1, got %d", sess.ResponseCount)
	}

	// Retrievable individually and through the session listing.
	w = doJSON(t, h, http.MethodGet, "/api/submissions/"+subID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get submission: expected 200, got %d", w.Code)
	}
	sub := decode[model.Submission](t, w)
	if len(sub.Responses) != 1 || sub.RespondentName != "Pat" {
		t.Errorf("unexpected submission: %+v", sub)
	}
	w = doJSON(t, h, http.MethodGet, "/api/sessions/sess-1/submissions", nil, "")
	if subs := decode[[]model.Submission](t, w); len(subs) != 1 {
		t.Errorf("expected 1 session submission, got %d", len(subs))
	}
}

func TestSubmitValidation(t *testing.T) {
	s, h := newTestServer(t)
	seedSurvey(t, s)

	t.Run("empty responses", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/submissions", submitBody(nil), "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
	t.Run("unknown problem", func(t *testing.T) {
		w := doJSON(t, h, http.MethodPost, "/api/submissions",
			submitBody([]model.Response{{ProblemID: 999, Frequency: ptr(5), Severity: ptr(5)}}), "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
	t.Run("unknown session", func(t *testing.T) {
		body := submitBody([]model.Response{{ProblemID: 1, Frequency: ptr(5), Severity: ptr(5)}})
		body["sessionId"] = "nope"
		w := doJSON(t, h, http.MethodPost, "/api/submissions", body, "")
		if w.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", w.Code)
		}
	})
	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/submissions", strings.NewReader("{not json"))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
	t.Run("bad timestamp", func(t *testing.T) {
		body := map[string]any{
			"submission": map[string]any{
				"timestamp": "yesterday",
				"responses": []model.Response{{ProblemID: 1, Frequency: ptr(5), Severity: ptr(5)}},
			},
		}
		w := doJSON(t, h, http.MethodPost, "/api/submissions", body, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

func TestAggregatesEndpoint(t *testing.T) {
	s, h := newTestServer(t)
	seedSurvey(t, s)

	for _, freq := range []int{2, 4, 6} {
		w := doJSON(t, h, http.MethodPost, "/api/submissions",
			submitBody([]model.Response{
				{ProblemID: 1, Frequency: ptr(freq), Severity: ptr(freq + 1)},
				{ProblemID: 2, TextResponse: "vim"},
			}), "")
		if w.Code != http.StatusCreated {
			t.Fatalf("submit: %d %s", w.Code, w.Body.String())
		}
	}

	w := doJSON(t, h, http.MethodGet, "/api/aggregates", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}
	resp := decode[aggregatesResponse](t, w)
	if resp.ResponseCount != 3 {
		t.Errorf("expected responseCount 3, got %d", resp.ResponseCount)
	}
	if len(resp.Points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(resp.Points))
	}
	if resp.Points[0].X != 4.0 || resp.Points[0].Y != 5.0 {
		t.Errorf("expected means (4, 5), got (%v, %v)", resp.Points[0].X, resp.Points[0].Y)
	}
	if len(resp.Choices) != 1 || resp.Choices[0].Counts[0].Option != "vim" {
		t.Errorf("unexpected choice distributions: %+v", resp.Choices)
	}
	if len(resp.TopProblems) != 2 {
		t.Errorf("expected 2 ranked problems, got %d", len(resp.TopProblems))
	}
}

func TestSessionAggregates(t *testing.T) {
	s, h := newTestServer(t)
	seedSurvey(t, s)
	token := login(t, h)

	for _, id := range []string{"sess-1", "sess-2"} {
		w := doJSON(t, h, http.MethodPost, "/api/sessions", map[string]string{"name": id, "id": id}, token)
		if w.Code != http.StatusCreated {
			t.Fatalf("create session: %d", w.Code)
		}
	}
	for sessID, freq := range map[string]int{"sess-1": 2, "sess-2": 8} {
		body := submitBody([]model.Response{{ProblemID: 1, Frequency: ptr(freq), Severity: ptr(freq)}})
		body["sessionId"] = sessID
		if w := doJSON(t, h, http.MethodPost, "/api/submissions", body, ""); w.Code != http.StatusCreated {
			t.Fatalf("submit: %d", w.Code)
		}
	}

	w := doJSON(t, h, http.MethodGet, "/api/sessions/sess-1/aggregates", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode[aggregatesResponse](t, w)
	if resp.ResponseCount != 1 {
		t.Errorf("expected only sess-1 submissions, got count %d", resp.ResponseCount)
	}
	if resp.Points[0].X != 2.0 {
		t.Errorf("aggregates leaked across sessions: %v", resp.Points[0].X)
	}

	w = doJSON(t, h, http.MethodGet, "/api/sessions/nope/aggregates", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", w.Code)
	}
}

func TestAggregatesWithoutConfig(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodGet, "/api/aggregates", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without an active config, got %d", w.Code)
	}
}

func TestConfigEndpoints(t *testing.T) {
	s, h := newTestServer(t)
	token := login(t, h)

	// No active config yet: the survey itself is 404, sections degrade to
	// an empty list.
	w := doJSON(t, h, http.MethodGet, "/api/config", nil, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without config, got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/api/config/sections", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if secs := decode[[]model.SectionView](t, w); len(secs) != 0 {
		t.Fatalf("expected empty sections, got %d", len(secs))
	}

	seedSurvey(t, s)

	w = doJSON(t, h, http.MethodGet, "/api/config", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	view := decode[model.SurveyView](t, w)
	if view.Title != "Team Survey" || len(view.Sections) != 1 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if len(view.Sections[0].Problems) != 2 {
		t.Errorf("expected 2 problems, got %d", len(view.Sections[0].Problems))
	}

	// Add a section, then a problem inside it.
	w = doJSON(t, h, http.MethodPost, "/api/config/sections",
		map[string]any{"name": "Tooling", "id": "sec-b", "displayOrder": 1}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create section: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, h, http.MethodPost, "/api/config/problems",
		map[string]any{"sectionId": "sec-b", "title": "Flaky CI"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create problem: %d %s", w.Code, w.Body.String())
	}
	created := decode[map[string]any](t, w)
	// IDs continue past the seeded catalog.
	if id, _ := created["id"].(float64); id != 3 {
		t.Errorf("expected allocated id 3, got %v", created["id"])
	}

	w = doJSON(t, h, http.MethodGet, "/api/config/sections/sec-b/problems", nil, "")
	probs := decode[[]model.Problem](t, w)
	if len(probs) != 1 || probs[0].Title != "Flaky CI" {
		t.Errorf("unexpected problems: %+v", probs)
	}

	// Rename and delete the problem.
	w = doJSON(t, h, http.MethodPatch, "/api/config/problems/3", map[string]string{"title": "Slow CI"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("update problem: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, h, http.MethodDelete, "/api/config/problems/3", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("delete problem: %d", w.Code)
	}
	w = doJSON(t, h, http.MethodDelete, "/api/config/problems/abc", nil, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric id, got %d", w.Code)
	}

	// Section update and delete.
	w = doJSON(t, h, http.MethodPatch, "/api/config/sections/sec-b",
		map[string]string{"name": "Dev Tooling", "color": "#123456"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("update section: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, h, http.MethodDelete, "/api/config/sections/sec-b", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("delete section: %d", w.Code)
	}
}

func TestSummaryUnconfigured(t *testing.T) {
	s, h := newTestServer(t)
	seedSurvey(t, s)

	w := doJSON(t, h, http.MethodPost, "/api/summary", map[string]string{}, "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	resp := decode[map[string]string](t, w)
	if resp["error"] != "AI summary is not configured" {
		t.Errorf("unexpected error message: %q", resp["error"])
	}
}
