package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	authmw "github.com/shandley/convene-sub000/internal/auth/middleware"
	"github.com/shandley/convene-sub000/internal/review"
)

// asSubject wires the route tree the way the gateway does, with the JWT
// middleware replaced by a fixed subject.
func asSubject(store review.Store, subject string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(authmw.WithSubject(req.Context(), subject)))
		})
	})
	r.Get("/reviews/{assignmentID}/scores", GetScoresHandler(store))
	r.Post("/reviews/{assignmentID}/scores", SubmitScoresHandler(store))
	r.Delete("/reviews/{assignmentID}/scores", ClearScoresHandler(store))
	r.Put("/reviews/{assignmentID}/feedback", UpdateFeedbackHandler(store))
	return r
}

func seedStore(t *testing.T) (*review.MemoryStore, review.Assignment) {
	t.Helper()
	store := review.NewInMemoryStore()
	store.SeedProgram("p1", "app1", []review.Criterion{
		{ID: "c1", ProgramID: "p1", Name: "Merit", ScoringType: review.ScoringNumeric,
			Weight: 60, MinScore: 0, MaxScore: 10, IsActive: true},
		{ID: "c2", ProgramID: "p1", Name: "Fit", ScoringType: review.ScoringNumeric,
			Weight: 40, MinScore: 0, MaxScore: 5, IsActive: true},
	})
	a, err := store.CreateAssignment(context.Background(), review.NewAssignment{
		ApplicationID: "app1", ReviewerID: "rev-1",
	}, "adm")
	if err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	return store, a
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestScoreEndpointsHideForeignAssignments(t *testing.T) {
	store, a := seedStore(t)
	h := asSubject(store, "rev-2") // not the assigned reviewer

	for _, tc := range []struct{ method, body string }{
		{http.MethodGet, ""},
		{http.MethodPost, `{"scores":[{"criteria_id":"c1","raw_score":5}]}`},
		{http.MethodDelete, ""},
	} {
		rec := doJSON(t, h, tc.method, "/reviews/"+a.ID+"/scores", tc.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s as stranger: status %d, want 404", tc.method, rec.Code)
		}
	}

	// Missing assignments look exactly the same.
	rec := doJSON(t, asSubject(store, "rev-1"), http.MethodGet, "/reviews/nope/scores", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown assignment: status %d, want 404", rec.Code)
	}
}

func TestSubmitThenGetRoundTrip(t *testing.T) {
	store, a := seedStore(t)
	h := asSubject(store, "rev-1")

	rec := doJSON(t, h, http.MethodPost, "/reviews/"+a.ID+"/scores",
		`{"scores":[{"criteria_id":"c2","raw_score":4},{"criteria_id":"c1","raw_score":8}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: status %d body %s", rec.Code, rec.Body.String())
	}
	var posted struct {
		Status       string  `json:"status"`
		OverallScore float64 `json:"overall_score"`
		LegacyBand   int     `json:"legacy_band"`
		Message      string  `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &posted); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	// 8/10*60 + 4/5*40 = 48 + 32 = 80
	if posted.OverallScore != 80 {
		t.Fatalf("overall = %v, want 80", posted.OverallScore)
	}
	if posted.LegacyBand != 4 {
		t.Fatalf("legacy band = %d, want 4", posted.LegacyBand)
	}
	if posted.Status != review.StatusCompleted {
		t.Fatalf("status = %q, want completed", posted.Status)
	}
	if posted.Message != "scores saved" {
		t.Fatalf("message = %q", posted.Message)
	}

	rec = doJSON(t, h, http.MethodGet, "/reviews/"+a.ID+"/scores", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	var got review.ScoreSet
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	byID := map[string]review.Score{}
	for _, s := range got.Scores {
		byID[s.CriteriaID] = s
	}
	if len(byID) != 2 {
		t.Fatalf("scores = %d, want 2", len(byID))
	}
	if s := byID["c1"]; s.RawScore == nil || *s.RawScore != 8 {
		t.Errorf("c1 raw = %v, want 8", s.RawScore)
	}
	if s := byID["c2"]; s.RawScore == nil || *s.RawScore != 4 {
		t.Errorf("c2 raw = %v, want 4", s.RawScore)
	}
	// Each score comes back with its criterion joined in.
	if c := byID["c1"].Criterion; c == nil || c.Name != "Merit" || c.MaxScore != 10 {
		t.Errorf("c1 criterion = %+v, want Merit with max 10", byID["c1"].Criterion)
	}
	if got.Status != review.StatusCompleted {
		t.Errorf("derived status = %q, want completed", got.Status)
	}
	if got.IsLegacy {
		t.Error("native review reported as legacy")
	}
}

func TestSubmitScoresRejectsBadPayloads(t *testing.T) {
	store, a := seedStore(t)
	h := asSubject(store, "rev-1")

	for name, body := range map[string]string{
		"empty array":       `{"scores":[]}`,
		"missing scores":    `{}`,
		"not json":          `score one`,
		"missing criterion": `{"scores":[{"raw_score":5}]}`,
	} {
		rec := doJSON(t, h, http.MethodPost, "/reviews/"+a.ID+"/scores", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", name, rec.Code)
		}
	}

	// Out-of-range value fails validation with the field name in the body.
	rec := doJSON(t, h, http.MethodPost, "/reviews/"+a.ID+"/scores",
		`{"scores":[{"criteria_id":"c1","raw_score":42}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out of range: status %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "raw_score") {
		t.Errorf("body %q should name the offending field", rec.Body.String())
	}
}

func TestSubmitScoresLegacyConflict(t *testing.T) {
	store, a := seedStore(t)
	store.SeedLegacyReview(a.ID, 7)
	h := asSubject(store, "rev-1")

	rec := doJSON(t, h, http.MethodGet, "/reviews/"+a.ID+"/scores", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get legacy: status %d", rec.Code)
	}
	var got review.ScoreSet
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.IsLegacy || got.Status != review.StatusCompleted {
		t.Fatalf("legacy read: is_legacy=%v status=%q", got.IsLegacy, got.Status)
	}

	rec = doJSON(t, h, http.MethodPost, "/reviews/"+a.ID+"/scores",
		`{"scores":[{"criteria_id":"c1","raw_score":5}]}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("write to legacy review: status %d, want 409", rec.Code)
	}
	rec = doJSON(t, h, http.MethodDelete, "/reviews/"+a.ID+"/scores", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("clear legacy review: status %d, want 409", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPut, "/reviews/"+a.ID+"/feedback", `{"comments":"too late"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("feedback on legacy review: status %d, want 409", rec.Code)
	}

	// Nothing above may have stripped the legacy marker.
	rec = doJSON(t, h, http.MethodGet, "/reviews/"+a.ID+"/scores", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.IsLegacy || got.Status != review.StatusCompleted {
		t.Fatalf("after rejected edits: is_legacy=%v status=%q", got.IsLegacy, got.Status)
	}
}

func TestClearScoresResetsStatus(t *testing.T) {
	store, a := seedStore(t)
	h := asSubject(store, "rev-1")

	doJSON(t, h, http.MethodPost, "/reviews/"+a.ID+"/scores",
		`{"scores":[{"criteria_id":"c1","raw_score":8},{"criteria_id":"c2","raw_score":4}]}`)
	rec := doJSON(t, h, http.MethodDelete, "/reviews/"+a.ID+"/scores", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: status %d", rec.Code)
	}
	var cleared struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &cleared); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cleared.Status != review.StatusNotStarted {
		t.Fatalf("status after clear = %q, want not_started", cleared.Status)
	}
}

func TestUpdateFeedbackValidation(t *testing.T) {
	store, a := seedStore(t)
	h := asSubject(store, "rev-1")

	rec := doJSON(t, h, http.MethodPut, "/reviews/"+a.ID+"/feedback",
		`{"recommendation":"maybe"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad recommendation: status %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPut, "/reviews/"+a.ID+"/feedback",
		`{"recommendation":"accept","comments":"strong candidate"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("feedback: status %d body %s", rec.Code, rec.Body.String())
	}
	var rev review.Review
	if err := json.Unmarshal(rec.Body.Bytes(), &rev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rev.Recommendation != "accept" || rev.Comments != "strong candidate" {
		t.Fatalf("feedback not applied: %+v", rev)
	}
}
