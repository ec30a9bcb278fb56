package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/shandley/convene-sub000/internal/auth/middleware"
	"github.com/shandley/convene-sub000/internal/review"
)

type submitScoresReq struct {
	Scores []review.ScoreInput `json:"scores" validate:"required,min=1,dive"`
}

// GET /reviews/{assignmentID}/scores
// Returns the caller's scores joined with their criteria, reconciled
// against the legacy single-score model. Empty data if nothing is scored.
func GetScoresHandler(store review.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		reviewer := authmw.SubjectFromContext(r.Context())
		set, err := store.GetScores(r.Context(), assignmentID, reviewer)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, set)
	}
}

// POST /reviews/{assignmentID}/scores  { "scores": [...] }
// Upserts, recomputes the aggregate and the assignment status. Secondary
// failures surface in "message" without failing the write.
func SubmitScoresHandler(store review.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		reviewer := authmw.SubjectFromContext(r.Context())

		var req submitScoresReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "scores: expected a JSON object with a scores array", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "scores: must be a non-empty array of score inputs", http.StatusBadRequest)
			return
		}

		res, err := store.SubmitScores(r.Context(), assignmentID, reviewer, req.Scores)
		if err != nil {
			writeErr(w, err)
			return
		}
		msg := "scores saved"
		if res.Warning != "" {
			msg = res.Warning
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data":          res.Scores,
			"status":        res.Status,
			"overall_score": res.OverallScore,
			"legacy_band":   res.LegacyBand,
			"message":       msg,
		})
	}
}

// DELETE /reviews/{assignmentID}/scores
// Clears every score and resets the assignment to not_started. The review
// row (and its free-text feedback) survives.
func ClearScoresHandler(store review.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		reviewer := authmw.SubjectFromContext(r.Context())
		a, err := store.ClearScores(r.Context(), assignmentID, reviewer)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": a.Status, "message": "scores cleared"})
	}
}

// PUT /reviews/{assignmentID}/feedback
func UpdateFeedbackHandler(store review.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID := strings.TrimSpace(chi.URLParam(r, "assignmentID"))
		reviewer := authmw.SubjectFromContext(r.Context())

		var req review.FeedbackInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "recommendation: must be one of accept, reject, waitlist, discuss", http.StatusBadRequest)
			return
		}
		rev, err := store.UpdateFeedback(r.Context(), assignmentID, reviewer, req)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rev)
	}
}
