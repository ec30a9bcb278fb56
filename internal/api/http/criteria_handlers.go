package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shandley/convene-sub000/internal/program"
	"github.com/shandley/convene-sub000/internal/review"
)

// PUT /programs/{programID}/criteria  (create or replace one criterion)
func UpsertCriterionHandler(store program.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c review.Criterion
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		c.ProgramID = chi.URLParam(r, "programID")
		out, err := store.UpsertCriterion(r.Context(), c)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// DELETE /programs/{programID}/criteria/{criterionID}
// Soft-disable: scores already written against the criterion keep their
// reference; the criterion just stops participating in new reviews.
func DisableCriterionHandler(store program.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DisableCriterion(r.Context(), chi.URLParam(r, "criterionID")); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
	}
}

// GET /programs/{programID}/criteria?include_inactive=1
func ListCriteriaHandler(store program.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeInactive := r.URL.Query().Get("include_inactive") == "1"
		list, err := store.ListCriteria(r.Context(), chi.URLParam(r, "programID"), includeInactive)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": list})
	}
}
