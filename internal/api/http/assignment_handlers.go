package http

import (
	"encoding/json"
	"net/http"
	"strings"

	authmw "github.com/shandley/convene-sub000/internal/auth/middleware"
	"github.com/shandley/convene-sub000/internal/rbac"
	"github.com/shandley/convene-sub000/internal/review"
)

// POST /assignments  { "application_id": "...", "reviewer_id": "...", "deadline": ... }
func CreateAssignmentHandler(store review.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req review.NewAssignment
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "application_id and reviewer_id required", http.StatusBadRequest)
			return
		}
		a, err := store.CreateAssignment(r.Context(), req, authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// GET /assignments?application_id=...&reviewer_id=...&program_id=...&status=...&limit=50&offset=0
// RBAC scoping:
//   - assignment:view-all may filter freely
//   - assignment:view-own always sees only their own rows
func ListAssignmentsHandler(store review.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		role := rbac.RoleFromContext(r.Context())
		sub := authmw.SubjectFromContext(r.Context())

		opts := review.AssignmentListOpts{
			ApplicationID: strings.TrimSpace(r.URL.Query().Get("application_id")),
			ReviewerID:    strings.TrimSpace(r.URL.Query().Get("reviewer_id")),
			ProgramID:     strings.TrimSpace(r.URL.Query().Get("program_id")),
			Status:        strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:         parseIntDefault(r.URL.Query().Get("limit"), 50),
			Offset:        parseIntDefault(r.URL.Query().Get("offset"), 0),
		}
		if role != "admin" {
			opts.ReviewerID = sub
		}
		list, err := store.ListAssignments(r.Context(), opts)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": list})
	}
}
