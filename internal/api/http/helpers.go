package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/shandley/convene-sub000/internal/program"
	"github.com/shandley/convene-sub000/internal/review"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain errors onto the wire. Not-found and not-owned are
// the same 404 so callers can't probe for other reviewers' assignments;
// unexpected errors become a bare 500 with the detail kept in the log.
func writeErr(w http.ResponseWriter, err error) {
	var ve *review.ValidationError
	switch {
	case errors.Is(err, review.ErrNotFound), errors.Is(err, program.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.As(err, &ve):
		http.Error(w, ve.Error(), http.StatusBadRequest)
	case errors.Is(err, review.ErrLegacyReview), errors.Is(err, review.ErrDuplicate):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("request failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
