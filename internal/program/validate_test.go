package program

import (
	"errors"
	"testing"

	"github.com/shandley/convene-sub000/internal/review"
)

func TestValidateCriterion(t *testing.T) {
	base := review.Criterion{
		Name:        "Merit",
		ScoringType: review.ScoringNumeric,
		Weight:      25,
		MinScore:    0,
		MaxScore:    10,
	}

	cases := []struct {
		name      string
		mutate    func(c *review.Criterion)
		wantField string // "" means valid
	}{
		{"valid numeric", func(c *review.Criterion) {}, ""},
		{"missing name", func(c *review.Criterion) { c.Name = "" }, "name"},
		{"unknown type", func(c *review.Criterion) { c.ScoringType = "stars" }, "scoring_type"},
		{"categorical without rubric", func(c *review.Criterion) { c.ScoringType = review.ScoringCategorical }, "rubric"},
		{"categorical with rubric", func(c *review.Criterion) {
			c.ScoringType = review.ScoringCategorical
			c.Rubric = []review.RubricLevel{{Name: "strong", Value: 10}}
		}, ""},
		{"max not above min", func(c *review.Criterion) { c.MaxScore = c.MinScore }, "max_score"},
		{"negative weight", func(c *review.Criterion) { c.Weight = -1 }, "weight"},
		{"zero weight ok", func(c *review.Criterion) { c.Weight = 0 }, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			err := validateCriterion(&c)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *review.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("got %v, want ValidationError", err)
			}
			if ve.Field != tc.wantField {
				t.Fatalf("field = %q, want %q", ve.Field, tc.wantField)
			}
		})
	}
}
