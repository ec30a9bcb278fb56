package review

import (
	"errors"
	"math"
	"testing"
)

func TestNumericStrategy(t *testing.T) {
	c := Criterion{ID: "c1", ScoringType: ScoringNumeric, Weight: 40, MinScore: 1, MaxScore: 10}

	n, err := NormalizeScore(c, ScoreInput{CriteriaID: "c1", RawScore: fptr(8)})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if math.Abs(n.Normalized-80) > 1e-9 || math.Abs(n.Weighted-32) > 1e-9 {
		t.Fatalf("normalized=%v weighted=%v, want 80/32", n.Normalized, n.Weighted)
	}

	for _, raw := range []float64{0, 11} {
		if _, err := NormalizeScore(c, ScoreInput{CriteriaID: "c1", RawScore: fptr(raw)}); err == nil {
			t.Errorf("raw %v outside [1,10] should fail", raw)
		}
	}
	if _, err := NormalizeScore(c, ScoreInput{CriteriaID: "c1"}); err == nil {
		t.Error("missing raw_score should fail")
	}
}

func TestCategoricalStrategy(t *testing.T) {
	c := Criterion{
		ID: "c1", ScoringType: ScoringCategorical, Weight: 50, MaxScore: 3,
		Rubric: []RubricLevel{
			{Name: "weak", Value: 1},
			{Name: "solid", Value: 2},
			{Name: "excellent", Value: 3},
		},
	}
	n, err := NormalizeScore(c, ScoreInput{CriteriaID: "c1", RubricLevel: "Solid"})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if n.Raw != 2 || n.RubricLevel != "solid" {
		t.Fatalf("raw=%v level=%q, want 2/solid", n.Raw, n.RubricLevel)
	}
	if _, err := NormalizeScore(c, ScoreInput{CriteriaID: "c1", RubricLevel: "amazing"}); err == nil {
		t.Error("unknown rubric level should fail")
	}
	var ve *ValidationError
	_, err = NormalizeScore(c, ScoreInput{CriteriaID: "c1"})
	if !errors.As(err, &ve) {
		t.Errorf("missing rubric level should be a validation error, got %v", err)
	}
}

func TestBinaryStrategy(t *testing.T) {
	c := Criterion{ID: "c1", ScoringType: ScoringBinary, Weight: 10, MinScore: 0, MaxScore: 1}
	for _, raw := range []float64{0, 1} {
		if _, err := NormalizeScore(c, ScoreInput{CriteriaID: "c1", RawScore: fptr(raw)}); err != nil {
			t.Errorf("raw %v should pass: %v", raw, err)
		}
	}
	if _, err := NormalizeScore(c, ScoreInput{CriteriaID: "c1", RawScore: fptr(0.5)}); err == nil {
		t.Error("binary criterion must reject mid values")
	}
}

func TestUnknownScoringType(t *testing.T) {
	c := Criterion{ID: "c1", ScoringType: "stars"}
	if _, err := NormalizeScore(c, ScoreInput{CriteriaID: "c1", RawScore: fptr(3)}); err == nil {
		t.Fatal("unknown scoring type should fail")
	}
}
