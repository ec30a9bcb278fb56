package review

import (
	"math"
	"testing"
)

func fptr(v float64) *float64 { return &v }

func crit(id string, weight, maxScore float64) Criterion {
	return Criterion{ID: id, ScoringType: ScoringNumeric, Weight: weight, MaxScore: maxScore, IsActive: true}
}

func nativeScore(criteriaID string, raw float64) Score {
	return Score{ID: "s-" + criteriaID, CriteriaID: criteriaID, RawScore: fptr(raw), Kind: KindNative}
}

func TestComputeOverallScoreWeighted(t *testing.T) {
	criteria := []Criterion{crit("a", 40, 10), crit("b", 60, 10)}
	scores := map[string]Score{
		"a": nativeScore("a", 8),
		"b": nativeScore("b", 6),
	}
	got := ComputeOverallScore(criteria, scores)
	want := 68.0 // (8/10*40 + 6/10*60) / 100 * 100
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("ComputeOverallScore = %v, want %v", got, want)
	}
}

func TestComputeOverallScorePartial(t *testing.T) {
	// Only criterion a (weight 40 of 100) is scored at max: the denominator
	// is a's weight alone, so the result is 100, not 40.
	criteria := []Criterion{crit("a", 40, 10), crit("b", 60, 10)}
	scores := map[string]Score{"a": nativeScore("a", 10)}
	if got := ComputeOverallScore(criteria, scores); math.Abs(got-100) > 1e-9 {
		t.Fatalf("partial score = %v, want 100", got)
	}
}

func TestComputeOverallScoreEdgeCases(t *testing.T) {
	tests := []struct {
		name     string
		criteria []Criterion
		scores   map[string]Score
		want     float64
	}{
		{"no criteria", nil, map[string]Score{}, 0},
		{"no scores", []Criterion{crit("a", 50, 10)}, map[string]Score{}, 0},
		{"all weights zero", []Criterion{crit("a", 0, 10)}, map[string]Score{"a": nativeScore("a", 5)}, 0},
		{"zero max guarded", []Criterion{crit("a", 50, 0)}, map[string]Score{"a": nativeScore("a", 5)}, 0},
		{
			"na excluded",
			[]Criterion{crit("a", 40, 10), crit("b", 60, 10)},
			map[string]Score{
				"a": nativeScore("a", 10),
				"b": {ID: "s-b", CriteriaID: "b", IsNA: true, Kind: KindNative},
			},
			100,
		},
		{
			"nil raw excluded",
			[]Criterion{crit("a", 40, 10), crit("b", 60, 10)},
			map[string]Score{
				"a": nativeScore("a", 10),
				"b": {ID: "s-b", CriteriaID: "b", Kind: KindNative},
			},
			100,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeOverallScore(tc.criteria, tc.scores); math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRescaleToLegacyBand(t *testing.T) {
	tests := []struct {
		pct  float64
		want int
	}{
		{0, 1},
		{100, 5},
		{12.4, 1},  // round(0.496)=0 -> 1
		{12.5, 2},  // round(0.5)=1 -> 2
		{50, 3},    // round(2)=2 -> 3
		{87.5, 5},  // round(3.5)=4 -> 5
		{62.5, 4},  // round(2.5)=3 -> 4
		{-10, 1},   // clamped low
		{150, 5},   // clamped high
		{99.99, 5}, // round(3.9996)=4 -> 5
	}
	for _, tc := range tests {
		if got := RescaleToLegacyBand(tc.pct); got != tc.want {
			t.Errorf("RescaleToLegacyBand(%v) = %d, want %d", tc.pct, got, tc.want)
		}
	}
}
