package review

import "math"

// ComputeOverallScore combines per-criterion scores into a 0-100 percentage.
// Only criteria that have a score, with a non-nil raw value and not flagged
// NA, participate; the denominator is the weight of those criteria alone, so
// a partially scored review yields a percentage proportional to what has
// been answered so far rather than being dragged down by unanswered rows.
// Raw scores are not clamped here; range validation happens on write.
func ComputeOverallScore(criteria []Criterion, scores map[string]Score) float64 {
	totalWeighted := 0.0
	totalWeight := 0.0
	for _, c := range criteria {
		s, ok := scores[c.ID]
		if !ok || s.RawScore == nil || s.IsNA {
			continue
		}
		if c.MaxScore == 0 {
			continue
		}
		totalWeighted += (*s.RawScore / c.MaxScore) * c.Weight
		totalWeight += c.Weight
	}
	if totalWeight <= 0 {
		return 0
	}
	return (totalWeighted / totalWeight) * 100
}

// RescaleToLegacyBand maps a 0-100 percentage onto the historical 1-5
// overall_score band. The formula matches what older records were written
// with and must not change: 0% -> 1, 100% -> 5, inclusive at both ends.
func RescaleToLegacyBand(percentage float64) int {
	band := int(math.Round(percentage/100*4)) + 1
	if band < 1 {
		band = 1
	}
	if band > 5 {
		band = 5
	}
	return band
}

// scoreIndex builds the lookup ComputeOverallScore expects.
func scoreIndex(scores []Score) map[string]Score {
	m := make(map[string]Score, len(scores))
	for _, s := range scores {
		m[s.CriteriaID] = s
	}
	return m
}

// attachCriteria joins each score with its criterion definition for read
// responses. Scores referencing an inactive or deleted criterion keep a
// nil Criterion.
func attachCriteria(scores []Score, criteria []Criterion) []Score {
	byID := make(map[string]Criterion, len(criteria))
	for _, c := range criteria {
		byID[c.ID] = c
	}
	for i := range scores {
		if c, ok := byID[scores[i].CriteriaID]; ok {
			cc := c
			scores[i].Criterion = &cc
		}
	}
	return scores
}
