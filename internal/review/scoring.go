package review

import "strings"

// normalized is the outcome of validating one submitted score against its
// criterion: the raw value to persist plus its 0-100 normalization and the
// weighted contribution under the criterion's current weight.
type normalized struct {
	Raw         float64
	Normalized  float64
	Weighted    float64
	RubricLevel string
}

// Strategy validates and normalizes a raw submission for one scoring type.
type Strategy interface {
	Normalize(c Criterion, in ScoreInput) (normalized, error)
}

var strategies = map[string]Strategy{
	ScoringNumeric:     numericStrategy{},
	ScoringCategorical: categoricalStrategy{},
	ScoringBinary:      binaryStrategy{},
}

// NormalizeScore routes by the criterion's scoring type. NA submissions
// bypass the strategies entirely (no raw value to check).
func NormalizeScore(c Criterion, in ScoreInput) (normalized, error) {
	s, ok := strategies[c.ScoringType]
	if !ok {
		return normalized{}, invalidf("criteria_id", "criterion %s has unknown scoring type %q", c.ID, c.ScoringType)
	}
	return s.Normalize(c, in)
}

type numericStrategy struct{}

func (numericStrategy) Normalize(c Criterion, in ScoreInput) (normalized, error) {
	if in.RawScore == nil {
		return normalized{}, invalidf("raw_score", "required for criterion %s", c.ID)
	}
	raw := *in.RawScore
	if raw < c.MinScore || raw > c.MaxScore {
		return normalized{}, invalidf("raw_score", "must be between %g and %g for criterion %s", c.MinScore, c.MaxScore, c.ID)
	}
	return finish(c, raw, "")
}

type categoricalStrategy struct{}

func (categoricalStrategy) Normalize(c Criterion, in ScoreInput) (normalized, error) {
	if in.RubricLevel == "" {
		return normalized{}, invalidf("rubric_level", "required for criterion %s", c.ID)
	}
	for _, lvl := range c.Rubric {
		if strings.EqualFold(lvl.Name, in.RubricLevel) {
			return finish(c, lvl.Value, lvl.Name)
		}
	}
	return normalized{}, invalidf("rubric_level", "%q is not a rubric level of criterion %s", in.RubricLevel, c.ID)
}

type binaryStrategy struct{}

func (binaryStrategy) Normalize(c Criterion, in ScoreInput) (normalized, error) {
	if in.RawScore == nil {
		return normalized{}, invalidf("raw_score", "required for criterion %s", c.ID)
	}
	raw := *in.RawScore
	if raw != c.MinScore && raw != c.MaxScore {
		return normalized{}, invalidf("raw_score", "must be %g or %g for criterion %s", c.MinScore, c.MaxScore, c.ID)
	}
	return finish(c, raw, "")
}

func finish(c Criterion, raw float64, level string) (normalized, error) {
	n := normalized{Raw: raw, RubricLevel: level}
	if c.MaxScore != 0 {
		n.Normalized = raw / c.MaxScore * 100
	}
	n.Weighted = n.Normalized * c.Weight / 100
	return n, nil
}
