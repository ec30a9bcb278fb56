package review

// Legacy reviews predate per-criterion scoring: they carry a single
// overall_score and no score rows. Reconcile detects that era and
// manufactures one synthetic score per active criterion so everything
// downstream (aggregation, completion checks, display) operates on one
// shape regardless of when the review was written.

const legacyIDPrefix = "legacy_"

// legacyScaleMax interprets stored legacy overall_score values. The old
// form captured 1-10; the per-criterion breakdown never existed, so the
// score is spread as an equal percentage share across every criterion.
const legacyScaleMax = 10.0

// Reconciled is the uniform output: persisted scores pass through
// untouched, legacy reviews come back as synthetic rows tagged read-only.
type Reconciled struct {
	Scores   []Score
	IsLegacy bool
}

// Reconcile returns the persisted scores when any exist. When none exist
// and the review carries a legacy overall_score, it synthesizes one score
// per active criterion with id "legacy_<criteria_id>" so consumers can
// detect and refuse edits.
func Reconcile(rev Review, criteria []Criterion, persisted []Score) Reconciled {
	if len(persisted) > 0 || rev.OverallScore == nil {
		return Reconciled{Scores: persisted}
	}

	pct := *rev.OverallScore / legacyScaleMax
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}

	out := make([]Score, 0, len(criteria))
	for _, c := range criteria {
		if !c.IsActive {
			continue
		}
		raw := pct * c.MaxScore
		out = append(out, Score{
			ID:              legacyIDPrefix + c.ID,
			ReviewID:        rev.ID,
			CriteriaID:      c.ID,
			RawScore:        &raw,
			NormalizedScore: pct * 100,
			WeightApplied:   c.Weight,
			WeightedScore:   pct * c.Weight,
			Kind:            KindSynthetic,
		})
	}
	return Reconciled{Scores: out, IsLegacy: true}
}

// IsSyntheticID reports whether a score id marks a reconciled legacy row.
func IsSyntheticID(id string) bool {
	return len(id) > len(legacyIDPrefix) && id[:len(legacyIDPrefix)] == legacyIDPrefix
}
