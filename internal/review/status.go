package review

// DeriveStatus computes assignment status as a pure function of the
// persisted scores: completed iff every active criterion has a row with a
// raw value or an NA flag, in_progress if anything has been scored,
// not_started otherwise. The stored status column is only a cache of this.
func DeriveStatus(criteria []Criterion, scores []Score) string {
	idx := scoreIndex(scores)
	scored := 0
	allScored := true
	for _, c := range criteria {
		if !c.IsActive {
			continue
		}
		s, ok := idx[c.ID]
		if !ok || (s.RawScore == nil && !s.IsNA) {
			allScored = false
			continue
		}
		scored++
	}
	switch {
	case scored == 0:
		return StatusNotStarted
	case allScored:
		return StatusCompleted
	default:
		return StatusInProgress
	}
}
