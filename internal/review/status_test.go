package review

import "testing"

func TestDeriveStatus(t *testing.T) {
	criteria := []Criterion{crit("c1", 30, 10), crit("c2", 30, 10), crit("c3", 40, 10)}

	if got := DeriveStatus(criteria, nil); got != StatusNotStarted {
		t.Fatalf("no scores: status = %q, want not_started", got)
	}

	one := []Score{nativeScore("c1", 5)}
	if got := DeriveStatus(criteria, one); got != StatusInProgress {
		t.Fatalf("one of three: status = %q, want in_progress", got)
	}

	all := []Score{nativeScore("c1", 5), nativeScore("c2", 7), nativeScore("c3", 9)}
	if got := DeriveStatus(criteria, all); got != StatusCompleted {
		t.Fatalf("all scored: status = %q, want completed", got)
	}
}

func TestDeriveStatusNACountsAsScored(t *testing.T) {
	criteria := []Criterion{crit("c1", 50, 10), crit("c2", 50, 10)}
	scores := []Score{
		nativeScore("c1", 10),
		{ID: "s-c2", CriteriaID: "c2", IsNA: true, Kind: KindNative},
	}
	if got := DeriveStatus(criteria, scores); got != StatusCompleted {
		t.Fatalf("NA row should complete the review, got %q", got)
	}
}

func TestDeriveStatusIgnoresInactiveCriteria(t *testing.T) {
	inactive := crit("dead", 20, 10)
	inactive.IsActive = false
	criteria := []Criterion{crit("c1", 80, 10), inactive}
	if got := DeriveStatus(criteria, []Score{nativeScore("c1", 4)}); got != StatusCompleted {
		t.Fatalf("inactive criterion must not block completion, got %q", got)
	}
}

func TestDeriveStatusNilRawNotScored(t *testing.T) {
	criteria := []Criterion{crit("c1", 100, 10)}
	scores := []Score{{ID: "s-c1", CriteriaID: "c1", Kind: KindNative}} // row exists, raw nil, not NA
	if got := DeriveStatus(criteria, scores); got != StatusNotStarted {
		t.Fatalf("nil raw without NA should not count, got %q", got)
	}
}
