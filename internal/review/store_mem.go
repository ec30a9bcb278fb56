package review

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps the whole workflow in maps. It backs handler tests and
// the offline demo mode; the SQL store is the real persistence layer.
type MemoryStore struct {
	mu          sync.RWMutex
	criteria    map[string][]Criterion // programID -> active criteria
	programByAp map[string]string      // applicationID -> programID
	assignments map[string]Assignment
	reviews     map[string]Review  // assignmentID -> review
	scores      map[string][]Score // reviewID -> scores
	appScores   map[string]float64
}

func NewInMemoryStore() *MemoryStore {
	return &MemoryStore{
		criteria:    map[string][]Criterion{},
		programByAp: map[string]string{},
		assignments: map[string]Assignment{},
		reviews:     map[string]Review{},
		scores:      map[string][]Score{},
		appScores:   map[string]float64{},
	}
}

// SeedProgram registers an application with its program's criteria.
func (m *MemoryStore) SeedProgram(programID, applicationID string, criteria []Criterion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.criteria[programID] = criteria
	m.programByAp[applicationID] = programID
}

// SeedLegacyReview installs a pre-criteria review for an assignment.
func (m *MemoryStore) SeedLegacyReview(assignmentID string, overall float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews[assignmentID] = Review{
		ID:           uuid.NewString(),
		AssignmentID: assignmentID,
		OverallScore: &overall,
		CreatedAt:    time.Now().Unix(),
		UpdatedAt:    time.Now().Unix(),
	}
}

func (m *MemoryStore) CreateAssignment(_ context.Context, in NewAssignment, assignedBy string) (Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	programID, ok := m.programByAp[in.ApplicationID]
	if !ok {
		return Assignment{}, invalidf("application_id", "application %s does not exist", in.ApplicationID)
	}
	for _, a := range m.assignments {
		if a.ApplicationID == in.ApplicationID && a.ReviewerID == in.ReviewerID {
			return Assignment{}, ErrDuplicate
		}
	}
	a := Assignment{
		ID:            uuid.NewString(),
		ApplicationID: in.ApplicationID,
		ProgramID:     programID,
		ReviewerID:    in.ReviewerID,
		AssignedBy:    assignedBy,
		Status:        StatusNotStarted,
		Deadline:      in.Deadline,
		AssignedAt:    time.Now().Unix(),
	}
	m.assignments[a.ID] = a
	return a, nil
}

func (m *MemoryStore) GetAssignment(_ context.Context, id string) (Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return Assignment{}, ErrNotFound
	}
	return a, nil
}

func (m *MemoryStore) ListAssignments(_ context.Context, opts AssignmentListOpts) ([]Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Assignment{}
	for _, a := range m.assignments {
		if opts.ApplicationID != "" && a.ApplicationID != opts.ApplicationID {
			continue
		}
		if opts.ReviewerID != "" && a.ReviewerID != opts.ReviewerID {
			continue
		}
		if opts.ProgramID != "" && a.ProgramID != opts.ProgramID {
			continue
		}
		if opts.Status != "" && a.Status != opts.Status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *MemoryStore) owned(assignmentID, reviewerID string) (Assignment, error) {
	a, ok := m.assignments[assignmentID]
	if !ok || a.ReviewerID != reviewerID {
		return Assignment{}, ErrNotFound
	}
	return a, nil
}

func (m *MemoryStore) GetScores(_ context.Context, assignmentID, reviewerID string) (ScoreSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, err := m.owned(assignmentID, reviewerID)
	if err != nil {
		return ScoreSet{}, err
	}
	criteria := m.criteria[a.ProgramID]
	rev, ok := m.reviews[assignmentID]
	if !ok {
		return ScoreSet{Scores: []Score{}, Status: StatusNotStarted}, nil
	}
	rec := Reconcile(rev, criteria, m.scores[rev.ID])
	status := StatusCompleted
	if !rec.IsLegacy {
		status = DeriveStatus(criteria, rec.Scores)
	}
	if rec.Scores == nil {
		rec.Scores = []Score{}
	}
	return ScoreSet{Scores: attachCriteria(rec.Scores, criteria), Status: status, IsLegacy: rec.IsLegacy}, nil
}

func (m *MemoryStore) SubmitScores(_ context.Context, assignmentID, reviewerID string, inputs []ScoreInput) (SubmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.owned(assignmentID, reviewerID)
	if err != nil {
		return SubmitResult{}, err
	}
	criteria := m.criteria[a.ProgramID]
	byID := make(map[string]Criterion, len(criteria))
	for _, c := range criteria {
		byID[c.ID] = c
	}

	rev, ok := m.reviews[assignmentID]
	if ok && len(m.scores[rev.ID]) == 0 && rev.OverallScore != nil {
		return SubmitResult{}, ErrLegacyReview
	}
	now := time.Now().Unix()
	if !ok {
		rev = Review{ID: uuid.NewString(), AssignmentID: assignmentID, CreatedAt: now, UpdatedAt: now}
		m.reviews[assignmentID] = rev
	}

	for _, in := range inputs {
		c, ok := byID[in.CriteriaID]
		if !ok {
			return SubmitResult{}, invalidf("criteria_id", "%s is not an active criterion of this program", in.CriteriaID)
		}
		sc := Score{
			ID:            uuid.NewString(),
			ReviewID:      rev.ID,
			CriteriaID:    in.CriteriaID,
			WeightApplied: c.Weight,
			Rationale:     in.Rationale,
			Confidence:    in.Confidence,
			IsNA:          in.IsNA,
			Kind:          KindNative,
		}
		if !in.IsNA {
			n, err := NormalizeScore(c, in)
			if err != nil {
				return SubmitResult{}, err
			}
			raw := n.Raw
			sc.RawScore = &raw
			sc.NormalizedScore = n.Normalized
			sc.WeightedScore = n.Weighted
			sc.RubricLevel = n.RubricLevel
		}
		m.upsertScore(rev.ID, sc)
	}

	scores := m.scores[rev.ID]
	pct := ComputeOverallScore(criteria, scoreIndex(scores))
	band := RescaleToLegacyBand(pct)
	overall := float64(band)
	rev.OverallScore = &overall
	rev.UpdatedAt = now
	m.reviews[assignmentID] = rev

	status := DeriveStatus(criteria, scores)
	a.Status = status
	if status == StatusCompleted {
		a.CompletedAt = &now
	} else {
		a.CompletedAt = nil
	}
	m.assignments[assignmentID] = a
	m.recomputeAppLocked(a.ApplicationID)

	return SubmitResult{Scores: attachCriteria(scores, criteria), Status: status, OverallScore: pct, LegacyBand: band}, nil
}

func (m *MemoryStore) upsertScore(reviewID string, sc Score) {
	list := m.scores[reviewID]
	for i, old := range list {
		if old.CriteriaID == sc.CriteriaID {
			sc.ID = old.ID // last write wins, row identity survives
			list[i] = sc
			m.scores[reviewID] = list
			return
		}
	}
	m.scores[reviewID] = append(list, sc)
}

func (m *MemoryStore) ClearScores(_ context.Context, assignmentID, reviewerID string) (Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, err := m.owned(assignmentID, reviewerID)
	if err != nil {
		return Assignment{}, err
	}
	if rev, ok := m.reviews[assignmentID]; ok {
		if len(m.scores[rev.ID]) == 0 && rev.OverallScore != nil {
			return Assignment{}, ErrLegacyReview
		}
		delete(m.scores, rev.ID)
		rev.OverallScore = nil
		rev.UpdatedAt = time.Now().Unix()
		m.reviews[assignmentID] = rev
	}
	a.Status = StatusNotStarted
	a.CompletedAt = nil
	m.assignments[assignmentID] = a
	m.recomputeAppLocked(a.ApplicationID)
	return a, nil
}

func (m *MemoryStore) UpdateFeedback(_ context.Context, assignmentID, reviewerID string, in FeedbackInput) (Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.owned(assignmentID, reviewerID); err != nil {
		return Review{}, err
	}
	now := time.Now().Unix()
	rev, ok := m.reviews[assignmentID]
	if ok && len(m.scores[rev.ID]) == 0 && rev.OverallScore != nil {
		return Review{}, ErrLegacyReview
	}
	if !ok {
		rev = Review{ID: uuid.NewString(), AssignmentID: assignmentID, CreatedAt: now}
	}
	if in.Comments != nil {
		rev.Comments = *in.Comments
	}
	if in.Strengths != nil {
		rev.Strengths = *in.Strengths
	}
	if in.Weaknesses != nil {
		rev.Weaknesses = *in.Weaknesses
	}
	if in.Recommendation != nil {
		rev.Recommendation = *in.Recommendation
	}
	rev.UpdatedAt = now
	m.reviews[assignmentID] = rev
	return rev, nil
}

func (m *MemoryStore) recomputeAppLocked(applicationID string) {
	var sum float64
	n := 0
	for _, a := range m.assignments {
		if a.ApplicationID != applicationID || a.Status != StatusCompleted {
			continue
		}
		rev, ok := m.reviews[a.ID]
		if !ok {
			continue
		}
		sum += ComputeOverallScore(m.criteria[a.ProgramID], scoreIndex(m.scores[rev.ID]))
		n++
	}
	if n > 0 {
		m.appScores[applicationID] = sum / float64(n)
	} else {
		delete(m.appScores, applicationID)
	}
}
