package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLStore works against either supported driver: the SQL it emits sticks
// to the subset sqlite and postgres share, $N placeholders included.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) CreateAssignment(ctx context.Context, in NewAssignment, assignedBy string) (Assignment, error) {
	var programID string
	err := s.db.QueryRowContext(ctx, `SELECT program_id FROM applications WHERE id=$1`, in.ApplicationID).Scan(&programID)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, invalidf("application_id", "application %s does not exist", in.ApplicationID)
	}
	if err != nil {
		return Assignment{}, err
	}

	var exist int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM review_assignments WHERE application_id=$1 AND reviewer_id=$2`,
		in.ApplicationID, in.ReviewerID).Scan(&exist)
	if err == nil {
		return Assignment{}, ErrDuplicate
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, err
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
	var deadline *int64
	if a.Deadline > 0 {
		deadline = &a.Deadline
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO review_assignments (id, application_id, reviewer_id, assigned_by, status, deadline, assigned_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.ApplicationID, a.ReviewerID, a.AssignedBy, a.Status, deadline, a.AssignedAt)
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

func (s *SQLStore) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	return s.scanAssignment(s.db.QueryRowContext(ctx, `
		SELECT a.id, a.application_id, app.program_id, a.reviewer_id, a.assigned_by,
		       a.status, a.deadline, a.assigned_at, a.completed_at
		FROM review_assignments a
		JOIN applications app ON app.id = a.application_id
		WHERE a.id=$1`, id))
}

// assignmentOwned is the authorization gate: an assignment that exists but
// belongs to another reviewer is indistinguishable from one that does not
// exist.
func (s *SQLStore) assignmentOwned(ctx context.Context, assignmentID, reviewerID string) (Assignment, error) {
	return s.scanAssignment(s.db.QueryRowContext(ctx, `
		SELECT a.id, a.application_id, app.program_id, a.reviewer_id, a.assigned_by,
		       a.status, a.deadline, a.assigned_at, a.completed_at
		FROM review_assignments a
		JOIN applications app ON app.id = a.application_id
		WHERE a.id=$1 AND a.reviewer_id=$2`, assignmentID, reviewerID))
}

func (s *SQLStore) scanAssignment(row *sql.Row) (Assignment, error) {
	var a Assignment
	var deadline, completed sql.NullInt64
	err := row.Scan(&a.ID, &a.ApplicationID, &a.ProgramID, &a.ReviewerID, &a.AssignedBy,
		&a.Status, &deadline, &a.AssignedAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return Assignment{}, ErrNotFound
	}
	if err != nil {
		return Assignment{}, err
	}
	if deadline.Valid {
		a.Deadline = deadline.Int64
	}
	if completed.Valid {
		v := completed.Int64
		a.CompletedAt = &v
	}
	a.Overdue = a.Deadline > 0 && a.CompletedAt == nil && time.Now().Unix() > a.Deadline
	return a, nil
}

func (s *SQLStore) ListAssignments(ctx context.Context, opts AssignmentListOpts) ([]Assignment, error) {
	q := `
		SELECT a.id, a.application_id, app.program_id, a.reviewer_id, a.assigned_by,
		       a.status, a.deadline, a.assigned_at, a.completed_at
		FROM review_assignments a
		JOIN applications app ON app.id = a.application_id
		WHERE 1=1`
	args := []any{}
	add := func(cond string, v any) {
		args = append(args, v)
		q += cond + placeholder(len(args))
	}
	if opts.ApplicationID != "" {
		add(` AND a.application_id=`, opts.ApplicationID)
	}
	if opts.ReviewerID != "" {
		add(` AND a.reviewer_id=`, opts.ReviewerID)
	}
	if opts.ProgramID != "" {
		add(` AND app.program_id=`, opts.ProgramID)
	}
	if opts.Status != "" {
		add(` AND a.status=`, opts.Status)
	}
	q += ` ORDER BY a.assigned_at DESC`
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	add(` LIMIT `, limit)
	add(` OFFSET `, max(opts.Offset, 0))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now().Unix()
	out := []Assignment{}
	for rows.Next() {
		var a Assignment
		var deadline, completed sql.NullInt64
		if err := rows.Scan(&a.ID, &a.ApplicationID, &a.ProgramID, &a.ReviewerID, &a.AssignedBy,
			&a.Status, &deadline, &a.AssignedAt, &completed); err != nil {
			return nil, err
		}
		if deadline.Valid {
			a.Deadline = deadline.Int64
		}
		if completed.Valid {
			v := completed.Int64
			a.CompletedAt = &v
		}
		a.Overdue = a.Deadline > 0 && a.CompletedAt == nil && now > a.Deadline
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetScores(ctx context.Context, assignmentID, reviewerID string) (ScoreSet, error) {
	a, err := s.assignmentOwned(ctx, assignmentID, reviewerID)
	if err != nil {
		return ScoreSet{}, err
	}
	criteria, err := s.ActiveCriteria(ctx, a.ProgramID)
	if err != nil {
		return ScoreSet{}, err
	}

	rev, ok, err := s.reviewByAssignment(ctx, assignmentID)
	if err != nil {
		return ScoreSet{}, err
	}
	if !ok {
		return ScoreSet{Scores: []Score{}, Status: StatusNotStarted}, nil
	}

	persisted, err := s.scoresForReview(ctx, rev.ID)
	if err != nil {
		return ScoreSet{}, err
	}
	rec := Reconcile(rev, criteria, persisted)
	status := StatusCompleted
	if !rec.IsLegacy {
		status = DeriveStatus(criteria, rec.Scores)
	}
	if rec.Scores == nil {
		rec.Scores = []Score{}
	}
	return ScoreSet{Scores: attachCriteria(rec.Scores, criteria), Status: status, IsLegacy: rec.IsLegacy}, nil
}

func (s *SQLStore) SubmitScores(ctx context.Context, assignmentID, reviewerID string, inputs []ScoreInput) (SubmitResult, error) {
	a, err := s.assignmentOwned(ctx, assignmentID, reviewerID)
	if err != nil {
		return SubmitResult{}, err
	}
	criteria, err := s.ActiveCriteria(ctx, a.ProgramID)
	if err != nil {
		return SubmitResult{}, err
	}
	byID := make(map[string]Criterion, len(criteria))
	for _, c := range criteria {
		byID[c.ID] = c
	}

	// Validate the whole payload before touching the database.
	type prepared struct {
		in   ScoreInput
		c    Criterion
		norm normalized
	}
	preps := make([]prepared, 0, len(inputs))
	for _, in := range inputs {
		c, ok := byID[in.CriteriaID]
		if !ok {
			return SubmitResult{}, invalidf("criteria_id", "%s is not an active criterion of this program", in.CriteriaID)
		}
		p := prepared{in: in, c: c}
		if !in.IsNA {
			n, err := NormalizeScore(c, in)
			if err != nil {
				return SubmitResult{}, err
			}
			p.norm = n
		}
		preps = append(preps, p)
	}

	rev, ok, err := s.reviewByAssignment(ctx, assignmentID)
	if err != nil {
		return SubmitResult{}, err
	}
	now := time.Now().Unix()
	if !ok {
		// Lazy creation: first score write brings the review row into
		// existence with no overall score yet.
		rev = Review{ID: uuid.NewString(), AssignmentID: assignmentID, CreatedAt: now, UpdatedAt: now}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO reviews (id, assignment_id, created_at, updated_at) VALUES ($1,$2,$3,$4)`,
			rev.ID, rev.AssignmentID, rev.CreatedAt, rev.UpdatedAt)
		if err != nil {
			return SubmitResult{}, err
		}
	} else {
		existing, err := s.scoresForReview(ctx, rev.ID)
		if err != nil {
			return SubmitResult{}, err
		}
		if len(existing) == 0 && rev.OverallScore != nil {
			return SubmitResult{}, ErrLegacyReview
		}
	}

	// Upsert-by-unique-key: resubmitting a criterion overwrites its row.
	for _, p := range preps {
		var raw *float64
		var level string
		var norm, weighted float64
		if !p.in.IsNA {
			v := p.norm.Raw
			raw = &v
			norm = p.norm.Normalized
			weighted = p.norm.Weighted
			level = p.norm.RubricLevel
		}
		var conf *int
		if p.in.Confidence > 0 {
			v := p.in.Confidence
			conf = &v
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO review_scores
			  (id, review_id, criteria_id, raw_score, normalized_score, weight_applied,
			   weighted_score, rubric_level, score_rationale, reviewer_confidence, is_na, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (review_id, criteria_id) DO UPDATE SET
			  raw_score=EXCLUDED.raw_score,
			  normalized_score=EXCLUDED.normalized_score,
			  weight_applied=EXCLUDED.weight_applied,
			  weighted_score=EXCLUDED.weighted_score,
			  rubric_level=EXCLUDED.rubric_level,
			  score_rationale=EXCLUDED.score_rationale,
			  reviewer_confidence=EXCLUDED.reviewer_confidence,
			  is_na=EXCLUDED.is_na,
			  updated_at=EXCLUDED.updated_at`,
			uuid.NewString(), rev.ID, p.in.CriteriaID, raw, norm, p.c.Weight,
			weighted, level, p.in.Rationale, conf, p.in.IsNA, now)
		if err != nil {
			return SubmitResult{}, err
		}
	}

	scores, err := s.scoresForReview(ctx, rev.ID)
	if err != nil {
		return SubmitResult{}, err
	}
	pct := ComputeOverallScore(criteria, scoreIndex(scores))
	band := RescaleToLegacyBand(pct)

	res := SubmitResult{Scores: attachCriteria(scores, criteria), OverallScore: pct, LegacyBand: band}

	// The score write above is the primary operation. Everything below is
	// derived state: failures are logged and reported, never rolled back.
	var warnings []string
	if _, err := s.db.ExecContext(ctx,
		`UPDATE reviews SET overall_score=$1, updated_at=$2 WHERE id=$3`,
		float64(band), now, rev.ID); err != nil {
		log.Printf("review %s: overall score sync failed: %v", rev.ID, err)
		warnings = append(warnings, "overall score may be stale")
	}

	status := DeriveStatus(criteria, scores)
	res.Status = status
	var completedAt *int64
	if status == StatusCompleted {
		completedAt = &now
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE review_assignments SET status=$1, completed_at=$2 WHERE id=$3`,
		status, completedAt, assignmentID); err != nil {
		log.Printf("assignment %s: status update failed: %v", assignmentID, err)
		warnings = append(warnings, "assignment status may be stale")
	}

	if err := s.RecomputeApplicationScore(ctx, a.ApplicationID); err != nil {
		log.Printf("application %s: aggregate recompute failed: %v", a.ApplicationID, err)
		warnings = append(warnings, "application aggregate not refreshed")
	}
	if len(warnings) > 0 {
		res.Warning = "scores saved; " + strings.Join(warnings, "; ")
	}
	s.appendEvent(ctx, "ScoresSubmitted", assignmentID, map[string]any{
		"reviewer_id": reviewerID,
		"count":       len(preps),
		"status":      status,
	})
	return res, nil
}

func (s *SQLStore) ClearScores(ctx context.Context, assignmentID, reviewerID string) (Assignment, error) {
	a, err := s.assignmentOwned(ctx, assignmentID, reviewerID)
	if err != nil {
		return Assignment{}, err
	}
	rev, ok, err := s.reviewByAssignment(ctx, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if ok {
		existing, err := s.scoresForReview(ctx, rev.ID)
		if err != nil {
			return Assignment{}, err
		}
		if len(existing) == 0 && rev.OverallScore != nil {
			return Assignment{}, ErrLegacyReview
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM review_scores WHERE review_id=$1`, rev.ID); err != nil {
			return Assignment{}, err
		}
		// The review row stays: "scores cleared" is not "never scored".
		if _, err := s.db.ExecContext(ctx,
			`UPDATE reviews SET overall_score=NULL, updated_at=$1 WHERE id=$2`,
			time.Now().Unix(), rev.ID); err != nil {
			return Assignment{}, err
		}
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE review_assignments SET status=$1, completed_at=NULL WHERE id=$2`,
		StatusNotStarted, assignmentID); err != nil {
		return Assignment{}, err
	}
	if err := s.RecomputeApplicationScore(ctx, a.ApplicationID); err != nil {
		log.Printf("application %s: aggregate recompute failed: %v", a.ApplicationID, err)
	}
	s.appendEvent(ctx, "ScoresCleared", assignmentID, map[string]any{"reviewer_id": reviewerID})
	return s.assignmentOwned(ctx, assignmentID, reviewerID)
}

func (s *SQLStore) UpdateFeedback(ctx context.Context, assignmentID, reviewerID string, in FeedbackInput) (Review, error) {
	if _, err := s.assignmentOwned(ctx, assignmentID, reviewerID); err != nil {
		return Review{}, err
	}
	rev, ok, err := s.reviewByAssignment(ctx, assignmentID)
	if err != nil {
		return Review{}, err
	}
	now := time.Now().Unix()
	if ok {
		existing, err := s.scoresForReview(ctx, rev.ID)
		if err != nil {
			return Review{}, err
		}
		if len(existing) == 0 && rev.OverallScore != nil {
			return Review{}, ErrLegacyReview
		}
	} else {
		rev = Review{ID: uuid.NewString(), AssignmentID: assignmentID, CreatedAt: now, UpdatedAt: now}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO reviews (id, assignment_id, created_at, updated_at) VALUES ($1,$2,$3,$4)`,
			rev.ID, rev.AssignmentID, rev.CreatedAt, rev.UpdatedAt); err != nil {
			return Review{}, err
		}
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
	_, err = s.db.ExecContext(ctx, `
		UPDATE reviews SET comments=$1, strengths=$2, weaknesses=$3, recommendation=$4, updated_at=$5
		WHERE id=$6`,
		rev.Comments, rev.Strengths, rev.Weaknesses, rev.Recommendation, rev.UpdatedAt, rev.ID)
	if err != nil {
		return Review{}, err
	}
	return rev, nil
}

// ActiveCriteria returns the active criteria of a program in display order.
func (s *SQLStore) ActiveCriteria(ctx context.Context, programID string) ([]Criterion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program_id, name, description, scoring_type, weight, min_score, max_score,
		       rubric_json, display_order, is_required, is_active
		FROM review_criteria
		WHERE program_id=$1 AND is_active
		ORDER BY display_order, name`, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Criterion{}
	for rows.Next() {
		var c Criterion
		var rubric string
		if err := rows.Scan(&c.ID, &c.ProgramID, &c.Name, &c.Description, &c.ScoringType,
			&c.Weight, &c.MinScore, &c.MaxScore, &rubric, &c.DisplayOrder, &c.IsRequired, &c.IsActive); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(rubric), &c.Rubric); err != nil {
			c.Rubric = nil
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecomputeApplicationScore refreshes the denormalized per-application
// percentage: the mean of completed reviews' aggregates. Legacy reviews
// contribute through their overall_score band.
func (s *SQLStore) RecomputeApplicationScore(ctx context.Context, applicationID string) error {
	assignments, err := s.ListAssignments(ctx, AssignmentListOpts{ApplicationID: applicationID, Status: StatusCompleted, Limit: 200})
	if err != nil {
		return err
	}
	var sum float64
	n := 0
	for _, a := range assignments {
		set, err := s.GetScores(ctx, a.ID, a.ReviewerID)
		if err != nil {
			return err
		}
		criteria, err := s.ActiveCriteria(ctx, a.ProgramID)
		if err != nil {
			return err
		}
		sum += ComputeOverallScore(criteria, scoreIndex(set.Scores))
		n++
	}
	var avg *float64
	if n > 0 {
		v := sum / float64(n)
		avg = &v
	}
	_, err = s.db.ExecContext(ctx, `UPDATE applications SET average_score=$1 WHERE id=$2`, avg, applicationID)
	return err
}

func (s *SQLStore) reviewByAssignment(ctx context.Context, assignmentID string) (Review, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, assignment_id, overall_score, comments, strengths, weaknesses, recommendation,
		       created_at, updated_at
		FROM reviews WHERE assignment_id=$1`, assignmentID)
	var r Review
	var overall sql.NullFloat64
	err := row.Scan(&r.ID, &r.AssignmentID, &overall, &r.Comments, &r.Strengths, &r.Weaknesses,
		&r.Recommendation, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Review{}, false, nil
	}
	if err != nil {
		return Review{}, false, err
	}
	if overall.Valid {
		v := overall.Float64
		r.OverallScore = &v
	}
	return r, true, nil
}

func (s *SQLStore) scoresForReview(ctx context.Context, reviewID string) ([]Score, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, review_id, criteria_id, raw_score, normalized_score, weight_applied,
		       weighted_score, rubric_level, score_rationale, reviewer_confidence, is_na
		FROM review_scores WHERE review_id=$1`, reviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Score{}
	for rows.Next() {
		var sc Score
		var raw sql.NullFloat64
		var conf sql.NullInt64
		if err := rows.Scan(&sc.ID, &sc.ReviewID, &sc.CriteriaID, &raw, &sc.NormalizedScore,
			&sc.WeightApplied, &sc.WeightedScore, &sc.RubricLevel, &sc.Rationale, &conf, &sc.IsNA); err != nil {
			return nil, err
		}
		if raw.Valid {
			v := raw.Float64
			sc.RawScore = &v
		}
		if conf.Valid {
			sc.Confidence = int(conf.Int64)
		}
		sc.Kind = KindNative
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLStore) appendEvent(ctx context.Context, typ, key string, payload any) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO review_events (typ, key, data, created_at) VALUES ($1,$2,$3,$4)`,
		typ, key, string(buf), time.Now().Unix()); err != nil {
		log.Printf("event %s %s: append failed: %v", typ, key, err)
	}
}

// Both drivers used here accept $N positional parameters.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}
