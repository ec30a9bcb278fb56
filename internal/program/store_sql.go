package program

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shandley/convene-sub000/internal/review"
)

var ErrNotFound = errors.New("not found")

type Store interface {
	CreateProgram(ctx context.Context, in NewProgram, createdBy string) (Program, error)
	GetProgram(ctx context.Context, id string) (Program, error)
	ListPrograms(ctx context.Context, opts ListOpts) ([]Program, error)

	CreateApplication(ctx context.Context, programID, applicantID string) (Application, error)
	ListApplications(ctx context.Context, programID string, opts ListOpts) ([]Application, error)
	// ListOwnApplications is the applicant-facing view: only their rows,
	// across all programs.
	ListOwnApplications(ctx context.Context, applicantID string, opts ListOpts) ([]Application, error)

	// UpsertCriterion creates or replaces a scoring criterion. Weights are
	// not forced to sum to 100 across a program; the aggregator
	// re-normalizes, so drift is tolerated rather than rejected.
	UpsertCriterion(ctx context.Context, c review.Criterion) (review.Criterion, error)
	// DisableCriterion soft-disables: historical scores keep their
	// criterion reference.
	DisableCriterion(ctx context.Context, id string) error
	ListCriteria(ctx context.Context, programID string, includeInactive bool) ([]review.Criterion, error)
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) CreateProgram(ctx context.Context, in NewProgram, createdBy string) (Program, error) {
	p := Program{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Status:      "draft",
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().Unix(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO programs (id, name, description, status, created_by, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.Name, p.Description, p.Status, p.CreatedBy, p.CreatedAt)
	if err != nil {
		return Program{}, err
	}
	return p, nil
}

func (s *SQLStore) GetProgram(ctx context.Context, id string) (Program, error) {
	var p Program
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, status, created_by, created_at FROM programs WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Program{}, ErrNotFound
	}
	return p, err
}

func (s *SQLStore) ListPrograms(ctx context.Context, opts ListOpts) ([]Program, error) {
	q := `SELECT id, name, description, status, created_by, created_at FROM programs WHERE 1=1`
	args := []any{}
	if opts.Q != "" {
		args = append(args, "%"+opts.Q+"%")
		q += fmt.Sprintf(` AND name LIKE $%d`, len(args))
	}
	if opts.Status != "" {
		args = append(args, opts.Status)
		q += fmt.Sprintf(` AND status=$%d`, len(args))
	}
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))
	args = append(args, max(opts.Offset, 0))
	q += fmt.Sprintf(` OFFSET $%d`, len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Program{}
	for rows.Next() {
		var p Program
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Status, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) CreateApplication(ctx context.Context, programID, applicantID string) (Application, error) {
	if _, err := s.GetProgram(ctx, programID); err != nil {
		return Application{}, err
	}
	a := Application{
		ID:          uuid.NewString(),
		ProgramID:   programID,
		ApplicantID: applicantID,
		Status:      "submitted",
		SubmittedAt: time.Now().Unix(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (id, program_id, applicant_id, status, submitted_at) VALUES ($1,$2,$3,$4,$5)`,
		a.ID, a.ProgramID, a.ApplicantID, a.Status, a.SubmittedAt)
	if err != nil {
		return Application{}, err
	}
	return a, nil
}

func (s *SQLStore) ListApplications(ctx context.Context, programID string, opts ListOpts) ([]Application, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program_id, applicant_id, status, average_score, submitted_at
		FROM applications WHERE program_id=$1
		ORDER BY submitted_at DESC LIMIT $2 OFFSET $3`,
		programID, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Application{}
	for rows.Next() {
		var a Application
		var avg sql.NullFloat64
		if err := rows.Scan(&a.ID, &a.ProgramID, &a.ApplicantID, &a.Status, &avg, &a.SubmittedAt); err != nil {
			return nil, err
		}
		if avg.Valid {
			v := avg.Float64
			a.AverageScore = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListOwnApplications(ctx context.Context, applicantID string, opts ListOpts) ([]Application, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, program_id, applicant_id, status, average_score, submitted_at
		FROM applications WHERE applicant_id=$1
		ORDER BY submitted_at DESC LIMIT $2 OFFSET $3`,
		applicantID, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Application{}
	for rows.Next() {
		var a Application
		var avg sql.NullFloat64
		if err := rows.Scan(&a.ID, &a.ProgramID, &a.ApplicantID, &a.Status, &avg, &a.SubmittedAt); err != nil {
			return nil, err
		}
		if avg.Valid {
			v := avg.Float64
			a.AverageScore = &v
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) UpsertCriterion(ctx context.Context, c review.Criterion) (review.Criterion, error) {
	if err := validateCriterion(&c); err != nil {
		return review.Criterion{}, err
	}
	if _, err := s.GetProgram(ctx, c.ProgramID); err != nil {
		return review.Criterion{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	rubric, err := json.Marshal(c.Rubric)
	if err != nil {
		return review.Criterion{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO review_criteria
		  (id, program_id, name, description, scoring_type, weight, min_score, max_score,
		   rubric_json, display_order, is_required, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
		  name=EXCLUDED.name,
		  description=EXCLUDED.description,
		  scoring_type=EXCLUDED.scoring_type,
		  weight=EXCLUDED.weight,
		  min_score=EXCLUDED.min_score,
		  max_score=EXCLUDED.max_score,
		  rubric_json=EXCLUDED.rubric_json,
		  display_order=EXCLUDED.display_order,
		  is_required=EXCLUDED.is_required,
		  is_active=EXCLUDED.is_active`,
		c.ID, c.ProgramID, c.Name, c.Description, c.ScoringType, c.Weight, c.MinScore, c.MaxScore,
		string(rubric), c.DisplayOrder, c.IsRequired, c.IsActive)
	if err != nil {
		return review.Criterion{}, err
	}
	return c, nil
}

func (s *SQLStore) DisableCriterion(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE review_criteria SET is_active=$1 WHERE id=$2`, false, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListCriteria(ctx context.Context, programID string, includeInactive bool) ([]review.Criterion, error) {
	q := `
		SELECT id, program_id, name, description, scoring_type, weight, min_score, max_score,
		       rubric_json, display_order, is_required, is_active
		FROM review_criteria WHERE program_id=$1`
	if !includeInactive {
		q += ` AND is_active`
	}
	q += ` ORDER BY display_order, name`
	rows, err := s.db.QueryContext(ctx, q, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []review.Criterion{}
	for rows.Next() {
		var c review.Criterion
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

func validateCriterion(c *review.Criterion) error {
	if c.Name == "" {
		return &review.ValidationError{Field: "name", Msg: "required"}
	}
	switch c.ScoringType {
	case review.ScoringNumeric, review.ScoringBinary:
	case review.ScoringCategorical:
		if len(c.Rubric) == 0 {
			return &review.ValidationError{Field: "rubric", Msg: "categorical criterion needs rubric levels"}
		}
	default:
		return &review.ValidationError{Field: "scoring_type", Msg: fmt.Sprintf("unknown scoring type %q", c.ScoringType)}
	}
	if c.MaxScore <= c.MinScore {
		return &review.ValidationError{Field: "max_score", Msg: "must exceed min_score"}
	}
	if c.Weight < 0 {
		return &review.ValidationError{Field: "weight", Msg: "must not be negative"}
	}
	return nil
}
