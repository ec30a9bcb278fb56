package review

// Scoring types supported by criteria. Unknown types are rejected when
// criteria are written, so downstream code can assume one of these.
const (
	ScoringNumeric     = "numeric"
	ScoringCategorical = "categorical"
	ScoringBinary      = "binary"
)

// Assignment status values. Status is derived from persisted scores
// (see DeriveStatus); the column is a cache, not a source of truth.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type RubricLevel struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Value       float64 `json:"value"`
}

type Criterion struct {
	ID           string        `json:"id"`
	ProgramID    string        `json:"program_id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	ScoringType  string        `json:"scoring_type"` // numeric|categorical|binary
	Weight       float64       `json:"weight"`       // percentage points; not forced to sum to 100
	MinScore     float64       `json:"min_score"`
	MaxScore     float64       `json:"max_score"`
	Rubric       []RubricLevel `json:"rubric,omitempty"`
	DisplayOrder int           `json:"display_order"`
	IsRequired   bool          `json:"is_required"`
	IsActive     bool          `json:"is_active"`
}

type Assignment struct {
	ID            string `json:"id"`
	ApplicationID string `json:"application_id"`
	ProgramID     string `json:"program_id"`
	ReviewerID    string `json:"reviewer_id"`
	AssignedBy    string `json:"assigned_by"`
	Status        string `json:"status"` // not_started|in_progress|completed
	Deadline      int64  `json:"deadline,omitempty"`
	AssignedAt    int64  `json:"assigned_at"`
	CompletedAt   *int64 `json:"completed_at,omitempty"`
	// Overdue is display-only: deadline has passed and the review is not done.
	Overdue bool `json:"overdue,omitempty"`
}

type Review struct {
	ID             string   `json:"id"`
	AssignmentID   string   `json:"assignment_id"`
	OverallScore   *float64 `json:"overall_score,omitempty"` // legacy 1-5 band (1-10 in older data)
	Comments       string   `json:"comments,omitempty"`
	Strengths      string   `json:"strengths,omitempty"`
	Weaknesses     string   `json:"weaknesses,omitempty"`
	Recommendation string   `json:"recommendation,omitempty"`
	CreatedAt      int64    `json:"created_at,omitempty"`
	UpdatedAt      int64    `json:"updated_at,omitempty"`
}

// Score is one reviewer rating for one criterion. Synthetic legacy scores
// (Kind==KindSynthetic) exist only in memory, never in the database.
type Score struct {
	ID              string   `json:"id"`
	ReviewID        string   `json:"review_id"`
	CriteriaID      string   `json:"criteria_id"`
	RawScore        *float64 `json:"raw_score"`
	NormalizedScore float64  `json:"normalized_score"` // raw rescaled to 0-100 by criterion max
	WeightApplied   float64  `json:"weight_applied"`   // weight snapshot at scoring time
	WeightedScore   float64  `json:"weighted_score"`
	RubricLevel     string   `json:"rubric_level,omitempty"`
	Rationale       string   `json:"rationale,omitempty"`
	Confidence      int      `json:"reviewer_confidence,omitempty"` // 1-5
	IsNA            bool     `json:"is_na"`
	Kind            string   `json:"kind"` // native|synthetic
	// Criterion is the joined criterion definition, populated on reads so
	// clients can render a score without a second lookup. Never persisted.
	Criterion *Criterion `json:"criterion,omitempty"`
}

const (
	KindNative    = "native"
	KindSynthetic = "synthetic"
)

// ScoreInput is the submit payload for one criterion.
type ScoreInput struct {
	CriteriaID  string   `json:"criteria_id" validate:"required"`
	RawScore    *float64 `json:"raw_score"`
	RubricLevel string   `json:"rubric_level,omitempty"`
	Rationale   string   `json:"score_rationale,omitempty"`
	Confidence  int      `json:"reviewer_confidence,omitempty" validate:"omitempty,min=1,max=5"`
	IsNA        bool     `json:"is_na,omitempty"`
}

// FeedbackInput updates the free-text portion of a review.
type FeedbackInput struct {
	Comments       *string `json:"comments,omitempty"`
	Strengths      *string `json:"strengths,omitempty"`
	Weaknesses     *string `json:"weaknesses,omitempty"`
	Recommendation *string `json:"recommendation,omitempty" validate:"omitempty,oneof=accept reject waitlist discuss"`
}

// ScoreSet is what a read of an assignment's scores returns: the scores
// (native or synthetic), the derived status, and whether the review is a
// legacy-era record that must not be edited.
type ScoreSet struct {
	Scores   []Score `json:"data"`
	Status   string  `json:"status"`
	IsLegacy bool    `json:"is_legacy"`
}

// SubmitResult reports the outcome of a score write. Warning carries
// best-effort step failures (application aggregate, audit event) that do
// not fail the request.
type SubmitResult struct {
	Scores       []Score `json:"data"`
	Status       string  `json:"status"`
	OverallScore float64 `json:"overall_score"` // 0-100 aggregate
	LegacyBand   int     `json:"legacy_band"`   // aggregate rescaled to 1-5
	Warning      string  `json:"warning,omitempty"`
}
