package review

import "context"

type AssignmentListOpts struct {
	ApplicationID string
	ReviewerID    string
	ProgramID     string
	Status        string // optional: not_started|in_progress|completed
	Limit         int
	Offset        int
}

type NewAssignment struct {
	ApplicationID string `json:"application_id" validate:"required"`
	ReviewerID    string `json:"reviewer_id" validate:"required"`
	Deadline      int64  `json:"deadline,omitempty"`
}

// Store is the persistence surface for the review workflow. All reads and
// writes that act on a single reviewer's assignment take the reviewer id
// explicitly and return ErrNotFound when the assignment does not exist or
// belongs to someone else.
type Store interface {
	// CreateAssignment links a reviewer to an application. ErrDuplicate if
	// the pair is already assigned.
	CreateAssignment(ctx context.Context, in NewAssignment, assignedBy string) (Assignment, error)
	GetAssignment(ctx context.Context, id string) (Assignment, error)
	ListAssignments(ctx context.Context, opts AssignmentListOpts) ([]Assignment, error)

	// GetScores returns the reviewer's scores for an assignment, joined
	// with their criteria and reconciled against the legacy model. Empty
	// set (not an error) when no review exists yet.
	GetScores(ctx context.Context, assignmentID, reviewerID string) (ScoreSet, error)

	// SubmitScores runs the write pipeline: validate, lazily create the
	// review, upsert score rows, recompute the aggregate and the cached
	// status. Best-effort follow-ups (application aggregate, audit event)
	// report through SubmitResult.Warning instead of failing.
	SubmitScores(ctx context.Context, assignmentID, reviewerID string, inputs []ScoreInput) (SubmitResult, error)

	// ClearScores deletes every score row for the assignment's review and
	// resets the cached status to not_started. The review row survives so
	// "scores cleared" is distinguishable from "never scored". Legacy
	// reviews are read-only: ErrLegacyReview, same as SubmitScores.
	ClearScores(ctx context.Context, assignmentID, reviewerID string) (Assignment, error)

	// UpdateFeedback writes the free-text portion of the review, creating
	// the review row if needed. Legacy reviews reject edits with
	// ErrLegacyReview.
	UpdateFeedback(ctx context.Context, assignmentID, reviewerID string, in FeedbackInput) (Review, error)
}
