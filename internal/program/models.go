package program

type Program struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"` // draft|open|closed
	CreatedBy   string `json:"created_by"`
	CreatedAt   int64  `json:"created_at"`
}

type Application struct {
	ID           string   `json:"id"`
	ProgramID    string   `json:"program_id"`
	ApplicantID  string   `json:"applicant_id"`
	Status       string   `json:"status"`
	AverageScore *float64 `json:"average_score,omitempty"` // 0-100, derived from completed reviews
	SubmittedAt  int64    `json:"submitted_at"`
}

type NewProgram struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
}

type ListOpts struct {
	Q      string
	Status string
	Limit  int
	Offset int
}
