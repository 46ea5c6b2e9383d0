package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlanItem is the resolver's verdict for one accepted problem.
type PlanItem struct {
	ID    int64
	Slug  string
	IsNew bool
}

const (
	EventProblem    = "problem"
	EventSubmission = "submission"
)

// HarvestEvent announces a newly stored problem or submission.
type HarvestEvent struct {
	RunID        uuid.UUID `json:"run_id"`
	Kind         string    `json:"kind"`
	Slug         string    `json:"slug"`
	ProblemID    int64     `json:"problem_id,omitempty"`
	SubmissionID int64     `json:"submission_id,omitempty"`
}

type Failure struct {
	Slug   string `json:"slug"`
	Reason string `json:"reason"`
}

// HarvestStats holds statistics about a harvest run.
type HarvestStats struct {
	RunID            uuid.UUID
	Total            int
	Submitted        int
	New              int
	Existing         int
	Succeeded        int
	Failed           int
	Skipped          int
	ProblemsSaved    int
	SolutionsSaved   int
	SubmissionsSaved int
	Published        int
	PublishErrors    int
	Failures         []Failure
	Aborted          bool
	StartedAt        time.Time
	Duration         time.Duration
}

// FailureRatio returns Failed/Submitted, or 0 when nothing was submitted.
func (s *HarvestStats) FailureRatio() float64 {
	if s.Submitted == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.Submitted)
}

// HarvestRun is the persisted record of a finished harvest.
type HarvestRun struct {
	ID               uuid.UUID `db:"id"`
	StartedAt        time.Time `db:"started_at"`
	FinishedAt       time.Time `db:"finished_at"`
	Total            int       `db:"total"`
	New              int       `db:"new_items"`
	Existing         int       `db:"existing_items"`
	Succeeded        int       `db:"succeeded"`
	Failed           int       `db:"failed"`
	SubmissionsSaved int       `db:"submissions_saved"`
	Aborted          bool      `db:"aborted"`
}

func (s *HarvestStats) Run() *HarvestRun {
	return &HarvestRun{
		ID:               s.RunID,
		StartedAt:        s.StartedAt,
		FinishedAt:       s.StartedAt.Add(s.Duration),
		Total:            s.Total,
		New:              s.New,
		Existing:         s.Existing,
		Succeeded:        s.Succeeded,
		Failed:           s.Failed,
		SubmissionsSaved: s.SubmissionsSaved,
		Aborted:          s.Aborted,
	}
}
