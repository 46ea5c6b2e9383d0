package domain

import "time"

// StatusAccepted is the status string the remote reports for a passing submission.
const StatusAccepted = "Accepted"

type Problem struct {
	ID          int64  `db:"id"`
	DisplayID   string `db:"display_id"`
	Title       string `db:"title"`
	Slug        string `db:"slug"`
	Level       string `db:"level"`
	Description string `db:"description"`
	Accepted    bool   `db:"accepted"`
	Tags        []Tag  `db:"-"`
}

type Tag struct {
	Slug string `db:"slug" json:"slug"`
	Name string `db:"name" json:"name"`
}

// ProblemRef is one accepted entry of the remote problem listing.
type ProblemRef struct {
	ID   int64
	Slug string
}

type Solution struct {
	ProblemID int64  `db:"problem_id"`
	URL       string `db:"url"`
	Content   string `db:"content"`
}

// Submission is a stored accepted submission. Rows are insert-only.
type Submission struct {
	ID        int64     `db:"id"`
	Slug      string    `db:"slug"`
	Language  string    `db:"language"`
	CreatedAt time.Time `db:"created"`
	Source    []byte    `db:"source"`
}

// SubmissionSummary is an entry of the remote submission list, without code.
type SubmissionSummary struct {
	ID        int64
	Status    string
	Language  string
	Timestamp int64
}

func (s SubmissionSummary) Accepted() bool {
	return s.Status == StatusAccepted
}
