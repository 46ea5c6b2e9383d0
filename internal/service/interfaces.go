package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"leetcode_deck/internal/domain"
)

type ProblemStore interface {
	Exists(ctx context.Context, id int64) (bool, error)
	Upsert(ctx context.Context, problem *domain.Problem) error
}

type TagStore interface {
	UpsertBatch(ctx context.Context, tags []domain.Tag) error
	LinkToProblem(ctx context.Context, problemID int64, tagSlugs []string) error
}

type SolutionStore interface {
	Upsert(ctx context.Context, solution *domain.Solution) error
}

// SubmissionStore is insert-only: Insert of a known id returns domain.ErrDuplicate.
type SubmissionStore interface {
	Exists(ctx context.Context, id int64) (bool, error)
	Insert(ctx context.Context, submission *domain.Submission) error
}

type RunStore interface {
	Last(ctx context.Context) (*domain.HarvestRun, error)
	Record(ctx context.Context, run *domain.HarvestRun) error
}

type Source interface {
	ID() string
	Name() string
	ListAccepted(ctx context.Context) ([]domain.ProblemRef, error)
	FetchProblem(ctx context.Context, slug string) (*domain.Problem, error)
	FetchSolution(ctx context.Context, slug string) (*domain.Solution, error)
	FetchSubmissions(ctx context.Context, slug string, limit int) ([]domain.SubmissionSummary, error)
	FetchSubmissionCode(ctx context.Context, submissionID int64) ([]byte, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, event domain.HarvestEvent) error
	Close() error
}

// Pacer delays the calling worker after a remote call.
type Pacer interface {
	Pause(ctx context.Context) error
}

// Locker guards a whole run. Acquire returns domain.ErrLockHeld when another
// harvester owns the lock.
type Locker interface {
	Acquire(ctx context.Context) (release func(context.Context) error, err error)
}
