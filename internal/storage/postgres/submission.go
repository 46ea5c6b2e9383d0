package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"leetcode_deck/internal/domain"
)

type SubmissionStore struct {
	db *sqlx.DB
}

func NewSubmissionStore(db *sqlx.DB) *SubmissionStore {
	return &SubmissionStore{db: db}
}

func (s *SubmissionStore) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		"SELECT EXISTS (SELECT 1 FROM submissions WHERE id = $1)", id)
	if err != nil {
		return false, wrapErr("submission exists", err)
	}
	return exists, nil
}

// Insert stores a new submission. Submissions are append-only: inserting an id
// that is already stored fails with domain.ErrDuplicate.
func (s *SubmissionStore) Insert(ctx context.Context, sub *domain.Submission) error {
	query := `
		INSERT INTO submissions (id, slug, language, created, source)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		sub.ID,
		sub.Slug,
		sub.Language,
		sub.CreatedAt,
		sub.Source,
	)
	return wrapErr("insert submission", err)
}

// LatestBySlug returns the most recent stored submission of a problem.
func (s *SubmissionStore) LatestBySlug(ctx context.Context, slug string) (*domain.Submission, error) {
	var sub domain.Submission
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &sub, `
		SELECT id, slug, language, created, source
		FROM submissions
		WHERE slug = $1
		ORDER BY created DESC
		LIMIT 1`, slug)
	if err != nil {
		return nil, wrapErr("latest submission", err)
	}
	return &sub, nil
}
