package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"leetcode_deck/internal/domain"
)

type SolutionStore struct {
	db *sqlx.DB
}

func NewSolutionStore(db *sqlx.DB) *SolutionStore {
	return &SolutionStore{db: db}
}

// Upsert keeps at most one solution per problem.
func (s *SolutionStore) Upsert(ctx context.Context, sol *domain.Solution) error {
	query := `
		INSERT INTO solutions (problem_id, url, content)
		VALUES ($1, $2, $3)
		ON CONFLICT (problem_id) DO UPDATE SET
			url = EXCLUDED.url,
			content = EXCLUDED.content`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, sol.ProblemID, sol.URL, sol.Content)
	return wrapErr("upsert solution", err)
}
