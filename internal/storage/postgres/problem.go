package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"leetcode_deck/internal/domain"
)

type ProblemStore struct {
	db *sqlx.DB
}

func NewProblemStore(db *sqlx.DB) *ProblemStore {
	return &ProblemStore{db: db}
}

func (s *ProblemStore) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		"SELECT EXISTS (SELECT 1 FROM problems WHERE id = $1)", id)
	if err != nil {
		return false, wrapErr("problem exists", err)
	}
	return exists, nil
}

// Upsert replaces the problem row by id.
func (s *ProblemStore) Upsert(ctx context.Context, p *domain.Problem) error {
	query := `
		INSERT INTO problems (id, display_id, title, slug, level, description, accepted)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			display_id = EXCLUDED.display_id,
			title = EXCLUDED.title,
			slug = EXCLUDED.slug,
			level = EXCLUDED.level,
			description = EXCLUDED.description,
			accepted = EXCLUDED.accepted,
			updated_at = now()`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		p.ID,
		p.DisplayID,
		p.Title,
		p.Slug,
		p.Level,
		p.Description,
		p.Accepted,
	)
	return wrapErr("upsert problem", err)
}

func (s *ProblemStore) GetByID(ctx context.Context, id int64) (*domain.Problem, error) {
	var p domain.Problem
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &p, `
		SELECT id, display_id, title, slug, level, description, accepted
		FROM problems
		WHERE id = $1`, id)
	if err != nil {
		return nil, wrapErr("get problem", err)
	}
	return &p, nil
}
