package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"leetcode_deck/internal/domain"
)

type RunStore struct {
	db *sqlx.DB
}

func NewRunStore(db *sqlx.DB) *RunStore {
	return &RunStore{db: db}
}

// Last returns the most recently started run, or nil if none was recorded.
func (s *RunStore) Last(ctx context.Context) (*domain.HarvestRun, error) {
	var run domain.HarvestRun
	query := `
		SELECT id, started_at, finished_at, total, new_items, existing_items, succeeded, failed, submissions_saved, aborted
		FROM harvest_runs
		ORDER BY started_at DESC
		LIMIT 1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &run, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("last run", err)
	}
	return &run, nil
}

func (s *RunStore) Record(ctx context.Context, run *domain.HarvestRun) error {
	query := `
		INSERT INTO harvest_runs (id, started_at, finished_at, total, new_items, existing_items, succeeded, failed, submissions_saved, aborted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		run.ID,
		run.StartedAt,
		run.FinishedAt,
		run.Total,
		run.New,
		run.Existing,
		run.Succeeded,
		run.Failed,
		run.SubmissionsSaved,
		run.Aborted,
	)
	return wrapErr("record run", err)
}
