package service

import (
	"context"
	"fmt"

	"leetcode_deck/internal/domain"
)

// Resolver classifies accepted problems into new and already stored ones.
// It never talks to the remote.
type Resolver struct {
	problems ProblemStore
}

func NewResolver(problems ProblemStore) *Resolver {
	return &Resolver{problems: problems}
}

// Plan returns one item per distinct problem id, in listing order.
func (r *Resolver) Plan(ctx context.Context, refs []domain.ProblemRef) ([]domain.PlanItem, error) {
	plan := make([]domain.PlanItem, 0, len(refs))
	seen := make(map[int64]struct{}, len(refs))

	for _, ref := range refs {
		if _, ok := seen[ref.ID]; ok {
			continue
		}
		seen[ref.ID] = struct{}{}

		exists, err := r.problems.Exists(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("check problem %s: %w", ref.Slug, err)
		}

		plan = append(plan, domain.PlanItem{
			ID:    ref.ID,
			Slug:  ref.Slug,
			IsNew: !exists,
		})
	}

	return plan, nil
}
