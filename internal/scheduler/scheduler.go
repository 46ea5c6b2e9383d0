package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"leetcode_deck/internal/domain"
)

// Runner performs one harvest.
type Runner interface {
	Run(ctx context.Context) (*domain.HarvestStats, error)
}

type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   *slog.Logger
}

func NewScheduler(runner Runner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Start harvests immediately and then every interval until ctx is done.
// Runs never overlap. A fatal error stops the loop since retrying cannot help.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	if err := s.runOnce(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.runOnce(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stats, err := s.runner.Run(ctx)
	switch {
	case err == nil:
		s.logger.Info("scheduled harvest done",
			"succeeded", stats.Succeeded,
			"failed", stats.Failed,
			"next_in", s.interval,
		)
	case errors.Is(err, domain.ErrLockHeld):
		s.logger.Info("harvest skipped, lock held elsewhere")
	case domain.IsFatal(err):
		s.logger.Error("harvest hit fatal error, stopping scheduler", "error", err)
		return fmt.Errorf("scheduled harvest: %w", err)
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		s.logger.Error("harvest failed", "error", err)
	}
	return nil
}
