package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"leetcode_deck/internal/config"
	"leetcode_deck/internal/domain"
	"leetcode_deck/internal/ratelimit"
)

const recordTimeout = 10 * time.Second

// Stores groups the persistence dependencies of a Harvester.
type Stores struct {
	Problems    ProblemStore
	Tags        TagStore
	Solutions   SolutionStore
	Submissions SubmissionStore
	Runs        RunStore
	Tx          TransactionManager
}

type Harvester struct {
	source      Source
	resolver    *Resolver
	problems    ProblemStore
	tags        TagStore
	solutions   SolutionStore
	submissions SubmissionStore
	runs        RunStore
	txManager   TransactionManager
	publisher   Publisher
	pacer       Pacer
	locker      Locker
	logger      *slog.Logger
	config      config.HarvestConfig
}

// NewHarvester wires a harvester. publisher, pacer and locker may be nil.
func NewHarvester(
	source Source,
	stores Stores,
	publisher Publisher,
	pacer Pacer,
	locker Locker,
	logger *slog.Logger,
	cfg config.HarvestConfig,
) *Harvester {
	if pacer == nil {
		pacer = ratelimit.Nop{}
	}
	return &Harvester{
		source:      source,
		resolver:    NewResolver(stores.Problems),
		problems:    stores.Problems,
		tags:        stores.Tags,
		solutions:   stores.Solutions,
		submissions: stores.Submissions,
		runs:        stores.Runs,
		txManager:   stores.Tx,
		publisher:   publisher,
		pacer:       pacer,
		locker:      locker,
		logger:      logger.With("source", source.ID()),
		config:      cfg,
	}
}

// outcome is the result of one plan item. Only the collector reads it.
type outcome struct {
	runID           uuid.UUID
	item            domain.PlanItem
	skipped         bool
	err             error
	problemSaved    bool
	solutionSaved   bool
	submissionSaved bool
	published       int
	publishErrors   int
}

// Run performs one locked harvest with the configured worker count.
func (h *Harvester) Run(ctx context.Context) (*domain.HarvestStats, error) {
	if h.locker != nil {
		release, err := h.locker.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				h.logger.Warn("failed to release lock", "error", err)
			}
		}()
	}
	return h.Harvest(ctx, h.config.Workers)
}

// Harvest processes every accepted problem on a pool of workers goroutines.
// Item failures are counted, not returned. A fatal error stops scheduling and is
// returned together with the stats collected so far.
func (h *Harvester) Harvest(ctx context.Context, workers int) (*domain.HarvestStats, error) {
	if workers <= 0 {
		workers = h.config.Workers
	}
	if workers <= 0 {
		workers = 1
	}

	stats := &domain.HarvestStats{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
	}
	logger := h.logger.With("run_id", stats.RunID)

	h.logLastRun(ctx, logger)
	logger.Info("starting harvest", "source_name", h.source.Name(), "workers", workers)

	refs, err := h.source.ListAccepted(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accepted: %w", err)
	}
	if err := h.pacer.Pause(ctx); err != nil {
		return nil, err
	}
	stats.Total = len(refs)

	plan, err := h.resolver.Plan(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	logger.Info("planned harvest", "accepted", len(refs), "items", len(plan))

	runErr := h.runPool(ctx, logger, plan, workers, stats)
	stats.Duration = time.Since(stats.StartedAt)

	h.recordRun(ctx, logger, stats)

	logger.Info("harvest completed",
		"total", stats.Total,
		"new", stats.New,
		"existing", stats.Existing,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"problems_saved", stats.ProblemsSaved,
		"solutions_saved", stats.SolutionsSaved,
		"submissions_saved", stats.SubmissionsSaved,
		"published", stats.Published,
		"aborted", stats.Aborted,
		"duration", stats.Duration,
	)

	if runErr != nil {
		return stats, runErr
	}

	if limit := h.config.MaxFailureRatio; limit > 0 && stats.FailureRatio() > limit {
		return stats, fmt.Errorf("%d of %d items failed: %w", stats.Failed, stats.Submitted, domain.ErrTooManyFailures)
	}

	return stats, nil
}

// runPool fans the plan out to the pool and tallies outcomes on a single collector.
func (h *Harvester) runPool(
	ctx context.Context,
	logger *slog.Logger,
	plan []domain.PlanItem,
	workers int,
	stats *domain.HarvestStats,
) error {
	// In-flight items keep ctx; only scheduling stops on a fatal error.
	schedCtx, stop := context.WithCancelCause(ctx)
	defer stop(nil)

	results := make(chan outcome, workers)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for o := range results {
			tally(logger, stats, o)
		}
	}()

	var g errgroup.Group
	g.SetLimit(workers)

	for _, item := range plan {
		if schedCtx.Err() != nil {
			results <- outcome{item: item, skipped: true}
			continue
		}

		g.Go(func() error {
			if schedCtx.Err() != nil {
				results <- outcome{item: item, skipped: true}
				return nil
			}

			o := h.processItem(ctx, logger, stats.RunID, item)
			if o.err != nil && domain.IsFatal(o.err) {
				stop(o.err)
			}
			results <- o
			return nil
		})
	}

	_ = g.Wait()
	close(results)
	<-collected

	if schedCtx.Err() == nil {
		return nil
	}

	stats.Aborted = true
	cause := context.Cause(schedCtx)
	if domain.IsFatal(cause) {
		logger.Error("harvest aborted", "error", cause, "skipped", stats.Skipped)
		return fmt.Errorf("harvest aborted: %w", cause)
	}
	return cause
}

func tally(logger *slog.Logger, stats *domain.HarvestStats, o outcome) {
	if o.skipped {
		stats.Skipped++
		return
	}

	stats.Submitted++
	if o.item.IsNew {
		stats.New++
	} else {
		stats.Existing++
	}

	if o.problemSaved {
		stats.ProblemsSaved++
	}
	if o.solutionSaved {
		stats.SolutionsSaved++
	}
	if o.submissionSaved {
		stats.SubmissionsSaved++
	}
	stats.Published += o.published
	stats.PublishErrors += o.publishErrors

	if o.err != nil {
		stats.Failed++
		stats.Failures = append(stats.Failures, domain.Failure{Slug: o.item.Slug, Reason: o.err.Error()})
		logger.Warn("item failed", "slug", o.item.Slug, "new", o.item.IsNew, "error", o.err)
		return
	}
	stats.Succeeded++
}

// processItem runs the full sequence for one problem. Errors end up in the outcome.
func (h *Harvester) processItem(ctx context.Context, logger *slog.Logger, runID uuid.UUID, item domain.PlanItem) outcome {
	o := outcome{runID: runID, item: item}
	logger = logger.With("slug", item.Slug)

	if item.IsNew {
		if err := h.harvestProblem(ctx, logger, item, &o); err != nil {
			o.err = err
			return o
		}
	}

	if err := h.refreshSubmission(ctx, logger, item, &o); err != nil {
		o.err = err
	}
	return o
}

// harvestProblem stores a new problem with its tags, then its free solution if any.
func (h *Harvester) harvestProblem(ctx context.Context, logger *slog.Logger, item domain.PlanItem, o *outcome) error {
	problem, err := h.source.FetchProblem(ctx, item.Slug)
	if err != nil {
		return fmt.Errorf("fetch problem: %w", err)
	}
	if err := h.pacer.Pause(ctx); err != nil {
		return err
	}

	err = h.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := h.problems.Upsert(txCtx, problem); err != nil {
			return fmt.Errorf("upsert problem: %w", err)
		}

		tags, slugs := linkableTags(problem.Tags)
		if len(tags) > 0 {
			if err := h.tags.UpsertBatch(txCtx, tags); err != nil {
				return fmt.Errorf("upsert tags: %w", err)
			}

			if err := h.tags.LinkToProblem(txCtx, problem.ID, slugs); err != nil {
				return fmt.Errorf("link tags: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("save problem: %w", err)
	}
	o.problemSaved = true

	h.publish(ctx, logger, domain.HarvestEvent{
		Kind:      domain.EventProblem,
		Slug:      item.Slug,
		ProblemID: problem.ID,
	}, o)

	solution, err := h.source.FetchSolution(ctx, item.Slug)
	if err != nil {
		return fmt.Errorf("fetch solution: %w", err)
	}
	if err := h.pacer.Pause(ctx); err != nil {
		return err
	}
	if solution == nil {
		logger.Info("no free solution")
		return nil
	}

	if err := h.solutions.Upsert(ctx, solution); err != nil {
		return fmt.Errorf("save solution: %w", err)
	}
	o.solutionSaved = true

	return nil
}

// linkableTags drops tags without a slug and repeats, keeping listing order.
func linkableTags(in []domain.Tag) ([]domain.Tag, []string) {
	tags := make([]domain.Tag, 0, len(in))
	slugs := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, tag := range in {
		if tag.Slug == "" {
			continue
		}
		if _, ok := seen[tag.Slug]; ok {
			continue
		}
		seen[tag.Slug] = struct{}{}
		tags = append(tags, tag)
		slugs = append(slugs, tag.Slug)
	}
	return tags, slugs
}

// publish reports an event. Failures are counted, they never fail the item.
func (h *Harvester) publish(ctx context.Context, logger *slog.Logger, event domain.HarvestEvent, o *outcome) {
	if h.publisher == nil {
		return
	}

	event.RunID = o.runID
	if err := h.publisher.Publish(ctx, event); err != nil {
		o.publishErrors++
		logger.Warn("failed to publish event", "kind", event.Kind, "error", err)
		return
	}
	o.published++
}

func (h *Harvester) logLastRun(ctx context.Context, logger *slog.Logger) {
	if h.runs == nil {
		return
	}

	last, err := h.runs.Last(ctx)
	if err != nil {
		logger.Warn("failed to load last run", "error", err)
		return
	}
	if last == nil {
		logger.Info("no previous harvest recorded")
		return
	}

	logger.Info("previous harvest",
		"run_id", last.ID,
		"finished_at", last.FinishedAt,
		"succeeded", last.Succeeded,
		"failed", last.Failed,
		"aborted", last.Aborted,
	)
}

func (h *Harvester) recordRun(ctx context.Context, logger *slog.Logger, stats *domain.HarvestStats) {
	if h.runs == nil {
		return
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := h.runs.Record(recordCtx, stats.Run()); err != nil {
		logger.Error("failed to record run", "error", err)
	}
}
