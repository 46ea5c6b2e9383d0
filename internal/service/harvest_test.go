package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"leetcode_deck/internal/config"
	"leetcode_deck/internal/domain"
	"leetcode_deck/internal/service/mocks"
)

type HarvesterTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source      *mocks.MockSource
	problems    *mocks.MockProblemStore
	tags        *mocks.MockTagStore
	solutions   *mocks.MockSolutionStore
	submissions *mocks.MockSubmissionStore
	runs        *mocks.MockRunStore
	txManager   *mocks.MockTransactionManager
	publisher   *mocks.MockPublisher

	harvester *Harvester
	cfg       config.HarvestConfig
	logger    *slog.Logger
}

func (s *HarvesterTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockSource(s.ctrl)
	s.problems = mocks.NewMockProblemStore(s.ctrl)
	s.tags = mocks.NewMockTagStore(s.ctrl)
	s.solutions = mocks.NewMockSolutionStore(s.ctrl)
	s.submissions = mocks.NewMockSubmissionStore(s.ctrl)
	s.runs = mocks.NewMockRunStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.cfg = config.HarvestConfig{
		Workers:         1,
		SubmissionLimit: 20,
	}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.source.EXPECT().ID().Return("test-source").AnyTimes()
	s.source.EXPECT().Name().Return("Test Source").AnyTimes()
	s.runs.EXPECT().Last(gomock.Any()).Return(nil, nil).AnyTimes()
	s.runs.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	s.harvester = s.newHarvester(nil)
}

func (s *HarvesterTestSuite) newHarvester(locker Locker) *Harvester {
	return NewHarvester(
		s.source,
		Stores{
			Problems:    s.problems,
			Tags:        s.tags,
			Solutions:   s.solutions,
			Submissions: s.submissions,
			Runs:        s.runs,
			Tx:          s.txManager,
		},
		s.publisher,
		nil,
		locker,
		s.logger,
		s.cfg,
	)
}

func (s *HarvesterTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHarvesterTestSuite(t *testing.T) {
	suite.Run(t, new(HarvesterTestSuite))
}

func (s *HarvesterTestSuite) expectTransaction() {
	s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func (s *HarvesterTestSuite) TestHarvest_NewProblem() {
	ctx := context.Background()

	problem := &domain.Problem{
		ID:       1,
		Title:    "Two Sum",
		Slug:     "two-sum",
		Accepted: true,
		Tags:     []domain.Tag{{Slug: "array", Name: "Array"}, {Slug: "hash-table", Name: "Hash Table"}},
	}
	solution := &domain.Solution{ProblemID: 1, URL: "https://leetcode.com/articles/two-sum/", Content: "## Approach"}
	subs := []domain.SubmissionSummary{
		{ID: 11, Status: "Wrong Answer", Language: "python3", Timestamp: 100},
		{ID: 12, Status: domain.StatusAccepted, Language: "golang", Timestamp: 200},
	}

	s.source.EXPECT().ListAccepted(ctx).Return([]domain.ProblemRef{{ID: 1, Slug: "two-sum"}}, nil)
	s.problems.EXPECT().Exists(ctx, int64(1)).Return(false, nil)

	s.source.EXPECT().FetchProblem(ctx, "two-sum").Return(problem, nil)
	s.expectTransaction()
	s.problems.EXPECT().Upsert(ctx, problem).Return(nil)
	s.tags.EXPECT().UpsertBatch(ctx, problem.Tags).Return(nil)
	s.tags.EXPECT().LinkToProblem(ctx, int64(1), []string{"array", "hash-table"}).Return(nil)

	var events []domain.HarvestEvent
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, event domain.HarvestEvent) error {
			events = append(events, event)
			return nil
		},
	).Times(2)

	s.source.EXPECT().FetchSolution(ctx, "two-sum").Return(solution, nil)
	s.solutions.EXPECT().Upsert(ctx, solution).Return(nil)

	s.source.EXPECT().FetchSubmissions(ctx, "two-sum", 20).Return(subs, nil)
	s.submissions.EXPECT().Exists(ctx, int64(12)).Return(false, nil)
	s.source.EXPECT().FetchSubmissionCode(ctx, int64(12)).Return([]byte("package main"), nil)
	s.submissions.EXPECT().Insert(ctx, &domain.Submission{
		ID:        12,
		Slug:      "two-sum",
		Language:  "golang",
		CreatedAt: time.Unix(200, 0).UTC(),
		Source:    []byte("package main"),
	}).Return(nil)

	stats, err := s.harvester.Harvest(ctx, 0)

	s.NoError(err)
	s.Equal(1, stats.Total)
	s.Equal(1, stats.Submitted)
	s.Equal(1, stats.New)
	s.Equal(0, stats.Existing)
	s.Equal(1, stats.Succeeded)
	s.Equal(0, stats.Failed)
	s.Equal(1, stats.ProblemsSaved)
	s.Equal(1, stats.SolutionsSaved)
	s.Equal(1, stats.SubmissionsSaved)
	s.Equal(2, stats.Published)
	s.False(stats.Aborted)

	s.Require().Len(events, 2)
	s.Equal(domain.EventProblem, events[0].Kind)
	s.Equal(int64(1), events[0].ProblemID)
	s.Equal(domain.EventSubmission, events[1].Kind)
	s.Equal(int64(12), events[1].SubmissionID)
	s.Equal(stats.RunID, events[1].RunID)
}

func (s *HarvesterTestSuite) TestHarvest_ExistingProblemOnlyChecksSubmission() {
	ctx := context.Background()

	s.source.EXPECT().ListAccepted(ctx).Return([]domain.ProblemRef{{ID: 1, Slug: "two-sum"}}, nil)
	s.problems.EXPECT().Exists(ctx, int64(1)).Return(true, nil)

	s.source.EXPECT().FetchSubmissions(ctx, "two-sum", 20).Return([]domain.SubmissionSummary{
		{ID: 12, Status: domain.StatusAccepted, Language: "golang", Timestamp: 200},
	}, nil)
	s.submissions.EXPECT().Exists(ctx, int64(12)).Return(true, nil)

	stats, err := s.harvester.Harvest(ctx, 1)

	s.NoError(err)
	s.Equal(0, stats.New)
	s.Equal(1, stats.Existing)
	s.Equal(1, stats.Succeeded)
	s.Equal(0, stats.ProblemsSaved)
	s.Equal(0, stats.SubmissionsSaved)
	s.Equal(0, stats.Published)
}

func (s *HarvesterTestSuite) TestHarvest_ExistingProblemStoresNewerSubmission() {
	ctx := context.Background()

	s.source.EXPECT().ListAccepted(ctx).Return([]domain.ProblemRef{{ID: 1, Slug: "two-sum"}}, nil)
	s.problems.EXPECT().Exists(ctx, int64(1)).Return(true, nil)

	s.source.EXPECT().FetchSubmissions(ctx, "two-sum", 20).Return([]domain.SubmissionSummary{
		{ID: 30, Status: domain.StatusAccepted, Language: "rust", Timestamp: 300},
	}, nil)
	s.submissions.EXPECT().Exists(ctx, int64(30)).Return(false, nil)
	s.source.EXPECT().FetchSubmissionCode(ctx, int64(30)).Return([]byte("fn main() {}"), nil)
	s.submissions.EXPECT().Insert(ctx, gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	stats, err := s.harvester.Harvest(ctx, 1)

	s.NoError(err)
	s.Equal(1, stats.Existing)
	s.Equal(1, stats.SubmissionsSaved)
	s.Equal(0, stats.ProblemsSaved)
}

func (s *HarvesterTestSuite) TestHarvest_PaidSolutionIsSkipped() {
	ctx := context.Background()
	problem := &domain.Problem{ID: 2, Slug: "premium"}

	s.source.EXPECT().ListAccepted(ctx).Return([]domain.ProblemRef{{ID: 2, Slug: "premium"}}, nil)
	s.problems.EXPECT().Exists(ctx, int64(2)).Return(false, nil)
	s.source.EXPECT().FetchProblem(ctx, "premium").Return(problem, nil)
	s.expectTransaction()
	s.problems.EXPECT().Upsert(ctx, problem).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)
	s.source.EXPECT().FetchSolution(ctx, "premium").Return(nil, nil)
	s.source.EXPECT().FetchSubmissions(ctx, "premium", 20).Return(nil, nil)

	stats, err := s.harvester.Harvest(ctx, 1)

	s.NoError(err)
	s.Equal(1, stats.Succeeded)
	s.Equal(1, stats.ProblemsSaved)
	s.Equal(0, stats.SolutionsSaved)
}

func (s *HarvesterTestSuite) TestHarvest_BlankAndRepeatedTagsAreNotLinked() {
	ctx := context.Background()
	problem := &domain.Problem{
		ID:   3,
		Slug: "longest-substring",
		Tags: []domain.Tag{
			{Slug: "string", Name: "String"},
			{Slug: "", Name: ""},
			{Slug: "sliding-window", Name: "Sliding Window"},
			{Slug: "string", Name: "String"},
		},
	}

	s.source.EXPECT().ListAccepted(ctx).Return([]domain.ProblemRef{{ID: 3, Slug: "longest-substring"}}, nil)
	s.problems.EXPECT().Exists(ctx, int64(3)).Return(false, nil)
	s.source.EXPECT().FetchProblem(ctx, "longest-substring").Return(problem, nil)
	s.expectTransaction()
	s.problems.EXPECT().Upsert(ctx, problem).Return(nil)
	s.tags.EXPECT().UpsertBatch(ctx, []domain.Tag{
		{Slug: "string", Name: "String"},
		{Slug: "sliding-window", Name: "Sliding Window"},
	}).Return(nil)
	s.tags.EXPECT().LinkToProblem(ctx, int64(3), []string{"string", "sliding-window"}).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)
	s.source.EXPECT().FetchSolution(ctx, "longest-substring").Return(nil, nil)
	s.source.EXPECT().FetchSubmissions(ctx, "longest-substring", 20).Return(nil, nil)

	stats, err := s.harvester.Harvest(ctx, 1)

	s.NoError(err)
	s.Equal(1, stats.Succeeded)
	s.Equal(0, stats.Failed)
}

func (s *HarvesterTestSuite) TestHarvest_OnlyBlankTagsSkipsLinking() {
	ctx := context.Background()
	problem := &domain.Problem{ID: 4, Slug: "blank", Tags: []domain.Tag{{}}}

	s.source.EXPECT().ListAccepted(ctx).Return([]domain.ProblemRef{{ID: 4, Slug: "blank"}}, nil)
	s.problems.EXPECT().Exists(ctx, int64(4)).Return(false, nil)
	s.source.EXPECT().FetchProblem(ctx, "blank").Return(problem, nil)
	s.expectTransaction()
	s.problems.EXPECT().Upsert(ctx, problem).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)
	s.source.EXPECT().FetchSolution(ctx, "blank").Return(nil, nil)
	s.source.EXPECT().FetchSubmissions(ctx, "blank", 20).Return(nil, nil)

	stats, err := s.harvester.Harvest(ctx, 1)

	s.NoError(err)
	s.Equal(1, stats.Succeeded)
}

func (s *HarvesterTestSuite) TestHarvest_UnavailableCodeIsSoftSkip() {
	ctx := context.Background()

	s.source.EXPECT().ListAccepted(ctx).Return([]domain.ProblemRef{{ID: 1, Slug: "two-sum"}}, nil)
	s.problems.EXPECT().Exists(ctx, int64(1)).Return(true, nil)
	s.source.EXPECT().FetchSubmissions(ctx, "two-sum", 20).Return([]domain.SubmissionSummary{
		{ID: 12, Status: domain.StatusAccepted, Timestamp: 200},
	}, nil)
	s.submissions.EXPECT().Exists(ctx, int64(12)).Return(false, nil)
	s.source.EXPECT().FetchSubmissionCode(ctx, int64(12)).Return(nil, domain.ErrTransport)

	stats, err := s.harvester.Harvest(ctx, 1)

	s.NoError(err)
	s.Equal(1, stats.Succeeded)
	s.Equal(0, stats.Failed)
	s.Equal(0, stats.SubmissionsSaved)
}

func (s *HarvesterTestSuite) TestHarvest_EmptyCodeIsSoftSkip() {
	ctx := context.Background()

	s.source.EXPECT().ListAccepted(ctx).Return([]domain.ProblemRef{{ID: 1, Slug: "two-sum"}}, nil)
	s.problems.EXPECT().Exists(ctx, int64(1)).Return(true, nil)
	s.source.EXPECT().FetchSubmissions(ctx, "two-sum", 20).Return([]domain.SubmissionSummary{
		{ID: 12, Status: domain.StatusAccepted, Timestamp: 200},
	}, nil)
	s.submissions.EXPECT().Exists(ctx, int64(12)).Return(false, nil)
	s.source.EXPECT().FetchSubmissionCode(ctx, int64(12)).Return(nil, nil)

	stats, err := s.harvester.Harvest(ctx, 1)

	s.NoError(err)
	s.Equal(1, stats.Succeeded)
	s.Equal(0, stats.SubmissionsSaved)
}

func (s *HarvesterTestSuite) TestHarvest_ProblemFailureSkipsRestOfItem() {
	ctx := context.Background()

	s.source.EXPECT().ListAccepted(ctx).Return([]domain.ProblemRef{{ID: 1, Slug: "two-sum"}}, nil)
	s.problems.EXPECT().Exists(ctx, int64(1)).Return(false, nil)
	s.source.EXPECT().FetchProblem(ctx, "two-sum").Return(nil, domain.ErrNotFound)

	stats, err := s.harvester.Harvest(ctx, 1)

	s.NoError(err)
	s.Equal(1, stats.Failed)
	s.Equal(0, stats.Succeeded)
	s.Require().Len(stats.Failures, 1)
	s.Equal("two-sum", stats.Failures[0].Slug)
	s.Contains(stats.Failures[0].Reason, "fetch problem")
}

func (s *HarvesterTestSuite) TestHarvest_PublishFailureDoesNotFailItem() {
	ctx := context.Background()

	s.source.EXPECT().ListAccepted(ctx).Return([]domain.ProblemRef{{ID: 1, Slug: "two-sum"}}, nil)
	s.problems.EXPECT().Exists(ctx, int64(1)).Return(true, nil)
	s.source.EXPECT().FetchSubmissions(ctx, "two-sum", 20).Return([]domain.SubmissionSummary{
		{ID: 12, Status: domain.StatusAccepted, Timestamp: 200},
	}, nil)
	s.submissions.EXPECT().Exists(ctx, int64(12)).Return(false, nil)
	s.source.EXPECT().FetchSubmissionCode(ctx, int64(12)).Return([]byte("x"), nil)
	s.submissions.EXPECT().Insert(ctx, gomock.Any()).Return(nil)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("channel closed"))

	stats, err := s.harvester.Harvest(ctx, 1)

	s.NoError(err)
	s.Equal(1, stats.Succeeded)
	s.Equal(0, stats.Published)
	s.Equal(1, stats.PublishErrors)
}

func (s *HarvesterTestSuite) TestHarvest_UnauthorizedStopsScheduling() {
	ctx := context.Background()

	s.source.EXPECT().ListAccepted(ctx).Return([]domain.ProblemRef{
		{ID: 1, Slug: "a"},
		{ID: 2, Slug: "b"},
		{ID: 3, Slug: "c"},
	}, nil)
	s.problems.EXPECT().Exists(ctx, gomock.Any()).Return(true, nil).Times(3)
	s.source.EXPECT().FetchSubmissions(ctx, "a", 20).Return(nil, domain.ErrUnauthorized)

	stats, err := s.harvester.Harvest(ctx, 1)

	s.ErrorIs(err, domain.ErrUnauthorized)
	s.Require().NotNil(stats)
	s.True(stats.Aborted)
	s.Equal(1, stats.Submitted)
	s.Equal(1, stats.Failed)
	s.Equal(2, stats.Skipped)
	s.Equal(3, stats.Submitted+stats.Skipped)
}

func (s *HarvesterTestSuite) TestHarvest_ListingFailure() {
	ctx := context.Background()

	s.source.EXPECT().ListAccepted(ctx).Return(nil, domain.ErrUnauthorized)

	stats, err := s.harvester.Harvest(ctx, 1)

	s.ErrorIs(err, domain.ErrUnauthorized)
	s.Nil(stats)
}

func (s *HarvesterTestSuite) TestHarvest_PlanFailure() {
	ctx := context.Background()

	s.source.EXPECT().ListAccepted(ctx).Return([]domain.ProblemRef{{ID: 1, Slug: "a"}}, nil)
	s.problems.EXPECT().Exists(ctx, int64(1)).Return(false, domain.ErrStoreUnavailable)

	stats, err := s.harvester.Harvest(ctx, 1)

	s.ErrorIs(err, domain.ErrStoreUnavailable)
	s.Nil(stats)
}

func (s *HarvesterTestSuite) TestRun_LockHeld() {
	ctx := context.Background()
	locker := mocks.NewMockLocker(s.ctrl)
	locker.EXPECT().Acquire(ctx).Return(nil, domain.ErrLockHeld)

	stats, err := s.newHarvester(locker).Run(ctx)

	s.ErrorIs(err, domain.ErrLockHeld)
	s.Nil(stats)
}

func (s *HarvesterTestSuite) TestRun_ReleasesLock() {
	ctx := context.Background()
	released := false
	locker := mocks.NewMockLocker(s.ctrl)
	locker.EXPECT().Acquire(ctx).Return(func(context.Context) error {
		released = true
		return nil
	}, nil)
	s.source.EXPECT().ListAccepted(ctx).Return(nil, nil)

	stats, err := s.newHarvester(locker).Run(ctx)

	s.NoError(err)
	s.Equal(0, stats.Total)
	s.True(released)
}
