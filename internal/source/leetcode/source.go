package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"

	"leetcode_deck/internal/domain"
)

const (
	SourceID   = "leetcode"
	SourceName = "LeetCode"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_11_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/54.0.2840.98 Safari/537.36"
)

// Config holds LeetCode source configuration. Session and CSRFToken come from
// a browser login and are attached to every request.
type Config struct {
	BaseURL        string
	Session        string
	CSRFToken      string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source is an authenticated client for the LeetCode REST and GraphQL endpoints.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	session        string
	csrfToken      string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new LeetCode source.
func New(cfg Config, logger *slog.Logger) *Source {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		session:        cfg.Session,
		csrfToken:      cfg.CSRFToken,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Name returns human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// ListAccepted returns every problem the session's user has an accepted submission for.
// An anonymous listing means the session cookie was rejected.
func (s *Source) ListAccepted(ctx context.Context) ([]domain.ProblemRef, error) {
	var resp problemListResponse
	err := s.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/problems/all/", nil)
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}

	if resp.UserName == "" {
		return nil, fmt.Errorf("list problems: anonymous listing: %w", domain.ErrUnauthorized)
	}

	refs := make([]domain.ProblemRef, 0, resp.NumSolved)
	for _, pair := range resp.StatStatusPairs {
		if pair.Status == nil || *pair.Status != listStatusAccepted {
			continue
		}
		refs = append(refs, domain.ProblemRef{
			ID:   pair.Stat.QuestionID,
			Slug: pair.Stat.TitleSlug,
		})
	}

	s.logger.Debug("listed problems",
		"user", resp.UserName,
		"total", len(resp.StatStatusPairs),
		"accepted", len(refs),
	)

	return refs, nil
}

// FetchProblem fetches the problem statement and its topic tags.
func (s *Source) FetchProblem(ctx context.Context, titleSlug string) (*domain.Problem, error) {
	var data questionDetailData
	err := s.graphQL(ctx, "getQuestionDetail", map[string]any{"titleSlug": titleSlug}, questionDetailQuery, &data)
	if err != nil {
		return nil, fmt.Errorf("fetch problem %s: %w", titleSlug, err)
	}
	if data.Question == nil {
		return nil, fmt.Errorf("fetch problem %s: %w", titleSlug, domain.ErrNotFound)
	}

	q := data.Question
	id, err := strconv.ParseInt(q.QuestionID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("fetch problem %s: question id %q: %w", titleSlug, q.QuestionID, domain.ErrTransport)
	}

	problem := &domain.Problem{
		ID:        id,
		DisplayID: q.QuestionFrontendID,
		Title:     q.QuestionTitle,
		Slug:      titleSlug,
		Level:     q.Difficulty,
		Accepted:  true,
	}
	if q.Content != nil {
		problem.Description = *q.Content
	}

	for _, t := range q.TopicTags {
		tagSlug := t.Slug
		if tagSlug == "" {
			tagSlug = slug.Make(t.Name)
		}
		problem.Tags = append(problem.Tags, domain.Tag{Slug: tagSlug, Name: t.Name})
	}

	return problem, nil
}

// FetchSolution returns the official solution article, or nil when the problem
// has none or it is paid-only.
func (s *Source) FetchSolution(ctx context.Context, titleSlug string) (*domain.Solution, error) {
	var data questionNoteData
	err := s.graphQL(ctx, "QuestionNote", map[string]any{"titleSlug": titleSlug}, questionNoteQuery, &data)
	if err != nil {
		return nil, fmt.Errorf("fetch solution %s: %w", titleSlug, err)
	}
	if data.Question == nil {
		return nil, fmt.Errorf("fetch solution %s: %w", titleSlug, domain.ErrNotFound)
	}

	sol := data.Question.Solution
	if sol == nil || sol.PaidOnly {
		return nil, nil
	}

	id, err := strconv.ParseInt(data.Question.QuestionID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("fetch solution %s: question id %q: %w", titleSlug, data.Question.QuestionID, domain.ErrTransport)
	}

	return &domain.Solution{
		ProblemID: id,
		URL:       fmt.Sprintf("%s/articles/%s/", s.baseURL, titleSlug),
		Content:   sol.Content,
	}, nil
}

// FetchSubmissions returns the first page of the user's submissions for a problem.
func (s *Source) FetchSubmissions(ctx context.Context, titleSlug string, limit int) ([]domain.SubmissionSummary, error) {
	vars := map[string]any{
		"offset":       0,
		"limit":        limit,
		"lastKey":      "",
		"questionSlug": titleSlug,
	}

	var data submissionListData
	if err := s.graphQL(ctx, "Submissions", vars, submissionListQuery, &data); err != nil {
		return nil, fmt.Errorf("fetch submissions %s: %w", titleSlug, err)
	}
	if data.SubmissionList == nil {
		return nil, nil
	}

	result := make([]domain.SubmissionSummary, 0, len(data.SubmissionList.Submissions))
	for _, item := range data.SubmissionList.Submissions {
		id, err := strconv.ParseInt(item.ID, 10, 64)
		if err != nil {
			s.logger.Warn("skipping submission with bad id", "slug", titleSlug, "id", item.ID)
			continue
		}
		ts, err := strconv.ParseInt(item.Timestamp, 10, 64)
		if err != nil {
			s.logger.Warn("skipping submission with bad timestamp", "slug", titleSlug, "id", item.ID, "timestamp", item.Timestamp)
			continue
		}
		result = append(result, domain.SubmissionSummary{
			ID:        id,
			Status:    item.StatusDisplay,
			Language:  item.Lang,
			Timestamp: ts,
		})
	}

	return result, nil
}

// FetchSubmissionCode returns the source of a submission, or nil when the remote
// does not expose it.
func (s *Source) FetchSubmissionCode(ctx context.Context, submissionID int64) ([]byte, error) {
	var data submissionDetailsData
	err := s.graphQL(ctx, "submissionDetails", map[string]any{"submissionId": submissionID}, submissionDetailsQuery, &data)
	if err != nil {
		return nil, fmt.Errorf("fetch submission %d: %w", submissionID, err)
	}
	if data.SubmissionDetails == nil || data.SubmissionDetails.Code == nil || *data.SubmissionDetails.Code == "" {
		return nil, nil
	}
	return []byte(*data.SubmissionDetails.Code), nil
}

func (s *Source) graphQL(ctx context.Context, operation string, vars map[string]any, query string, out any) error {
	body, err := json.Marshal(graphQLRequest{
		OperationName: operation,
		Variables:     vars,
		Query:         query,
	})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", operation, err)
	}

	var resp graphQLResponse[json.RawMessage]
	err = s.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/graphql", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, &resp)
	if err != nil {
		return err
	}

	if len(resp.Errors) > 0 {
		return fmt.Errorf("%s: %s: %w", operation, resp.Errors[0].Message, classifyGraphQLError(resp.Errors))
	}
	if resp.Data == nil || string(*resp.Data) == "null" {
		return fmt.Errorf("%s: empty data: %w", operation, domain.ErrTransport)
	}

	if err := json.Unmarshal(*resp.Data, out); err != nil {
		return fmt.Errorf("%s: decode data: %v: %w", operation, err, domain.ErrTransport)
	}
	return nil
}

// authErrorMarkers are message fragments the remote uses when the session is
// missing or expired. GraphQL still answers 200 in that case.
var authErrorMarkers = []string{
	"not logged in",
	"login required",
	"unauthorized",
	"unauthenticated",
	"authentication",
}

// classifyGraphQLError maps a GraphQL error list to ErrUnauthorized when any
// entry is auth-class, ErrTransport otherwise.
func classifyGraphQLError(errs []graphQLError) error {
	for _, e := range errs {
		msg := strings.ToLower(e.Message)
		for _, marker := range authErrorMarkers {
			if strings.Contains(msg, marker) {
				return domain.ErrUnauthorized
			}
		}
	}
	return domain.ErrTransport
}

// do executes a request with retries. newReq is called once per attempt so the
// body reader is fresh.
func (s *Source) do(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error), out any) error {
	var err error
	attempts := 0

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		var retry bool
		attempts = attempt
		retry, err = s.doRequest(ctx, newReq, out)
		if err == nil {
			return nil
		}
		if !retry || attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	if attempts > 1 {
		return fmt.Errorf("after %d attempts: %w", attempts, err)
	}
	return err
}

func (s *Source) doRequest(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error), out any) (bool, error) {
	req, err := newReq(ctx)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("execute request: %v: %w", err, domain.ErrTransport)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, fmt.Errorf("unexpected status: %d: %w", resp.StatusCode, domain.ErrUnauthorized)
	case resp.StatusCode == http.StatusNotFound:
		return false, fmt.Errorf("unexpected status: %d: %w", resp.StatusCode, domain.ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return true, fmt.Errorf("unexpected status: %d: %w", resp.StatusCode, domain.ErrTransport)
	default:
		return false, fmt.Errorf("unexpected status: %d: %w", resp.StatusCode, domain.ErrTransport)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %v: %w", err, domain.ErrTransport)
	}

	return false, nil
}

func (s *Source) authorize(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", s.baseURL+"/")
	req.Header.Set("x-csrftoken", s.csrfToken)
	req.AddCookie(&http.Cookie{Name: "LEETCODE_SESSION", Value: s.session})
	req.AddCookie(&http.Cookie{Name: "csrftoken", Value: s.csrfToken})
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}
