package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leetcode_deck/internal/domain"
	"leetcode_deck/internal/source/leetcode"
)

// expiringRemote serves a listing of n stored problems and answers the first
// validSubmissionCalls submission lists normally. Later calls report an expired
// session inside a 200 GraphQL body with data present.
func expiringRemote(t *testing.T, n int, validSubmissionCalls int32) *httptest.Server {
	var submissionCalls atomic.Int32

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Path == "/api/problems/all/" {
			type stat struct {
				QuestionID int64  `json:"question_id"`
				TitleSlug  string `json:"question__title_slug"`
			}
			type pair struct {
				Stat   stat   `json:"stat"`
				Status string `json:"status"`
			}
			pairs := make([]pair, n)
			for i := range pairs {
				pairs[i] = pair{Stat: stat{QuestionID: int64(i + 1), TitleSlug: fmt.Sprintf("p%02d", i+1)}, Status: "ac"}
			}
			require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
				"user_name":         "someone",
				"num_solved":        n,
				"stat_status_pairs": pairs,
			}))
			return
		}

		if submissionCalls.Add(1) <= validSubmissionCalls {
			_, _ = io.WriteString(w, `{"data": {"submissionList": {"hasNext": false, "submissions": []}}}`)
			return
		}
		_, _ = io.WriteString(w, `{"errors": [{"message": "User is not logged in"}], "data": {"submissionList": null}}`)
	}))
}

func TestHarvest_ExpiredSessionStopsScheduling(t *testing.T) {
	const n = 6
	server := expiringRemote(t, n, 2)
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	src := leetcode.New(leetcode.Config{
		BaseURL:        server.URL,
		Session:        "session",
		CSRFToken:      "csrf",
		Timeout:        5 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}, logger)

	store := newMemStore()
	for i := 1; i <= n; i++ {
		store.problems[int64(i)] = domain.Problem{ID: int64(i), Slug: fmt.Sprintf("p%02d", i)}
	}

	stats, err := newTestHarvester(src, store, nil, defaultHarvestConfig()).Harvest(context.Background(), 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	require.NotNil(t, stats)
	assert.True(t, stats.Aborted)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, n-3, stats.Skipped)
	assert.Zero(t, store.writeCount())
	assertAccounting(t, stats, n)
}
