package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"leetcode_deck/internal/domain"
)

// LatestAccepted picks the accepted submission with the greatest timestamp.
func LatestAccepted(subs []domain.SubmissionSummary) (domain.SubmissionSummary, bool) {
	var (
		latest domain.SubmissionSummary
		found  bool
	)
	for _, sub := range subs {
		if !sub.Accepted() {
			continue
		}
		if !found || sub.Timestamp > latest.Timestamp {
			latest = sub
			found = true
		}
	}
	return latest, found
}

// refreshSubmission stores the latest accepted submission of a problem unless it
// is already known. Missing code is logged and skipped.
func (h *Harvester) refreshSubmission(ctx context.Context, logger *slog.Logger, item domain.PlanItem, o *outcome) error {
	subs, err := h.source.FetchSubmissions(ctx, item.Slug, h.config.SubmissionLimit)
	if err != nil {
		return fmt.Errorf("fetch submissions: %w", err)
	}
	if err := h.pacer.Pause(ctx); err != nil {
		return err
	}

	latest, ok := LatestAccepted(subs)
	if !ok {
		logger.Info("no accepted submission in recent list", "listed", len(subs))
		return nil
	}

	exists, err := h.submissions.Exists(ctx, latest.ID)
	if err != nil {
		return fmt.Errorf("check submission: %w", err)
	}
	if exists {
		logger.Debug("submission already stored", "submission_id", latest.ID)
		return nil
	}

	code, err := h.source.FetchSubmissionCode(ctx, latest.ID)
	if err != nil {
		if domain.IsFatal(err) {
			return fmt.Errorf("fetch submission code: %w", err)
		}
		logger.Warn("submission code unavailable", "submission_id", latest.ID, "error", err)
		return nil
	}
	if err := h.pacer.Pause(ctx); err != nil {
		return err
	}
	if len(code) == 0 {
		logger.Warn("submission has no code", "submission_id", latest.ID)
		return nil
	}

	sub := &domain.Submission{
		ID:        latest.ID,
		Slug:      item.Slug,
		Language:  latest.Language,
		CreatedAt: time.Unix(latest.Timestamp, 0).UTC(),
		Source:    code,
	}
	if err := h.submissions.Insert(ctx, sub); err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	o.submissionSaved = true

	h.publish(ctx, logger, domain.HarvestEvent{
		Kind:         domain.EventSubmission,
		Slug:         item.Slug,
		ProblemID:    item.ID,
		SubmissionID: latest.ID,
	}, o)

	return nil
}
