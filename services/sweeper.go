package services

import (
	"context"
	"fmt"
	"time"

	"AutoPostAPI/models"
	"AutoPostAPI/publishers"
	"AutoPostAPI/utils"
)

const staleClaimMessage = "posting claim expired before the post was finalized"

type SweepReport struct {
	StaleFailed int      `json:"stale_failed"`
	Claimed     int      `json:"claimed"`
	Posted      int      `json:"posted"`
	Failed      int      `json:"failed"`
	FailedIDs   []string `json:"failed_ids,omitempty"`
}

// Sweeper finalizes scheduled posts whose time has come.
type Sweeper struct {
	posts      PostStore
	publisher  publishers.Publisher
	staleAfter time.Duration
	metrics    *Metrics
}

func NewSweeper(posts PostStore, publisher publishers.Publisher, staleAfter time.Duration, metrics *Metrics) *Sweeper {
	return &Sweeper{posts: posts, publisher: publisher, staleAfter: staleAfter, metrics: metrics}
}

// Sweep first fails posts left in "posting" by an interrupted sweep, then
// claims every scheduled post due at now and publishes each one on its own.
// A failure on one post never stops the others.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	var report SweepReport

	if s.staleAfter > 0 {
		ids, err := s.posts.FailStalePosting(ctx, now.Add(-s.staleAfter), now, staleClaimMessage)
		if err != nil {
			return report, fmt.Errorf("fail stale posting claims: %w", err)
		}
		for _, id := range ids {
			utils.Warnf("Post %s was stuck in posting for over %s, marked failed", id, s.staleAfter)
		}
		report.StaleFailed = len(ids)
		s.metrics.swept("stale", len(ids))
	}

	claimed, err := s.posts.ClaimDuePosts(ctx, now)
	if err != nil {
		return report, fmt.Errorf("claim due posts: %w", err)
	}
	report.Claimed = len(claimed)
	if len(claimed) == 0 {
		utils.Debugf("No scheduled posts due at %s", now.Format(time.RFC3339))
		return report, nil
	}
	utils.Infof("Claimed %d due post(s)", len(claimed))

	for _, post := range claimed {
		if err := s.finalize(ctx, post, now); err != nil {
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, post.ID)
			continue
		}
		report.Posted++
	}

	s.metrics.swept(string(models.StatusPosted), report.Posted)
	s.metrics.swept(string(models.StatusFailed), report.Failed)
	return report, nil
}

// finalize moves a claimed post to posted, or to failed with the next retry
// count when publishing or persisting goes wrong.
func (s *Sweeper) finalize(ctx context.Context, post *models.Post, now time.Time) error {
	engagement, err := s.publisher.Publish(ctx, post, now)
	if err == nil {
		posted := now
		post.Status = models.StatusPosted
		post.PostedTime = &posted
		post.Engagement = engagement
		post.UpdatedAt = now
		if err = s.posts.UpdatePost(ctx, post); err == nil {
			utils.Infof("Posted %s (%q)", post.ID, post.Occasion)
			return nil
		}
	}

	utils.Errorf("Failed to finalize post %s (%q): %v", post.ID, post.Occasion, err)
	post.Status = models.StatusFailed
	post.PostedTime = nil
	post.Engagement = models.Engagement{}
	post.UpdatedAt = now
	post.Errors = append(post.Errors, models.PostError{
		Message:    err.Error(),
		Timestamp:  now,
		RetryCount: post.LastRetryCount() + 1,
	})
	if updateErr := s.posts.UpdatePost(ctx, post); updateErr != nil {
		// The row stays in posting; the next sweep fails it once the claim is stale.
		utils.Errorf("Could not mark post %s failed: %v", post.ID, updateErr)
	}
	return err
}
