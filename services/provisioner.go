package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AutoPostAPI/calendar"
	"AutoPostAPI/database"
	"AutoPostAPI/models"
	"AutoPostAPI/utils"

	"github.com/google/uuid"
)

// Outcome is the result of provisioning one agenda event.
type Outcome string

const (
	OutcomeScheduled Outcome = "scheduled"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeDuplicate Outcome = "duplicate"
)

const (
	failedPostImageURL  = "https://placehold.co/1080x1080/dc3545/ffffff.png?text=Generation+Failed"
	maxFailureCaption   = 500
	unavailableModel    = "N/A"
	generationErrPrefix = "Content generation failed: "
)

// Provisioner turns one agenda event into at most one post per user,
// occasion and UTC day.
type Provisioner struct {
	posts     PostStore
	generator ContentGenerator
	metrics   *Metrics
	now       func() time.Time
	newID     func() string
}

func NewProvisioner(posts PostStore, generator ContentGenerator, metrics *Metrics) *Provisioner {
	return &Provisioner{
		posts:     posts,
		generator: generator,
		metrics:   metrics,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Provision creates the post for event unless one is already live for the
// same day. Generation problems are recorded as a failed post and reported
// through the outcome; only storage problems are returned as errors.
func (p *Provisioner) Provision(ctx context.Context, userID string, event calendar.DailyEvent) (Outcome, error) {
	from, to := utcDayWindow(event.AssignedTime)

	active, err := p.posts.HasActivePost(ctx, userID, event.Occasion, from, to)
	if err != nil {
		return "", fmt.Errorf("check existing post for %q: %w", event.Occasion, err)
	}
	if active {
		utils.Infof("Skipping %q for user %s: already scheduled or posted on %s", event.Occasion, userID, from.Format(time.DateOnly))
		return p.finish(OutcomeSkipped), nil
	}

	removed, err := p.posts.DeleteReplaceablePosts(ctx, userID, event.Occasion, from, to)
	if err != nil {
		return "", fmt.Errorf("clear draft/failed posts for %q: %w", event.Occasion, err)
	}
	if removed > 0 {
		utils.Infof("Removed %d draft/failed post(s) for %q before regenerating", removed, event.Occasion)
	}

	content, genErr := p.generator.Generate(ctx, models.GenerationRequest{
		Occasion:   event.Occasion,
		Category:   event.Category,
		Audience:   event.Audience,
		PromptHint: event.PromptHint,
	})

	var post *models.Post
	outcome := OutcomeScheduled
	if genErr != nil {
		utils.Errorf("Content generation failed for %q (user %s): %v", event.Occasion, userID, genErr)
		post = p.failedPost(userID, event, genErr)
		outcome = OutcomeFailed
	} else {
		post = p.scheduledPost(userID, event, content)
	}

	if err := p.posts.CreatePost(ctx, post); err != nil {
		if errors.Is(err, database.ErrDuplicatePost) {
			utils.Infof("Post for %q (user %s) at %s was created concurrently", event.Occasion, userID, event.AssignedTime.Format(time.RFC3339))
			return p.finish(OutcomeDuplicate), nil
		}
		return "", fmt.Errorf("store post for %q: %w", event.Occasion, err)
	}

	if outcome == OutcomeScheduled {
		utils.Infof("Scheduled %q for user %s at %s (post %s)", event.Occasion, userID, event.AssignedTime.Format(time.RFC3339), post.ID)
	}
	return p.finish(outcome), nil
}

func (p *Provisioner) finish(outcome Outcome) Outcome {
	p.metrics.provisioned(outcome)
	return outcome
}

func (p *Provisioner) scheduledPost(userID string, event calendar.DailyEvent, content *models.GeneratedContent) *models.Post {
	now := p.now()
	slot := event.AssignedTime
	return &models.Post{
		ID:            p.newID(),
		UserID:        userID,
		Occasion:      event.Occasion,
		Category:      event.Category,
		Audience:      event.Audience,
		Caption:       content.Caption,
		ImageURL:      content.ImageURL,
		ImagePrompt:   content.ImagePrompt,
		Status:        models.StatusScheduled,
		ScheduledTime: &slot,
		Errors:        []models.PostError{},
		Metadata:      content.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (p *Provisioner) failedPost(userID string, event calendar.DailyEvent, genErr error) *models.Post {
	now := p.now()
	slot := event.AssignedTime
	message := generationErrPrefix + genErr.Error()
	return &models.Post{
		ID:            p.newID(),
		UserID:        userID,
		Occasion:      event.Occasion,
		Category:      event.Category,
		Audience:      event.Audience,
		Caption:       truncateRunes(message, maxFailureCaption),
		ImageURL:      failedPostImageURL,
		Status:        models.StatusFailed,
		ScheduledTime: &slot,
		Errors:        []models.PostError{{Message: message, Timestamp: now, RetryCount: 0}},
		Metadata: models.GenerationMetadata{
			CaptionModel: unavailableModel,
			ImageModel:   unavailableModel,
			GeneratedAt:  now,
			Error:        genErr.Error(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// utcDayWindow returns the first and last instant of t's UTC calendar day.
func utcDayWindow(t time.Time) (time.Time, time.Time) {
	y, m, d := t.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Microsecond)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
