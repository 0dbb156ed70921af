package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"AutoPostAPI/database"
	"AutoPostAPI/models"
	"AutoPostAPI/utils"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	todayPostsLimit = 5
)

var (
	// ErrInvalidTransition is returned when a post's status does not allow
	// the requested change.
	ErrInvalidTransition = errors.New("post status does not allow this change")
	ErrScheduleInPast    = errors.New("scheduled time must not be before the start of today")
	ErrInvalidPagination = errors.New("page must be >= 1 and limit between 1 and 100")
)

// PostService covers the manual side of the post lifecycle: drafting,
// scheduling, listing and removing a user's own posts.
type PostService struct {
	posts     PostStore
	generator ContentGenerator
	loc       *time.Location
	now       func() time.Time
	newID     func() string
}

func NewPostService(posts PostStore, generator ContentGenerator, loc *time.Location) *PostService {
	if loc == nil {
		loc = time.UTC
	}
	return &PostService{
		posts:     posts,
		generator: generator,
		loc:       loc,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// GenerateDraft generates content for req and stores it as a draft.
func (s *PostService) GenerateDraft(ctx context.Context, userID string, req models.GenerationRequest) (*models.Post, error) {
	content, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	audience := req.Audience
	if audience == "" {
		audience = models.AudienceGeneral
	}
	post := &models.Post{
		ID:          s.newID(),
		UserID:      userID,
		Occasion:    req.Occasion,
		Category:    req.Category,
		Audience:    audience,
		Caption:     content.Caption,
		ImageURL:    content.ImageURL,
		ImagePrompt: content.ImagePrompt,
		Status:      models.StatusDraft,
		Errors:      []models.PostError{},
		Metadata:    content.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("store draft: %w", err)
	}
	utils.Infof("Draft %s generated for %q (user %s)", post.ID, post.Occasion, userID)
	return post, nil
}

// Schedule moves a draft to scheduled at the given time.
func (s *PostService) Schedule(ctx context.Context, userID, postID string, at time.Time) (*models.Post, error) {
	post, err := s.Get(ctx, userID, postID)
	if err != nil {
		return nil, err
	}
	if post.Status != models.StatusDraft {
		return nil, fmt.Errorf("%w: cannot schedule a %s post", ErrInvalidTransition, post.Status)
	}

	y, m, d := s.now().In(s.loc).Date()
	if at.Before(time.Date(y, m, d, 0, 0, 0, 0, s.loc)) {
		return nil, ErrScheduleInPast
	}

	slot := at.UTC()
	post.Status = models.StatusScheduled
	post.ScheduledTime = &slot
	post.UpdatedAt = s.now()
	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Get returns the post if it belongs to userID. Other users' posts are
// reported as not found.
func (s *PostService) Get(ctx context.Context, userID, postID string) (*models.Post, error) {
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, database.ErrPostNotFound
	}
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, userID, postID string) error {
	post, err := s.Get(ctx, userID, postID)
	if err != nil {
		return err
	}
	if !post.Status.Deletable() {
		return fmt.Errorf("%w: cannot delete a %s post", ErrInvalidTransition, post.Status)
	}
	if err := s.posts.DeletePost(ctx, postID); err != nil {
		if errors.Is(err, database.ErrPostNotDeletable) {
			return fmt.Errorf("%w: post was picked up for publishing", ErrInvalidTransition)
		}
		return err
	}
	return nil
}

func (s *PostService) List(ctx context.Context, userID string, status models.PostStatus, page, limit int) (*models.PostListResponse, error) {
	if page < 1 || limit < 1 || limit > MaxPageSize {
		return nil, ErrInvalidPagination
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}

	posts, err := s.posts.ListUserPosts(ctx, userID, status, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	total, err := s.posts.CountUserPosts(ctx, userID, status)
	if err != nil {
		return nil, err
	}

	return &models.PostListResponse{
		Posts:       posts,
		CurrentPage: page,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
		TotalPosts:  total,
	}, nil
}

// Today returns up to five of the user's scheduled posts for the current
// day in the automation timezone, earliest first.
func (s *PostService) Today(ctx context.Context, userID string) ([]*models.Post, error) {
	y, m, d := s.now().In(s.loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1).Add(-time.Microsecond)
	return s.posts.ScheduledPostsBetween(ctx, userID, start, end, todayPostsLimit)
}
