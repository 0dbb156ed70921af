package services

import (
	"context"
	"time"

	"AutoPostAPI/models"
)

// ContentGenerator turns an occasion into a caption and image.
type ContentGenerator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (*models.GeneratedContent, error)
}

type UserStore interface {
	GetAutomationUsers(ctx context.Context) ([]*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// PostStore is the persistence the automation and post management need.
// *database.Database satisfies it.
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	HasActivePost(ctx context.Context, userID, occasion string, from, to time.Time) (bool, error)
	DeleteReplaceablePosts(ctx context.Context, userID, occasion string, from, to time.Time) (int64, error)
	ClaimDuePosts(ctx context.Context, now time.Time) ([]*models.Post, error)
	FailStalePosting(ctx context.Context, cutoff, now time.Time, message string) ([]string, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListUserPosts(ctx context.Context, userID string, status models.PostStatus, limit, offset int) ([]*models.Post, error)
	CountUserPosts(ctx context.Context, userID string, status models.PostStatus) (int, error)
	ScheduledPostsBetween(ctx context.Context, userID string, from, to time.Time, limit int) ([]*models.Post, error)
	DeletePost(ctx context.Context, id string) error
}
