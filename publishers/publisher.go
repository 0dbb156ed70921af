package publishers

import (
	"context"
	"time"

	"AutoPostAPI/models"
)

// Publisher finalizes a claimed post and reports the engagement it drew.
type Publisher interface {
	Publish(ctx context.Context, post *models.Post, now time.Time) (models.Engagement, error)
}
