package publishers

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"AutoPostAPI/models"
)

var errMissingContent = errors.New("post has no caption or image")

// SimulatedPublisher stands in for a real network: publishing always succeeds
// for complete posts and engagement numbers are drawn at random.
type SimulatedPublisher struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulatedPublisher() *SimulatedPublisher {
	return NewSimulatedPublisherWithSource(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
}

// NewSimulatedPublisherWithSource makes engagement reproducible in tests.
func NewSimulatedPublisherWithSource(src rand.Source) *SimulatedPublisher {
	return &SimulatedPublisher{rng: rand.New(src)}
}

func (p *SimulatedPublisher) Publish(ctx context.Context, post *models.Post, now time.Time) (models.Engagement, error) {
	if err := ctx.Err(); err != nil {
		return models.Engagement{}, err
	}
	if post.Caption == "" || post.ImageURL == "" {
		return models.Engagement{}, errMissingContent
	}

	p.mu.Lock()
	likes := 10 + p.rng.IntN(100)
	comments := 2 + p.rng.IntN(20)
	shares := 1 + p.rng.IntN(10)
	p.mu.Unlock()

	return models.Engagement{
		Likes:       likes,
		Comments:    comments,
		Shares:      shares,
		Impressions: likes * 5,
		Reach:       likes * 3,
		LastUpdated: now,
	}, nil
}
