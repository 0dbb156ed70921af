package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"AutoPostAPI/database"
	"AutoPostAPI/models"
)

// memPostStore mirrors the SQL repository closely enough for service tests,
// including the unique (user, occasion, category, scheduled_time) index.
type memPostStore struct {
	mu    sync.Mutex
	posts map[string]*models.Post
	order []string

	errs        map[string]error
	createErrIf func(*models.Post) error
	creates     int
	// afterGet runs once GetPost has taken its snapshot.
	afterGet func(id string)
}

func newMemPostStore() *memPostStore {
	return &memPostStore{posts: make(map[string]*models.Post), errs: make(map[string]error)}
}

func clonePost(p *models.Post) *models.Post {
	c := *p
	if p.ScheduledTime != nil {
		t := *p.ScheduledTime
		c.ScheduledTime = &t
	}
	if p.PostedTime != nil {
		t := *p.PostedTime
		c.PostedTime = &t
	}
	c.Errors = append([]models.PostError{}, p.Errors...)
	return &c
}

func (s *memPostStore) put(p *models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.posts[p.ID] = clonePost(p)
}

func (s *memPostStore) get(id string) *models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[id]; ok {
		return clonePost(p)
	}
	return nil
}

func (s *memPostStore) all() []*models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Post, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.posts[id]; ok {
			out = append(out, clonePost(p))
		}
	}
	return out
}

func (s *memPostStore) CreatePost(ctx context.Context, post *models.Post) error {
	if err := s.errs["CreatePost"]; err != nil {
		return err
	}
	if s.createErrIf != nil {
		if err := s.createErrIf(post); err != nil {
			return err
		}
	}
	if err := post.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if post.ScheduledTime != nil {
		for _, p := range s.posts {
			if p.UserID == post.UserID && p.Occasion == post.Occasion && p.Category == post.Category &&
				p.ScheduledTime != nil && p.ScheduledTime.Equal(*post.ScheduledTime) {
				s.mu.Unlock()
				return database.ErrDuplicatePost
			}
		}
	}
	s.creates++
	s.mu.Unlock()

	s.put(post)
	return nil
}

func (s *memPostStore) HasActivePost(ctx context.Context, userID, occasion string, from, to time.Time) (bool, error) {
	if err := s.errs["HasActivePost"]; err != nil {
		return false, err
	}
	for _, p := range s.all() {
		if p.UserID != userID || p.Occasion != occasion || p.ScheduledTime == nil {
			continue
		}
		switch p.Status {
		case models.StatusScheduled, models.StatusPosting, models.StatusPosted:
			if inWindow(*p.ScheduledTime, from, to) {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *memPostStore) DeleteReplaceablePosts(ctx context.Context, userID, occasion string, from, to time.Time) (int64, error) {
	if err := s.errs["DeleteReplaceablePosts"]; err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, p := range s.posts {
		if p.UserID != userID || p.Occasion != occasion {
			continue
		}
		if p.Status != models.StatusDraft && p.Status != models.StatusFailed {
			continue
		}
		if p.ScheduledTime != nil && inWindow(*p.ScheduledTime, from, to) {
			delete(s.posts, id)
			removed++
		}
	}
	return removed, nil
}

func (s *memPostStore) ClaimDuePosts(ctx context.Context, now time.Time) ([]*models.Post, error) {
	if err := s.errs["ClaimDuePosts"]; err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []*models.Post
	for _, id := range s.order {
		p, ok := s.posts[id]
		if !ok || p.Status != models.StatusScheduled || p.ScheduledTime == nil || p.ScheduledTime.After(now) {
			continue
		}
		p.Status = models.StatusPosting
		p.UpdatedAt = now
		claimed = append(claimed, clonePost(p))
	}
	return claimed, nil
}

func (s *memPostStore) FailStalePosting(ctx context.Context, cutoff, now time.Time, message string) ([]string, error) {
	if err := s.errs["FailStalePosting"]; err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, id := range s.order {
		p, ok := s.posts[id]
		if !ok || p.Status != models.StatusPosting || !p.UpdatedAt.Before(cutoff) {
			continue
		}
		p.Errors = append(p.Errors, models.PostError{Message: message, Timestamp: now, RetryCount: p.LastRetryCount() + 1})
		p.Status = models.StatusFailed
		p.UpdatedAt = now
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *memPostStore) UpdatePost(ctx context.Context, post *models.Post) error {
	if err := s.errs["UpdatePost"]; err != nil {
		return err
	}
	if err := post.Validate(); err != nil {
		return err
	}
	if s.get(post.ID) == nil {
		return database.ErrPostNotFound
	}
	s.put(post)
	return nil
}

func (s *memPostStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if p := s.get(id); p != nil {
		if s.afterGet != nil {
			s.afterGet(id)
		}
		return p, nil
	}
	return nil, database.ErrPostNotFound
}

func (s *memPostStore) userPosts(userID string, status models.PostStatus) []*models.Post {
	var out []*models.Post
	for _, p := range s.all() {
		if p.UserID == userID && (status == "" || p.Status == status) {
			out = append(out, p)
		}
	}
	return out
}

func (s *memPostStore) ListUserPosts(ctx context.Context, userID string, status models.PostStatus, limit, offset int) ([]*models.Post, error) {
	if err := s.errs["ListUserPosts"]; err != nil {
		return nil, err
	}
	posts := s.userPosts(userID, status)
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	if offset >= len(posts) {
		return []*models.Post{}, nil
	}
	posts = posts[offset:]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (s *memPostStore) CountUserPosts(ctx context.Context, userID string, status models.PostStatus) (int, error) {
	return len(s.userPosts(userID, status)), nil
}

func (s *memPostStore) ScheduledPostsBetween(ctx context.Context, userID string, from, to time.Time, limit int) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range s.userPosts(userID, models.StatusScheduled) {
		if p.ScheduledTime != nil && inWindow(*p.ScheduledTime, from, to) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledTime.Before(*out[j].ScheduledTime) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memPostStore) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return database.ErrPostNotFound
	}
	if !p.Status.Deletable() {
		return database.ErrPostNotDeletable
	}
	delete(s.posts, id)
	return nil
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

type memUserStore struct {
	users []*models.User
	err   error
}

func (s *memUserStore) GetAutomationUsers(ctx context.Context) ([]*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*models.User
	for _, u := range s.users {
		if u.AutoGeneratePosts {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *memUserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, database.ErrUserNotFound
}

// fakeGenerator returns canned content unless failFor names the occasion.
type fakeGenerator struct {
	mu       sync.Mutex
	failFor  map[string]error
	requests []models.GenerationRequest
}

func (g *fakeGenerator) Generate(ctx context.Context, req models.GenerationRequest) (*models.GeneratedContent, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	g.mu.Unlock()

	if err := g.failFor[req.Occasion]; err != nil {
		return nil, err
	}
	return &models.GeneratedContent{
		Caption:     fmt.Sprintf("Celebrating %s together!", req.Occasion),
		ImageURL:    "https://images.example.com/" + req.Occasion + ".jpg",
		ImagePrompt: req.Occasion + " illustration",
		Metadata: models.GenerationMetadata{
			CaptionModel: "fake",
			ImageModel:   "fake",
		},
	}, nil
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

type fakePublisher struct {
	failFor map[string]error
	calls   int
}

func (p *fakePublisher) Publish(ctx context.Context, post *models.Post, now time.Time) (models.Engagement, error) {
	p.calls++
	if err := p.failFor[post.ID]; err != nil {
		return models.Engagement{}, err
	}
	return models.Engagement{Likes: 42, Comments: 5, Shares: 3, Impressions: 210, Reach: 126, LastUpdated: now}, nil
}

var errBoom = errors.New("boom")

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
