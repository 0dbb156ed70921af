package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"AutoPostAPI/models"
)

var sweepNow = time.Date(2024, time.December, 25, 4, 31, 0, 0, time.UTC)

func scheduledAt(id string, at time.Time) *models.Post {
	return &models.Post{
		ID:            id,
		UserID:        "user-1",
		Occasion:      "Christmas " + id,
		Category:      models.CategoryCollege,
		Caption:       "Merry Christmas from ABC College!",
		ImageURL:      "https://images.example.com/tree.jpg",
		Status:        models.StatusScheduled,
		ScheduledTime: &at,
		Errors:        []models.PostError{},
	}
}

func TestSweepPostsDuePosts(t *testing.T) {
	store := newMemPostStore()
	store.put(scheduledAt("due", sweepNow.Add(-time.Minute)))
	store.put(scheduledAt("exact", sweepNow))
	store.put(scheduledAt("later", sweepNow.Add(time.Hour)))
	pub := &fakePublisher{}
	sweeper := NewSweeper(store, pub, 10*time.Minute, NewMetrics(nil))

	report, err := sweeper.Sweep(context.Background(), sweepNow)
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if report.Claimed != 2 || report.Posted != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	for _, id := range []string{"due", "exact"} {
		post := store.get(id)
		if post.Status != models.StatusPosted {
			t.Fatalf("%s: expected posted, got %s", id, post.Status)
		}
		if post.PostedTime == nil || !post.PostedTime.Equal(sweepNow) {
			t.Fatalf("%s: expected posted time %s, got %v", id, sweepNow, post.PostedTime)
		}
		if post.Engagement.Likes != 42 {
			t.Fatalf("%s: expected engagement to be stored, got %+v", id, post.Engagement)
		}
	}
	if later := store.get("later"); later.Status != models.StatusScheduled {
		t.Fatalf("future post should stay scheduled, got %s", later.Status)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	store := newMemPostStore()
	store.put(scheduledAt("due", sweepNow.Add(-time.Minute)))
	pub := &fakePublisher{}
	sweeper := NewSweeper(store, pub, 10*time.Minute, nil)

	if _, err := sweeper.Sweep(context.Background(), sweepNow); err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	first := store.get("due")

	report, err := sweeper.Sweep(context.Background(), sweepNow.Add(time.Minute))
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if report.Claimed != 0 || report.Posted != 0 {
		t.Fatalf("second sweep should be a no-op, got %+v", report)
	}
	if pub.calls != 1 {
		t.Fatalf("expected exactly one publish, got %d", pub.calls)
	}
	if second := store.get("due"); !second.PostedTime.Equal(*first.PostedTime) {
		t.Fatalf("posted time changed from %s to %s", first.PostedTime, second.PostedTime)
	}
}

func TestSweepMarksFailuresWithNextRetryCount(t *testing.T) {
	store := newMemPostStore()
	retried := scheduledAt("retried", sweepNow.Add(-time.Minute))
	retried.Errors = []models.PostError{{Message: "earlier", Timestamp: sweepNow.Add(-time.Hour), RetryCount: 2}}
	store.put(retried)
	store.put(scheduledAt("fresh", sweepNow.Add(-time.Minute)))
	store.put(scheduledAt("ok", sweepNow.Add(-time.Minute)))

	pub := &fakePublisher{failFor: map[string]error{
		"retried": errors.New("platform unavailable"),
		"fresh":   errors.New("platform unavailable"),
	}}
	sweeper := NewSweeper(store, pub, 0, nil)

	report, err := sweeper.Sweep(context.Background(), sweepNow)
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if report.Posted != 1 || report.Failed != 2 || len(report.FailedIDs) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}

	tests := []struct {
		id        string
		wantCount int
		wantLen   int
	}{
		{id: "retried", wantCount: 3, wantLen: 2},
		{id: "fresh", wantCount: 1, wantLen: 1},
	}
	for _, tt := range tests {
		post := store.get(tt.id)
		if post.Status != models.StatusFailed {
			t.Fatalf("%s: expected failed, got %s", tt.id, post.Status)
		}
		if post.PostedTime != nil {
			t.Fatalf("%s: failed post must not carry a posted time", tt.id)
		}
		if len(post.Errors) != tt.wantLen {
			t.Fatalf("%s: expected %d errors, got %d", tt.id, tt.wantLen, len(post.Errors))
		}
		last := post.Errors[len(post.Errors)-1]
		if last.RetryCount != tt.wantCount || last.Message != "platform unavailable" || !last.Timestamp.Equal(sweepNow) {
			t.Fatalf("%s: unexpected last error %+v", tt.id, last)
		}
	}
	if ok := store.get("ok"); ok.Status != models.StatusPosted {
		t.Fatalf("one failure must not stop the others, got %s", ok.Status)
	}
}

func TestSweepFailsStalePostingClaims(t *testing.T) {
	store := newMemPostStore()
	stuck := scheduledAt("stuck", sweepNow.Add(-time.Hour))
	stuck.Status = models.StatusPosting
	stuck.UpdatedAt = sweepNow.Add(-30 * time.Minute)
	store.put(stuck)
	recent := scheduledAt("recent", sweepNow.Add(-time.Hour))
	recent.Status = models.StatusPosting
	recent.UpdatedAt = sweepNow.Add(-time.Minute)
	store.put(recent)

	sweeper := NewSweeper(store, &fakePublisher{}, 10*time.Minute, nil)
	report, err := sweeper.Sweep(context.Background(), sweepNow)
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if report.StaleFailed != 1 {
		t.Fatalf("expected one stale claim, got %+v", report)
	}

	post := store.get("stuck")
	if post.Status != models.StatusFailed || len(post.Errors) != 1 || post.Errors[0].Message != staleClaimMessage || post.Errors[0].RetryCount != 1 {
		t.Fatalf("unexpected stale post %+v", post)
	}
	if store.get("recent").Status != models.StatusPosting {
		t.Fatalf("recent claim should be left alone")
	}
}

func TestSweepReturnsClaimError(t *testing.T) {
	store := newMemPostStore()
	store.errs["ClaimDuePosts"] = errBoom
	sweeper := NewSweeper(store, &fakePublisher{}, 0, nil)

	if _, err := sweeper.Sweep(context.Background(), sweepNow); !errors.Is(err, errBoom) {
		t.Fatalf("expected claim error, got %v", err)
	}
}
