package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"AutoPostAPI/models"
)

const postColumns = `id, user_id, occasion, category, audience, caption, image_url, image_prompt,
	status, scheduled_time, posted_time, errors, engagement, metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreatePost inserts post. A collision on the per-slot unique index is
// reported as ErrDuplicatePost.
func (d *Database) CreatePost(ctx context.Context, post *models.Post) error {
	if err := post.Validate(); err != nil {
		return err
	}
	errs, engagement, metadata, err := encodePostJSON(post)
	if err != nil {
		return err
	}

	query := `INSERT INTO posts (` + postColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = d.DB.ExecContext(ctx, query, post.ID, post.UserID, post.Occasion, post.Category, post.Audience,
		post.Caption, post.ImageURL, post.ImagePrompt, post.Status, post.ScheduledTime, post.PostedTime,
		errs, engagement, metadata, post.CreatedAt, post.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicatePost
	}
	return err
}

// HasActivePost reports whether the user already has a scheduled, posting or
// posted entry for occasion with a slot inside [from, to].
func (d *Database) HasActivePost(ctx context.Context, userID, occasion string, from, to time.Time) (bool, error) {
	query := `SELECT EXISTS (
				SELECT 1 FROM posts
				WHERE user_id = $1 AND occasion = $2
				  AND status IN ('scheduled', 'posting', 'posted')
				  AND scheduled_time BETWEEN $3 AND $4
			  )`

	var exists bool
	if err := d.DB.QueryRowContext(ctx, query, userID, occasion, from, to).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// DeleteReplaceablePosts removes draft and failed posts for occasion whose
// slot falls inside [from, to]. Unscheduled drafts are never touched.
func (d *Database) DeleteReplaceablePosts(ctx context.Context, userID, occasion string, from, to time.Time) (int64, error) {
	query := `DELETE FROM posts
			  WHERE user_id = $1 AND occasion = $2
			    AND status IN ('draft', 'failed')
			    AND scheduled_time BETWEEN $3 AND $4`

	res, err := d.DB.ExecContext(ctx, query, userID, occasion, from, to)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ClaimDuePosts atomically moves every scheduled post that is due at now into
// "posting" and returns the claimed rows. Concurrent sweeps never receive the
// same post.
func (d *Database) ClaimDuePosts(ctx context.Context, now time.Time) ([]*models.Post, error) {
	query := `UPDATE posts
			  SET status = $1, updated_at = $2
			  WHERE status = $3 AND scheduled_time <= $2
			  RETURNING ` + postColumns

	rows, err := d.DB.QueryContext(ctx, query, models.StatusPosting, now, models.StatusScheduled)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

// FailStalePosting fails posts that have been in "posting" since before
// cutoff, appending message to their errors with the next retry count.
func (d *Database) FailStalePosting(ctx context.Context, cutoff, now time.Time, message string) ([]string, error) {
	query := `UPDATE posts
			  SET status = 'failed', updated_at = $1,
			      errors = errors || jsonb_build_array(jsonb_build_object(
			          'message', $2::text,
			          'timestamp', $1::timestamptz,
			          'retry_count', COALESCE((errors->-1->>'retry_count')::int, 0) + 1))
			  WHERE status = 'posting' AND updated_at < $3
			  RETURNING id`

	rows, err := d.DB.QueryContext(ctx, query, now, message, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (d *Database) UpdatePost(ctx context.Context, post *models.Post) error {
	if err := post.Validate(); err != nil {
		return err
	}
	errs, engagement, metadata, err := encodePostJSON(post)
	if err != nil {
		return err
	}

	query := `UPDATE posts SET caption = $1, image_url = $2, image_prompt = $3, status = $4,
			  scheduled_time = $5, posted_time = $6, errors = $7, engagement = $8, metadata = $9, updated_at = $10
			  WHERE id = $11`

	res, err := d.DB.ExecContext(ctx, query, post.Caption, post.ImageURL, post.ImagePrompt, post.Status,
		post.ScheduledTime, post.PostedTime, errs, engagement, metadata, post.UpdatedAt, post.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePost
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPostNotFound
	}
	return nil
}

func (d *Database) GetPost(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(d.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	return post, err
}

// ListUserPosts returns one page of the user's posts, newest first. An empty
// status lists every status.
func (d *Database) ListUserPosts(ctx context.Context, userID string, status models.PostStatus, limit, offset int) ([]*models.Post, error) {
	where, args := userPostFilter(userID, status)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM posts WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		postColumns, where, len(args)-1, len(args))

	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

func (d *Database) CountUserPosts(ctx context.Context, userID string, status models.PostStatus) (int, error) {
	where, args := userPostFilter(userID, status)
	query := `SELECT COUNT(*) FROM posts WHERE ` + where

	var count int
	if err := d.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ScheduledPostsBetween returns up to limit scheduled posts of the user with
// a slot inside [from, to], earliest first.
func (d *Database) ScheduledPostsBetween(ctx context.Context, userID string, from, to time.Time, limit int) ([]*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts
			  WHERE user_id = $1 AND status = $2 AND scheduled_time BETWEEN $3 AND $4
			  ORDER BY scheduled_time ASC LIMIT $5`

	rows, err := d.DB.QueryContext(ctx, query, userID, models.StatusScheduled, from, to, limit)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

// DeletePost removes a post that is still draft, scheduled or failed. The
// status guard runs in the same statement so a concurrent claim wins.
func (d *Database) DeletePost(ctx context.Context, id string) error {
	query := `DELETE FROM posts
			  WHERE id = $1 AND status IN ('draft', 'scheduled', 'failed')`

	res, err := d.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := d.DB.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrPostNotDeletable
	}
	return ErrPostNotFound
}

func userPostFilter(userID string, status models.PostStatus) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}
	if status != "" {
		args = append(args, status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func collectPosts(rows *sql.Rows) ([]*models.Post, error) {
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func scanPost(row rowScanner) (*models.Post, error) {
	post := &models.Post{}
	var scheduled, posted sql.NullTime
	var errs, engagement, metadata []byte

	err := row.Scan(&post.ID, &post.UserID, &post.Occasion, &post.Category, &post.Audience,
		&post.Caption, &post.ImageURL, &post.ImagePrompt, &post.Status, &scheduled, &posted,
		&errs, &engagement, &metadata, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if scheduled.Valid {
		t := scheduled.Time
		post.ScheduledTime = &t
	}
	if posted.Valid {
		t := posted.Time
		post.PostedTime = &t
	}
	if err := decodeJSONColumn(errs, &post.Errors); err != nil {
		return nil, fmt.Errorf("post %s errors: %w", post.ID, err)
	}
	if err := decodeJSONColumn(engagement, &post.Engagement); err != nil {
		return nil, fmt.Errorf("post %s engagement: %w", post.ID, err)
	}
	if err := decodeJSONColumn(metadata, &post.Metadata); err != nil {
		return nil, fmt.Errorf("post %s metadata: %w", post.ID, err)
	}
	if post.Errors == nil {
		post.Errors = []models.PostError{}
	}
	return post, nil
}

func decodeJSONColumn(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func encodePostJSON(post *models.Post) (errs, engagement, metadata []byte, err error) {
	postErrors := post.Errors
	if postErrors == nil {
		postErrors = []models.PostError{}
	}
	if errs, err = json.Marshal(postErrors); err != nil {
		return nil, nil, nil, err
	}
	if engagement, err = json.Marshal(post.Engagement); err != nil {
		return nil, nil, nil, err
	}
	if metadata, err = json.Marshal(post.Metadata); err != nil {
		return nil, nil, nil, err
	}
	return errs, engagement, metadata, nil
}
