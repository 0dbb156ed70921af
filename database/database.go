package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicatePost is returned when an insert collides with the
	// (user_id, occasion, category, scheduled_time) unique index.
	ErrDuplicatePost = errors.New("post already exists for this user, occasion and slot")
	ErrPostNotFound  = errors.New("post not found")
	ErrUserNotFound  = errors.New("user not found")
)

// ErrPostNotDeletable is returned when the post exists but has moved past
// draft, scheduled or failed.
var ErrPostNotDeletable = errors.New("post can no longer be deleted")

const uniqueViolation = "23505"

type Database struct {
	DB *sql.DB
}

func NewDatabase(connStr string) (*Database, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	database := &Database{DB: db}
	if err := database.createTables(); err != nil {
		return nil, err
	}

	return database, nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}

func (d *Database) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(255) PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			default_category VARCHAR(50) NOT NULL DEFAULT 'college',
			default_audience VARCHAR(50) NOT NULL DEFAULT 'general',
			auto_generate_posts BOOLEAN NOT NULL DEFAULT false,
			college_name VARCHAR(255) NOT NULL DEFAULT '',
			school_name VARCHAR(255) NOT NULL DEFAULT '',
			industry VARCHAR(255) NOT NULL DEFAULT '',
			company_name VARCHAR(255) NOT NULL DEFAULT '',
			ngo_cause VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			occasion VARCHAR(100) NOT NULL,
			category VARCHAR(50) NOT NULL,
			audience VARCHAR(50) NOT NULL DEFAULT 'general',
			caption TEXT NOT NULL,
			image_url TEXT NOT NULL,
			image_prompt VARCHAR(500) NOT NULL DEFAULT '',
			status VARCHAR(50) NOT NULL,
			scheduled_time TIMESTAMPTZ,
			posted_time TIMESTAMPTZ,
			errors JSONB NOT NULL DEFAULT '[]'::jsonb,
			engagement JSONB NOT NULL DEFAULT '{}'::jsonb,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			CHECK (status NOT IN ('scheduled', 'posting', 'posted') OR scheduled_time IS NOT NULL),
			CHECK (posted_time IS NULL OR status = 'posted'),
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS posts_user_occasion_slot_idx
			ON posts (user_id, occasion, category, scheduled_time)`,
		`CREATE INDEX IF NOT EXISTS posts_status_scheduled_idx
			ON posts (status, scheduled_time)`,
		`CREATE INDEX IF NOT EXISTS posts_user_created_idx
			ON posts (user_id, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := d.DB.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
