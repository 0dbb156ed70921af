package database

import (
	"context"
	"database/sql"
	"errors"

	"AutoPostAPI/models"
)

const userColumns = `id, email, name, default_category, default_audience, auto_generate_posts,
	college_name, school_name, industry, company_name, ngo_cause, created_at`

// GetAutomationUsers returns every user that opted into automatic posts.
func (d *Database) GetAutomationUsers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE auto_generate_posts = true ORDER BY created_at, id`

	rows, err := d.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (d *Database) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(d.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.DefaultCategory, &user.DefaultAudience,
		&user.AutoGeneratePosts, &user.CollegeName, &user.SchoolName, &user.Industry,
		&user.CompanyName, &user.NGOCause, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}
