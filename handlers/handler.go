package handlers

import (
	"context"
	"time"

	"AutoPostAPI/services"

	"github.com/go-playground/validator/v10"
)

// Pinger reports whether the database is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	db         Pinger
	users      services.UserStore
	automation *services.AutomationService
	posts      *services.PostService
	validate   *validator.Validate
	now        func() time.Time
}

func NewHandler(db Pinger, users services.UserStore, automation *services.AutomationService, posts *services.PostService) *Handler {
	return &Handler{
		db:         db,
		users:      users,
		automation: automation,
		posts:      posts,
		validate:   validator.New(),
		now:        time.Now,
	}
}
