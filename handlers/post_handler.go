package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"AutoPostAPI/database"
	"AutoPostAPI/generators"
	"AutoPostAPI/middleware"
	"AutoPostAPI/models"
	"AutoPostAPI/services"
	"AutoPostAPI/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// decodeBody reads a JSON body into dst and runs struct validation. It writes
// the error response itself and reports whether the handler may continue.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid "+strings.ToLower(fe.Field())+": failed "+fe.Tag()+" check")
			return false
		}
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// respondPostError maps post service errors onto HTTP statuses.
func respondPostError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, database.ErrPostNotFound):
		utils.RespondWithError(w, http.StatusNotFound, "Post not found")
	case errors.Is(err, services.ErrInvalidTransition):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrDuplicatePost):
		utils.RespondWithError(w, http.StatusConflict, "A post for this occasion is already scheduled at that time")
	case errors.Is(err, services.ErrScheduleInPast), errors.Is(err, services.ErrInvalidPagination):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		utils.Errorf("%s: %v", fallback, err)
		utils.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

// GeneratePost generates content for an occasion and saves it as a draft.
func (h *Handler) GeneratePost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req models.GenerationRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	req.Occasion = strings.TrimSpace(req.Occasion)
	if req.Occasion == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Occasion is required")
		return
	}

	post, err := h.posts.GenerateDraft(r.Context(), userID, req)
	if err != nil {
		if errors.Is(err, generators.ErrInvalidRequest) {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, generators.ErrInvalidContent) {
			utils.Warnf("Generated content for %q rejected: %v", req.Occasion, err)
			utils.RespondWithError(w, http.StatusBadGateway, "Generated content was invalid, please retry")
			return
		}
		respondPostError(w, err, "Failed to generate content")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, post)
}

func (h *Handler) SchedulePost(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req models.SchedulePostRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.ScheduledTime.IsZero() {
		utils.RespondWithError(w, http.StatusBadRequest, "scheduled_time is required")
		return
	}

	post, err := h.posts.Schedule(r.Context(), userID, mux.Vars(r)["id"], req.ScheduledTime)
	if err != nil {
		respondPostError(w, err, "Error scheduling post")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, post)
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	query := r.URL.Query()

	page, err := queryInt(query.Get("page"), 1)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid page")
		return
	}
	limit, err := queryInt(query.Get("limit"), services.DefaultPageSize)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	status := models.PostStatus(query.Get("status"))
	if status != "" && !status.Valid() {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	resp, err := h.posts.List(r.Context(), userID, status, page, limit)
	if err != nil {
		respondPostError(w, err, "Error fetching posts")
		return
	}
	if resp.Posts == nil {
		resp.Posts = []*models.Post{}
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// TodayPosts returns the caller's next scheduled posts for today.
func (h *Handler) TodayPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.Today(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondPostError(w, err, "Error fetching today's posts")
		return
	}
	if posts == nil {
		posts = []*models.Post{}
	}
	utils.RespondWithJSON(w, http.StatusOK, posts)
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		respondPostError(w, err, "Error fetching post")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, post)
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), middleware.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		respondPostError(w, err, "Error deleting post")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Post deleted successfully"})
}

func queryInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
